// Package artjob はコンセプトアートのバックグラウンド生成処理を提供する。
// スケジューラ、ランナー、リトライ/バックオフ戦略を含む。
package artjob

import (
	"fmt"
	"time"

	"github.com/hitoshi/atelier/internal/model"
)

const (
	// initialBackoff は指数バックオフの初回遅延（1分）。
	initialBackoff = 1 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（1時間）。
	maxBackoff = 1 * time.Hour
	// DefaultMaxAttempts は失敗確定までの最大試行回数のデフォルト値。
	DefaultMaxAttempts = 5
)

// CalculateBackoff は試行回数に基づいて指数バックオフ遅延を計算する。
// 初回1分、2倍ずつ増加、最大1時間。
func CalculateBackoff(attempts int) time.Duration {
	delay := initialBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ApplyFailure はジョブに生成失敗を記録する。
// 試行回数をインクリメントし、maxAttempts未満なら指数バックオフ付きでqueuedに戻す。
// 上限に達した場合はfailedに確定する。
func ApplyFailure(job *model.ArtJob, reason string, maxAttempts int) {
	job.Attempts++
	job.LastError = reason

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if job.Attempts >= maxAttempts {
		job.Status = model.ArtJobStatusFailed
		job.LastError = fmt.Sprintf("%d回の試行後に失敗しました: %s", job.Attempts, reason)
		return
	}

	job.Status = model.ArtJobStatusQueued
	job.NextAttemptAt = time.Now().Add(CalculateBackoff(job.Attempts))
}

// ApplySuccess はジョブに生成結果を記録し、doneに確定する。
func ApplySuccess(job *model.ArtJob, resultURL string) {
	job.Status = model.ArtJobStatusDone
	job.ResultURL = resultURL
	job.LastError = ""
}
