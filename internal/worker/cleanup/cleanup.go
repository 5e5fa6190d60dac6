// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッション、回答期限を過ぎた招待、保持期間（デフォルト30日）を
// 超過した完了・失敗アートジョブを日次バッチで削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionCleaner は期限切れセッション削除のインターフェース。
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// InviteCleaner は期限切れ招待削除のインターフェース。
type InviteCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ArtJobCleaner は完了済みアートジョブ削除のインターフェース。
type ArtJobCleaner interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupRecorder は削除件数のメトリクス記録のインターフェース。
type CleanupRecorder interface {
	RecordCleanupDeleted(resource string, count int64)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions         SessionCleaner
	invites          InviteCleaner
	artJobs          ArtJobCleaner
	logger           *slog.Logger
	JobRetentionDays int // 完了・失敗ジョブの保持日数（デフォルト: 30）

	// Metrics はメトリクス収集先。nilの場合は記録しない。
	Metrics CleanupRecorder
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトのジョブ保持日数は30日。
func NewCleanupJob(sessions SessionCleaner, invites InviteCleaner, artJobs ArtJobCleaner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:         sessions,
		invites:          invites,
		artJobs:          artJobs,
		logger:           logger,
		JobRetentionDays: 30,
	}
}

// Run は期限切れデータを削除する。
// いずれかの削除に失敗しても残りの削除を継続し、失敗をまとめて返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	var errs []error

	sessionCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("セッション削除に失敗: %w", err))
	}

	inviteCount, err := j.invites.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れ招待の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("招待削除に失敗: %w", err))
	}

	cutoff := time.Now().AddDate(0, 0, -j.JobRetentionDays)
	jobCount, err := j.artJobs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("完了済みアートジョブの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.JobRetentionDays),
		)
		errs = append(errs, fmt.Errorf("アートジョブ削除に失敗: %w", err))
	}

	if j.Metrics != nil {
		j.Metrics.RecordCleanupDeleted("sessions", sessionCount)
		j.Metrics.RecordCleanupDeleted("invites", inviteCount)
		j.Metrics.RecordCleanupDeleted("art_jobs", jobCount)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_invites", inviteCount),
		slog.Int64("deleted_art_jobs", jobCount),
		slog.Int("retention_days", j.JobRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
