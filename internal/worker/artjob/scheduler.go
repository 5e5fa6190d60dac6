package artjob

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// ArtJobRunnerService はジョブ実行のインターフェース。
type ArtJobRunnerService interface {
	// Run は指定ジョブの画像生成を実行し、結果に応じてジョブ状態を更新する。
	Run(ctx context.Context, job *model.ArtJob) error
}

// defaultBatchLimit は1サイクルで取得するジョブの最大件数。
const defaultBatchLimit = 20

// Scheduler はアートジョブのスケジューリングと並列制御を行う。
// ティッカーで実行期限が到来したジョブを取得し、
// semaphoreパターンで最大並列数を制御しながら生成を実行する。
type Scheduler struct {
	artJobRepo     repository.ArtJobRepository
	runner         ArtJobRunnerService
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewScheduler(
	artJobRepo repository.ArtJobRepository,
	runner ArtJobRunnerService,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Scheduler{
		artJobRepo:     artJobRepo,
		runner:         runner,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("アートジョブスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("生成サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("アートジョブスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("生成サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は実行期限が到来したジョブを1回取得し、並列で生成を実行する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	// 実行対象ジョブを取得（FOR UPDATE SKIP LOCKED、running遷移込み）
	jobs, err := s.artJobRepo.ListDue(ctx, defaultBatchLimit)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		return nil
	}

	s.logger.Info("生成サイクルを開始します",
		slog.Int("job_count", len(jobs)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(j *model.ArtJob) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.runner.Run(ctx, j); err != nil {
				s.logger.Error("アートジョブの実行に失敗しました",
					slog.String("job_id", j.ID),
					slog.String("project_id", j.ProjectID),
					slog.String("error", err.Error()),
				)
			}
		}(job)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("生成サイクルが完了しました",
		slog.Int("job_count", len(jobs)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
