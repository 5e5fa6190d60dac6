package artjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// ProjectImageUpdater はプロジェクトのコンセプトアートURL反映のインターフェース。
type ProjectImageUpdater interface {
	UpdateImageURL(ctx context.Context, projectID, imageURL string) error
}

// MetricsRecorder は生成結果のメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordGenerationSuccess()
	RecordGenerationFailure(reason string)
	RecordGenerationRetry()
	RecordGenerationLatency(duration time.Duration)
}

// Runner は個別ジョブの画像生成と状態更新を行う。
// 生成成功時はResultURLをプロジェクトのimage_urlに反映し、
// 失敗時は指数バックオフ付きでジョブをqueuedに戻す。
type Runner struct {
	artJobRepo repository.ArtJobRepository
	projects   ProjectImageUpdater
	generator  ImageGenerator
	logger     *slog.Logger

	// Metrics はメトリクス収集先。nilの場合は記録しない。
	Metrics MetricsRecorder

	// MaxAttempts は失敗確定までの最大試行回数。
	// 0以下の場合はDefaultMaxAttemptsを使用する。
	MaxAttempts int
}

// NewRunner はRunnerの新しいインスタンスを生成する。
func NewRunner(
	artJobRepo repository.ArtJobRepository,
	projects ProjectImageUpdater,
	generator ImageGenerator,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		artJobRepo: artJobRepo,
		projects:   projects,
		generator:  generator,
		logger:     logger,
	}
}

// Run はジョブの画像生成を1回実行し、結果に応じてジョブ状態を更新する。
// ArtJobRunnerServiceインターフェースを実装する。
func (r *Runner) Run(ctx context.Context, job *model.ArtJob) error {
	start := time.Now()

	resultURL, err := r.generator.Generate(ctx, job.Prompt)
	if err != nil {
		r.logger.Error("コンセプトアートの生成に失敗しました",
			slog.String("job_id", job.ID),
			slog.String("project_id", job.ProjectID),
			slog.Int("attempts", job.Attempts+1),
			slog.String("error", err.Error()),
		)
		ApplyFailure(job, err.Error(), r.MaxAttempts)
		if r.Metrics != nil {
			r.Metrics.RecordGenerationFailure(err.Error())
			if job.Status == model.ArtJobStatusQueued {
				r.Metrics.RecordGenerationRetry()
			}
		}
		if updateErr := r.artJobRepo.UpdateState(ctx, job); updateErr != nil {
			r.logger.Error("ジョブ状態の更新に失敗しました",
				slog.String("job_id", job.ID),
				slog.String("error", updateErr.Error()),
			)
			return updateErr
		}
		return fmt.Errorf("画像生成に失敗: %w", err)
	}

	ApplySuccess(job, resultURL)
	if err := r.artJobRepo.UpdateState(ctx, job); err != nil {
		return fmt.Errorf("ジョブ状態の更新に失敗しました: %w", err)
	}

	if err := r.projects.UpdateImageURL(ctx, job.ProjectID, resultURL); err != nil {
		r.logger.Error("プロジェクトへの画像URL反映に失敗しました",
			slog.String("job_id", job.ID),
			slog.String("project_id", job.ProjectID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("画像URLの反映に失敗しました: %w", err)
	}

	duration := time.Since(start)
	if r.Metrics != nil {
		r.Metrics.RecordGenerationSuccess()
		r.Metrics.RecordGenerationLatency(duration)
	}
	r.logger.Info("コンセプトアートの生成が完了しました",
		slog.String("job_id", job.ID),
		slog.String("project_id", job.ProjectID),
		slog.String("result_url", resultURL),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
