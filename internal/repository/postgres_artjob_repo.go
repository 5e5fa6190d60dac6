package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresArtJobRepo はPostgreSQLを使用したコンセプトアート生成ジョブリポジトリ。
type PostgresArtJobRepo struct {
	db *sql.DB
}

// NewPostgresArtJobRepo はPostgresArtJobRepoを生成する。
func NewPostgresArtJobRepo(db *sql.DB) *PostgresArtJobRepo {
	return &PostgresArtJobRepo{db: db}
}

const artJobColumns = `id, project_id, prompt, status, attempts, next_attempt_at, result_url, last_error, created_at, updated_at`

// scanArtJob は1行分のジョブをスキャンする。
func scanArtJob(row interface{ Scan(...any) error }) (*model.ArtJob, error) {
	job := &model.ArtJob{}
	err := row.Scan(
		&job.ID, &job.ProjectID, &job.Prompt, &job.Status,
		&job.Attempts, &job.NextAttemptAt, &job.ResultURL, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Create はジョブをqueued状態で作成する。
func (r *PostgresArtJobRepo) Create(ctx context.Context, job *model.ArtJob) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO art_jobs (id, project_id, prompt, status, attempts, next_attempt_at, result_url, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.ProjectID, job.Prompt, job.Status,
		job.Attempts, job.NextAttemptAt, job.ResultURL, job.LastError,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create art job: %w", err)
	}
	return nil
}

// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
func (r *PostgresArtJobRepo) FindByID(ctx context.Context, id string) (*model.ArtJob, error) {
	job, err := scanArtJob(r.db.QueryRowContext(ctx,
		`SELECT `+artJobColumns+` FROM art_jobs WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find art job by ID: %w", err)
	}
	return job, nil
}

// ListDue は実行期限が到来したqueuedジョブを排他的に取得し、running状態に更新する。
// FOR UPDATE SKIP LOCKEDにより複数ワーカープロセス間での二重取得を防ぐ。
func (r *PostgresArtJobRepo) ListDue(ctx context.Context, limit int) ([]*model.ArtJob, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+artJobColumns+`
		 FROM art_jobs
		 WHERE status = 'queued' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due art jobs: %w", err)
	}

	var jobs []*model.ArtJob
	var ids []string
	for rows.Next() {
		job, err := scanArtJob(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan art job: %w", err)
		}
		jobs = append(jobs, job)
		ids = append(ids, job.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate art jobs: %w", err)
	}
	rows.Close()

	if len(ids) > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE art_jobs SET status = 'running', updated_at = now() WHERE id = ANY($1)`,
			pq.Array(ids),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to mark art jobs running: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, job := range jobs {
		job.Status = model.ArtJobStatusRunning
	}
	return jobs, nil
}

// UpdateState はジョブの状態・試行回数・次回実行時刻・結果・エラーを更新する。
func (r *PostgresArtJobRepo) UpdateState(ctx context.Context, job *model.ArtJob) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE art_jobs
		 SET status = $2, attempts = $3, next_attempt_at = $4, result_url = $5, last_error = $6, updated_at = now()
		 WHERE id = $1`,
		job.ID, job.Status, job.Attempts, job.NextAttemptAt, job.ResultURL, job.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to update art job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("art job not found: %s", job.ID)
	}
	return nil
}

// DeleteFinishedBefore は指定時刻より前に完了・失敗したジョブを削除し、削除件数を返す。
func (r *PostgresArtJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM art_jobs WHERE status IN ('done', 'failed') AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished art jobs: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ ArtJobRepository = (*PostgresArtJobRepo)(nil)
