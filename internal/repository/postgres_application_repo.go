package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

const applicationColumns = `a.id, a.project_id, a.applicant_id, a.role, a.message, a.compensation_type, a.hourly_rate, a.created_at, u.name, u.avatar_url`

// scanApplication は1行分の応募をスキャンする。応募者の名前とアバターを含む。
func scanApplication(row interface{ Scan(...any) error }) (*model.Application, error) {
	app := &model.Application{}
	err := row.Scan(
		&app.ID, &app.ProjectID, &app.ApplicantID,
		&app.Role, &app.Message, &app.CompensationType, &app.HourlyRate,
		&app.CreatedAt, &app.ApplicantName, &app.ApplicantAvatar,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Create は応募を作成する。
func (r *PostgresApplicationRepo) Create(ctx context.Context, app *model.Application) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id, project_id, applicant_id, role, message, compensation_type, hourly_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.ProjectID, app.ApplicantID,
		app.Role, app.Message, app.CompensationType, app.HourlyRate,
		app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	app, err := scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications a
		 JOIN users u ON u.id = a.applicant_id
		 WHERE a.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application by ID: %w", err)
	}
	return app, nil
}

// ListByProjectID はプロジェクト宛の応募一覧を応募者情報付きで返す。
func (r *PostgresApplicationRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications a
		 JOIN users u ON u.id = a.applicant_id
		 WHERE a.project_id = $1
		 ORDER BY a.created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}

	return apps, nil
}

// DeleteByID は指定IDの応募を削除する。
func (r *PostgresApplicationRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM applications WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("application not found: %s", id)
	}
	return nil
}

// DeleteByUserID はユーザーの全応募を削除する。
func (r *PostgresApplicationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM applications WHERE applicant_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user applications: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
