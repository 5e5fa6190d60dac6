package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, owner_id, is_public, title, description, status, roles_needed, budget_total, budget_spent, image_url, created_at, updated_at`

// scanProject は1行分のプロジェクトをスキャンする。
func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	project := &model.Project{}
	err := row.Scan(
		&project.ID, &project.OwnerID, &project.IsPublic,
		&project.Title, &project.Description, &project.Status,
		pq.Array(&project.RolesNeeded),
		&project.BudgetTotal, &project.BudgetSpent, &project.ImageURL,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	project, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return project, nil
}

// CreateWithLead はプロジェクトと作成者のリードメンバーを同一トランザクションで作成する。
func (r *PostgresProjectRepo) CreateWithLead(ctx context.Context, project *model.Project, lead *model.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// プロジェクトを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, owner_id, is_public, title, description, status, roles_needed, budget_total, budget_spent, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		project.ID, project.OwnerID, project.IsPublic,
		project.Title, project.Description, project.Status,
		pq.Array(project.RolesNeeded),
		project.BudgetTotal, project.BudgetSpent, project.ImageURL,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	// 作成者をリードメンバーとして登録
	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_members (id, project_id, user_id, name, role, specialty, bio, avatar_url, compensation_type, hourly_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lead.ID, lead.ProjectID, lead.UserID, lead.Name, lead.Role,
		lead.Specialty, lead.Bio, lead.AvatarURL,
		lead.CompensationType, lead.HourlyRate, lead.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update はプロジェクト情報を更新する。
func (r *PostgresProjectRepo) Update(ctx context.Context, project *model.Project) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects
		 SET is_public = $2, title = $3, description = $4, status = $5,
		     roles_needed = $6, budget_total = $7, updated_at = $8
		 WHERE id = $1`,
		project.ID, project.IsPublic, project.Title, project.Description,
		project.Status, pq.Array(project.RolesNeeded), project.BudgetTotal,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

// DeleteByID は指定IDのプロジェクトを削除する。
// 関連するproject_members、tasks、expenses、invites、applications、art_jobsはCASCADE削除される。
func (r *PostgresProjectRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// ListByUserID はユーザーが所有または参加しているプロジェクト一覧を返す。
func (r *PostgresProjectRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT p.id, p.owner_id, p.is_public, p.title, p.description, p.status,
		        p.roles_needed, p.budget_total, p.budget_spent, p.image_url, p.created_at, p.updated_at
		 FROM projects p
		 LEFT JOIN project_members m ON m.project_id = p.id
		 WHERE p.owner_id = $1 OR m.user_id = $1
		 ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// ListPublic は公開プロジェクト一覧を返す。statusがゼロ値以外の場合は絞り込む。
func (r *PostgresProjectRepo) ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE is_public = TRUE`
	args := []any{}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list public projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// UpdateImageURL はプロジェクトのコンセプトアートURLを更新する。
func (r *PostgresProjectRepo) UpdateImageURL(ctx context.Context, projectID, imageURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET image_url = $2, updated_at = now() WHERE id = $1`,
		projectID, imageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update project image: %w", err)
	}
	return nil
}

// collectProjects は結果セットの全行をプロジェクトのスライスに変換する。
func collectProjects(rows *sql.Rows) ([]*model.Project, error) {
	var projects []*model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
