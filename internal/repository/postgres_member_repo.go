package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresMemberRepo はPostgreSQLを使用したプロジェクトメンバーリポジトリ。
type PostgresMemberRepo struct {
	db *sql.DB
}

// NewPostgresMemberRepo はPostgresMemberRepoを生成する。
func NewPostgresMemberRepo(db *sql.DB) *PostgresMemberRepo {
	return &PostgresMemberRepo{db: db}
}

// ListByProjectID はプロジェクトのメンバー一覧を返す。
func (r *PostgresMemberRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, user_id, name, role, specialty, bio, avatar_url, compensation_type, hourly_rate, created_at
		 FROM project_members
		 WHERE project_id = $1
		 ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		member := &model.Member{}
		err := rows.Scan(
			&member.ID, &member.ProjectID, &member.UserID,
			&member.Name, &member.Role, &member.Specialty,
			&member.Bio, &member.AvatarURL,
			&member.CompensationType, &member.HourlyRate,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ExistsByProjectAndUser は指定ユーザーがプロジェクトのメンバーかを返す。
func (r *PostgresMemberRepo) ExistsByProjectAndUser(ctx context.Context, projectID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check member existence: %w", err)
	}
	return exists, nil
}

// AddWithRoleFill はメンバーを追加し、同一トランザクションで
// プロジェクトのroles_neededから該当ロールを取り除く。
func (r *PostgresMemberRepo) AddWithRoleFill(ctx context.Context, member *model.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_members (id, project_id, user_id, name, role, specialty, bio, avatar_url, compensation_type, hourly_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		member.ID, member.ProjectID, member.UserID, member.Name, member.Role,
		member.Specialty, member.Bio, member.AvatarURL,
		member.CompensationType, member.HourlyRate, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	// 募集中ロールから埋まったロールを取り除く
	_, err = tx.ExecContext(ctx,
		`UPDATE projects
		 SET roles_needed = array_remove(roles_needed, $2), updated_at = now()
		 WHERE id = $1`,
		member.ProjectID, member.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to update roles needed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ MemberRepository = (*PostgresMemberRepo)(nil)
