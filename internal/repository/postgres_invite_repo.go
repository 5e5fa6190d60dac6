package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresInviteRepo はPostgreSQLを使用した招待リポジトリ。
type PostgresInviteRepo struct {
	db *sql.DB
}

// NewPostgresInviteRepo はPostgresInviteRepoを生成する。
func NewPostgresInviteRepo(db *sql.DB) *PostgresInviteRepo {
	return &PostgresInviteRepo{db: db}
}

const inviteColumns = `i.id, i.project_id, i.sender_id, i.email, i.role, i.token_hash, i.status, i.expires_at, i.used_at, i.created_at, p.title, u.name`

// scanInvite は1行分の招待をスキャンする。プロジェクト名と送信者名を含む。
func scanInvite(row interface{ Scan(...any) error }) (*model.Invite, error) {
	invite := &model.Invite{}
	err := row.Scan(
		&invite.ID, &invite.ProjectID, &invite.SenderID,
		&invite.Email, &invite.Role, &invite.TokenHash, &invite.Status,
		&invite.ExpiresAt, &invite.UsedAt, &invite.CreatedAt,
		&invite.ProjectName, &invite.SenderName,
	)
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// Create は招待を作成する。
func (r *PostgresInviteRepo) Create(ctx context.Context, invite *model.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (id, project_id, sender_id, email, role, token_hash, status, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		invite.ID, invite.ProjectID, invite.SenderID,
		invite.Email, invite.Role, invite.TokenHash, invite.Status,
		invite.ExpiresAt, invite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// FindByID は指定IDの招待を取得する。見つからない場合はnilを返す。
func (r *PostgresInviteRepo) FindByID(ctx context.Context, id string) (*model.Invite, error) {
	invite, err := scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+`
		 FROM invites i
		 JOIN projects p ON p.id = i.project_id
		 JOIN users u ON u.id = i.sender_id
		 WHERE i.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invite by ID: %w", err)
	}
	return invite, nil
}

// FindByTokenHash はトークンハッシュで招待を検索する。見つからない場合はnilを返す。
func (r *PostgresInviteRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error) {
	invite, err := scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+`
		 FROM invites i
		 JOIN projects p ON p.id = i.project_id
		 JOIN users u ON u.id = i.sender_id
		 WHERE i.token_hash = $1`,
		tokenHash,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invite by token: %w", err)
	}
	return invite, nil
}

// ListByEmail は指定メールアドレス宛の回答待ち招待一覧を返す。
func (r *PostgresInviteRepo) ListByEmail(ctx context.Context, email string) ([]*model.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inviteColumns+`
		 FROM invites i
		 JOIN projects p ON p.id = i.project_id
		 JOIN users u ON u.id = i.sender_id
		 WHERE i.email = $1 AND i.status = 'pending' AND i.expires_at > now()
		 ORDER BY i.created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*model.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}

	return invites, nil
}

// UpdateStatus は招待の状態を更新する。承諾時はused_atも設定する。
func (r *PostgresInviteRepo) UpdateStatus(ctx context.Context, id string, status model.InviteStatus, usedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invites SET status = $2, used_at = $3 WHERE id = $1`,
		id, status, usedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update invite status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("invite not found: %s", id)
	}
	return nil
}

// DeleteExpired は期限切れの回答待ち招待を削除し、削除件数を返す。
func (r *PostgresInviteRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE status = 'pending' AND expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invites: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ InviteRepository = (*PostgresInviteRepo)(nil)
