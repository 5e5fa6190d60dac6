package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresPortfolioRepo はPostgreSQLを使用したポートフォリオリポジトリ。
type PostgresPortfolioRepo struct {
	db *sql.DB
}

// NewPostgresPortfolioRepo はPostgresPortfolioRepoを生成する。
func NewPostgresPortfolioRepo(db *sql.DB) *PostgresPortfolioRepo {
	return &PostgresPortfolioRepo{db: db}
}

const portfolioColumns = `id, user_id, title, description, media_url, media_type, category, created_at, updated_at`

// scanPortfolioItem は1行分の作品をスキャンする。
func scanPortfolioItem(row interface{ Scan(...any) error }) (*model.PortfolioItem, error) {
	item := &model.PortfolioItem{}
	err := row.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description,
		&item.MediaURL, &item.MediaType, &item.Category,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
func (r *PostgresPortfolioRepo) FindByID(ctx context.Context, id string) (*model.PortfolioItem, error) {
	item, err := scanPortfolioItem(r.db.QueryRowContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolio_items WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find portfolio item by ID: %w", err)
	}
	return item, nil
}

// Create は作品を作成する。
func (r *PostgresPortfolioRepo) Create(ctx context.Context, item *model.PortfolioItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolio_items (id, user_id, title, description, media_url, media_type, category, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.UserID, item.Title, item.Description,
		item.MediaURL, item.MediaType, item.Category,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio item: %w", err)
	}
	return nil
}

// Update は作品情報を更新する。
func (r *PostgresPortfolioRepo) Update(ctx context.Context, item *model.PortfolioItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE portfolio_items
		 SET title = $2, description = $3, media_url = $4, media_type = $5, category = $6, updated_at = $7
		 WHERE id = $1`,
		item.ID, item.Title, item.Description,
		item.MediaURL, item.MediaType, item.Category,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio item not found: %s", item.ID)
	}
	return nil
}

// DeleteByID は指定IDの作品を削除する。
func (r *PostgresPortfolioRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM portfolio_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("portfolio item not found: %s", id)
	}
	return nil
}

// ListByUserID はユーザーの作品一覧を作成日降順で返す。
func (r *PostgresPortfolioRepo) ListByUserID(ctx context.Context, userID string) ([]*model.PortfolioItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolio_items
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio items: %w", err)
	}
	defer rows.Close()

	var items []*model.PortfolioItem
	for rows.Next() {
		item, err := scanPortfolioItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate portfolio items: %w", err)
	}

	return items, nil
}

// DeleteByUserID はユーザーの全作品を削除する。
func (r *PostgresPortfolioRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM portfolio_items WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user portfolio items: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PortfolioRepository = (*PostgresPortfolioRepo)(nil)
