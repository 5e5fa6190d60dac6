package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/atelier/internal/model"
)

// PostgresExpenseRepo はPostgreSQLを使用した経費リポジトリ。
type PostgresExpenseRepo struct {
	db *sql.DB
}

// NewPostgresExpenseRepo はPostgresExpenseRepoを生成する。
func NewPostgresExpenseRepo(db *sql.DB) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{db: db}
}

// CreateWithBudgetUpdate は経費を作成し、同一トランザクションで
// プロジェクトのbudget_spentを加算する。
func (r *PostgresExpenseRepo) CreateWithBudgetUpdate(ctx context.Context, expense *model.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, project_id, description, amount, spent_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		expense.ID, expense.ProjectID, expense.Description, expense.Amount, expense.SpentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects
		 SET budget_spent = budget_spent + $2, updated_at = now()
		 WHERE id = $1`,
		expense.ProjectID, expense.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget spent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByProjectID はプロジェクトの経費一覧を日付降順で返す。
func (r *PostgresExpenseRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, description, amount, spent_at
		 FROM expenses
		 WHERE project_id = $1
		 ORDER BY spent_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		expense := &model.Expense{}
		err := rows.Scan(
			&expense.ID, &expense.ProjectID, &expense.Description,
			&expense.Amount, &expense.SpentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

// SumByProjectID はプロジェクトの経費合計を返す。
func (r *PostgresExpenseRepo) SumByProjectID(ctx context.Context, projectID string) (float64, error) {
	var sum float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE project_id = $1`,
		projectID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return sum, nil
}

// compile-time interface check
var _ ExpenseRepository = (*PostgresExpenseRepo)(nil)
