package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// BudgetService はプロジェクト予算と経費台帳のサービス層。
// budget_spentは経費登録と同一トランザクションで更新されるため、
// 常に経費の合計と一致する。
type BudgetService struct {
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
	expenseRepo repository.ExpenseRepository
}

// NewBudgetService はBudgetServiceの新しいインスタンスを生成する。
func NewBudgetService(
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
	expenseRepo repository.ExpenseRepository,
) *BudgetService {
	return &BudgetService{
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		expenseRepo: expenseRepo,
	}
}

// AddExpenseInput は経費登録の入力。
type AddExpenseInput struct {
	Description string
	Amount      float64
	SpentAt     time.Time
}

// AddExpense はプロジェクトに経費を登録する。オーナーのみが実行できる。
// 金額は正の値でなければならず、budget_spentは同一トランザクションで加算される。
func (s *BudgetService) AddExpense(ctx context.Context, projectID, userID string, input AddExpenseInput) (*model.Expense, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID != userID {
		return nil, model.NewNotProjectOwnerError()
	}

	if input.Amount <= 0 {
		return nil, model.NewInvalidAmountError()
	}

	spentAt := input.SpentAt
	if spentAt.IsZero() {
		spentAt = time.Now()
	}

	expense := &model.Expense{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		SpentAt:     spentAt,
	}

	if err := s.expenseRepo.CreateWithBudgetUpdate(ctx, expense); err != nil {
		return nil, fmt.Errorf("経費の登録に失敗しました: %w", err)
	}

	slog.Info("経費を登録しました",
		slog.String("project_id", projectID),
		slog.Float64("amount", input.Amount),
	)

	return expense, nil
}

// ListExpenses はプロジェクトの経費一覧を取得する。
// オーナーまたはチームメンバーのみ閲覧できる。
func (s *BudgetService) ListExpenses(ctx context.Context, projectID, viewerID string) ([]*model.Expense, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}

	if project.OwnerID != viewerID {
		isMember, err := s.memberRepo.ExistsByProjectAndUser(ctx, projectID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("メンバー確認に失敗しました: %w", err)
		}
		if !isMember {
			return nil, model.NewProjectNotFoundError(projectID)
		}
	}

	expenses, err := s.expenseRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("経費一覧の取得に失敗しました: %w", err)
	}
	return expenses, nil
}

// VerifyLedger は経費合計とbudget_spentの一致を検証する。
// 不一致の場合はエラーを返す。運用時の整合性チェックに使用する。
func (s *BudgetService) VerifyLedger(ctx context.Context, projectID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return model.NewProjectNotFoundError(projectID)
	}

	sum, err := s.expenseRepo.SumByProjectID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("経費合計の取得に失敗しました: %w", err)
	}

	if sum != project.BudgetSpent {
		return fmt.Errorf("経費台帳の不整合を検出しました: sum=%v budget_spent=%v", sum, project.BudgetSpent)
	}
	return nil
}
