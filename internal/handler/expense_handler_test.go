package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/project"
)

// --- モック定義 ---

// mockBudgetService はBudgetServiceInterfaceのモック実装。
type mockBudgetService struct {
	addExpenseFn   func(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error)
	listExpensesFn func(ctx context.Context, projectID, viewerID string) ([]*model.Expense, error)
}

func (m *mockBudgetService) AddExpense(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error) {
	return m.addExpenseFn(ctx, projectID, userID, input)
}

func (m *mockBudgetService) ListExpenses(ctx context.Context, projectID, viewerID string) ([]*model.Expense, error) {
	return m.listExpensesFn(ctx, projectID, viewerID)
}

// --- POST /api/projects/{id}/expenses テスト ---

func TestExpenseHandler_AddExpense_Success(t *testing.T) {
	svc := &mockBudgetService{
		addExpenseFn: func(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error) {
			if input.Amount != 30000 {
				t.Errorf("amount = %v, want 30000", input.Amount)
			}
			return &model.Expense{
				ID:          "expense-1",
				ProjectID:   projectID,
				Description: input.Description,
				Amount:      input.Amount,
				SpentAt:     time.Now(),
			}, nil
		},
	}

	h := NewExpenseHandler(svc)

	body := `{"description":"背景素材の購入","amount":30000}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project-1/expenses", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.AddExpense(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got expenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Amount != 30000 {
		t.Errorf("amount = %v, want 30000", got.Amount)
	}
}

func TestExpenseHandler_AddExpense_NegativeAmount(t *testing.T) {
	svc := &mockBudgetService{
		addExpenseFn: func(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error) {
			return nil, model.NewInvalidAmountError()
		},
	}

	h := NewExpenseHandler(svc)

	body := `{"description":"返金","amount":-5000}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project-1/expenses", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.AddExpense(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestExpenseHandler_AddExpense_NotOwner(t *testing.T) {
	svc := &mockBudgetService{
		addExpenseFn: func(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error) {
			return nil, model.NewNotProjectOwnerError()
		},
	}

	h := NewExpenseHandler(svc)

	body := `{"description":"素材購入","amount":1000}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project-1/expenses", strings.NewReader(body))
	req = withUserID(req, "member-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.AddExpense(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

// --- GET /api/projects/{id}/expenses テスト ---

func TestExpenseHandler_ListExpenses_Success(t *testing.T) {
	svc := &mockBudgetService{
		listExpensesFn: func(ctx context.Context, projectID, viewerID string) ([]*model.Expense, error) {
			return []*model.Expense{
				{ID: "expense-1", ProjectID: projectID, Description: "背景素材", Amount: 30000},
				{ID: "expense-2", ProjectID: projectID, Description: "フォント", Amount: 5000},
			}, nil
		},
	}

	h := NewExpenseHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/project-1/expenses", nil)
	req = withUserID(req, "member-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.ListExpenses(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got []expenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(expenses) = %d, want 2", len(got))
	}
}
