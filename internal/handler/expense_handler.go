package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/project"
)

// BudgetServiceInterface は経費ハンドラーが必要とするサービスインターフェース。
type BudgetServiceInterface interface {
	AddExpense(ctx context.Context, projectID, userID string, input project.AddExpenseInput) (*model.Expense, error)
	ListExpenses(ctx context.Context, projectID, viewerID string) ([]*model.Expense, error)
}

// ExpenseHandler はプロジェクト経費のHTTPハンドラー。
type ExpenseHandler struct {
	service BudgetServiceInterface
}

// NewExpenseHandler はExpenseHandlerを生成する。
func NewExpenseHandler(service BudgetServiceInterface) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// addExpenseRequest は経費登録リクエストのボディ。
type addExpenseRequest struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	SpentAt     *time.Time `json:"spent_at"`
}

// expenseResponse は経費情報のAPIレスポンス。
type expenseResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	SpentAt     time.Time `json:"spent_at"`
}

// AddExpense はプロジェクトに経費を登録する。オーナーのみが実行できる。
// POST /api/projects/{id}/expenses
func (h *ExpenseHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req addExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	input := project.AddExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
	}
	if req.SpentAt != nil {
		input.SpentAt = *req.SpentAt
	}

	expense, err := h.service.AddExpense(r.Context(), projectID, userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toExpenseResponse(expense))
}

// ListExpenses はプロジェクトの経費一覧を返す。
// GET /api/projects/{id}/expenses
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	expenses, err := h.service.ListExpenses(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toExpenseResponse はmodel.ExpenseからAPIレスポンスに変換する。
func toExpenseResponse(e *model.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Description: e.Description,
		Amount:      e.Amount,
		SpentAt:     e.SpentAt,
	}
}
