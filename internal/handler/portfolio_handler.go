package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/portfolio"
)

// PortfolioServiceInterface はポートフォリオハンドラーが必要とするサービスインターフェース。
type PortfolioServiceInterface interface {
	Create(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error)
	Get(ctx context.Context, itemID string) (*model.PortfolioItem, error)
	Update(ctx context.Context, itemID, userID string, input portfolio.UpdateInput) (*model.PortfolioItem, error)
	Delete(ctx context.Context, itemID, userID string) error
	ListByUser(ctx context.Context, userID string) ([]*model.PortfolioItem, error)
}

// PortfolioHandler は作品ポートフォリオのHTTPハンドラー。
type PortfolioHandler struct {
	service PortfolioServiceInterface
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(service PortfolioServiceInterface) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

// portfolioItemRequest は作品登録・更新リクエストのボディ。
type portfolioItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"media_url"`
	Category    string `json:"category"`
}

// portfolioItemResponse は作品情報のAPIレスポンス。
type portfolioItemResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"media_url"`
	MediaType   string `json:"media_type"`
	Category    string `json:"category"`
}

// Create は新しい作品を登録する。
// POST /api/portfolio
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req portfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	item, err := h.service.Create(r.Context(), userID, portfolio.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		MediaURL:    req.MediaURL,
		Category:    req.Category,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPortfolioItemResponse(item))
}

// Get は作品詳細を取得する。
// GET /api/portfolio/{id}
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	item, err := h.service.Get(r.Context(), itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPortfolioItemResponse(item))
}

// Update は作品情報を更新する。所有者のみが実行できる。
// PATCH /api/portfolio/{id}
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "id")

	var req portfolioItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	item, err := h.service.Update(r.Context(), itemID, userID, portfolio.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		MediaURL:    req.MediaURL,
		Category:    req.Category,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPortfolioItemResponse(item))
}

// Delete は作品を削除する。所有者のみが実行できる。
// DELETE /api/portfolio/{id}
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), itemID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine は自身の作品一覧を返す。
// GET /api/portfolio
func (h *PortfolioHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	h.writeUserPortfolio(w, r, userID)
}

// ListByUser は指定ユーザーの公開ポートフォリオを返す。
// GET /api/users/{id}/portfolio
func (h *PortfolioHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.writeUserPortfolio(w, r, chi.URLParam(r, "id"))
}

func (h *PortfolioHandler) writeUserPortfolio(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]portfolioItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toPortfolioItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toPortfolioItemResponse はmodel.PortfolioItemからAPIレスポンスに変換する。
func toPortfolioItemResponse(item *model.PortfolioItem) portfolioItemResponse {
	return portfolioItemResponse{
		ID:          item.ID,
		UserID:      item.UserID,
		Title:       item.Title,
		Description: item.Description,
		MediaURL:    item.MediaURL,
		MediaType:   string(item.MediaType),
		Category:    item.Category,
	}
}
