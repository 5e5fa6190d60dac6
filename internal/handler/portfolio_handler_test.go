package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/portfolio"
)

// --- モック定義 ---

// mockPortfolioService はPortfolioServiceInterfaceのモック実装。
type mockPortfolioService struct {
	createFn     func(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error)
	getFn        func(ctx context.Context, itemID string) (*model.PortfolioItem, error)
	updateFn     func(ctx context.Context, itemID, userID string, input portfolio.UpdateInput) (*model.PortfolioItem, error)
	deleteFn     func(ctx context.Context, itemID, userID string) error
	listByUserFn func(ctx context.Context, userID string) ([]*model.PortfolioItem, error)
}

func (m *mockPortfolioService) Create(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error) {
	return m.createFn(ctx, userID, input)
}

func (m *mockPortfolioService) Get(ctx context.Context, itemID string) (*model.PortfolioItem, error) {
	return m.getFn(ctx, itemID)
}

func (m *mockPortfolioService) Update(ctx context.Context, itemID, userID string, input portfolio.UpdateInput) (*model.PortfolioItem, error) {
	return m.updateFn(ctx, itemID, userID, input)
}

func (m *mockPortfolioService) Delete(ctx context.Context, itemID, userID string) error {
	return m.deleteFn(ctx, itemID, userID)
}

func (m *mockPortfolioService) ListByUser(ctx context.Context, userID string) ([]*model.PortfolioItem, error) {
	return m.listByUserFn(ctx, userID)
}

func testPortfolioItem() *model.PortfolioItem {
	return &model.PortfolioItem{
		ID:        "item-1",
		UserID:    "user-1",
		Title:     "夕暮れの街",
		MediaURL:  "https://cdn.example.com/works/sunset.png",
		MediaType: model.MediaTypeImage,
		Category:  "イラスト",
	}
}

// --- POST /api/portfolio テスト ---

func TestPortfolioHandler_Create_Success(t *testing.T) {
	svc := &mockPortfolioService{
		createFn: func(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error) {
			if input.MediaURL != "https://cdn.example.com/works/sunset.png" {
				t.Errorf("mediaURL = %q", input.MediaURL)
			}
			return testPortfolioItem(), nil
		},
	}

	h := NewPortfolioHandler(svc)

	body := `{"title":"夕暮れの街","media_url":"https://cdn.example.com/works/sunset.png","category":"イラスト"}`
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got portfolioItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.MediaType != "image" {
		t.Errorf("mediaType = %q, want %q", got.MediaType, "image")
	}
}

func TestPortfolioHandler_Create_SSRFBlocked(t *testing.T) {
	svc := &mockPortfolioService{
		createFn: func(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error) {
			return nil, model.NewSSRFBlockedError()
		},
	}

	h := NewPortfolioHandler(svc)

	body := `{"title":"内部リソース","media_url":"http://169.254.169.254/meta"}`
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestPortfolioHandler_Create_InvalidURL(t *testing.T) {
	svc := &mockPortfolioService{
		createFn: func(ctx context.Context, userID string, input portfolio.CreateInput) (*model.PortfolioItem, error) {
			return nil, model.NewInvalidURLError("スキームが不正です")
		},
	}

	h := NewPortfolioHandler(svc)

	body := `{"title":"作品","media_url":"ftp://example.com/file"}`
	req := httptest.NewRequest(http.MethodPost, "/api/portfolio", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- PATCH /api/portfolio/{id} テスト ---

func TestPortfolioHandler_Update_NotFound(t *testing.T) {
	svc := &mockPortfolioService{
		updateFn: func(ctx context.Context, itemID, userID string, input portfolio.UpdateInput) (*model.PortfolioItem, error) {
			return nil, model.NewPortfolioNotFoundError(itemID)
		},
	}

	h := NewPortfolioHandler(svc)

	body := `{"title":"改題"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/portfolio/missing", strings.NewReader(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- DELETE /api/portfolio/{id} テスト ---

func TestPortfolioHandler_Delete_Success(t *testing.T) {
	deleteCalled := false
	svc := &mockPortfolioService{
		deleteFn: func(ctx context.Context, itemID, userID string) error {
			deleteCalled = true
			return nil
		},
	}

	h := NewPortfolioHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/portfolio/item-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "item-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !deleteCalled {
		t.Error("expected Delete to be called")
	}
}

// --- GET /api/users/{id}/portfolio テスト ---

func TestPortfolioHandler_ListByUser_UsesURLParam(t *testing.T) {
	svc := &mockPortfolioService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.PortfolioItem, error) {
			if userID != "other-user" {
				t.Errorf("userID = %q, want %q", userID, "other-user")
			}
			return []*model.PortfolioItem{testPortfolioItem()}, nil
		},
	}

	h := NewPortfolioHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/other-user/portfolio", nil)
	req = withUserID(req, "viewer-1")
	req = withChiURLParam(req, "id", "other-user")
	w := httptest.NewRecorder()

	h.ListByUser(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got []portfolioItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len(items) = %d, want 1", len(got))
	}
}

// --- GET /api/portfolio テスト ---

func TestPortfolioHandler_ListMine_UsesSessionUserID(t *testing.T) {
	svc := &mockPortfolioService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.PortfolioItem, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return nil, nil
		},
	}

	h := NewPortfolioHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ListMine(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
