package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
	"github.com/hitoshi/atelier/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getProfileFn    func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error)
	searchTalentFn  func(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error)
	withdrawFn      func(ctx context.Context, userID string) error
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return m.getProfileFn(ctx, userID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, input)
}

func (m *mockUserService) SearchTalent(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
	return m.searchTalentFn(ctx, filter)
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	return m.withdrawFn(ctx, userID)
}

// --- GET /api/users/me テスト ---

func TestUserHandler_Me_ReturnsEmail(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return testUser(), nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Email != "hanako@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "hanako@example.com")
	}
}

// --- GET /api/users/{id} テスト ---

func TestUserHandler_GetProfile_OmitsEmail(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return testUser(), nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-1", nil)
	req = withUserID(req, "viewer-1")
	req = withChiURLParam(req, "id", "user-1")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, exists := raw["email"]; exists {
		t.Error("public profile should not contain email")
	}
	if raw["name"] != "創作花子" {
		t.Errorf("name = %v, want %q", raw["name"], "創作花子")
	}
}

func TestUserHandler_GetProfile_NotFound(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/missing", nil)
	req = withUserID(req, "viewer-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- PATCH /api/users/me テスト ---

func TestUserHandler_UpdateMe_Success(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error) {
			if input.Name != "新しい名前" {
				t.Errorf("name = %q, want %q", input.Name, "新しい名前")
			}
			if input.CompensationType != model.CompensationPaid {
				t.Errorf("compensation = %q, want %q", input.CompensationType, model.CompensationPaid)
			}
			u := testUser()
			u.Name = input.Name
			return u, nil
		},
	}

	h := NewUserHandler(svc)

	body := `{"name":"新しい名前","compensation_type":"paid","skills":["作曲","編曲"]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestUserHandler_UpdateMe_InvalidCompensation(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error) {
			return nil, model.NewInvalidCompensationError()
		},
	}

	h := NewUserHandler(svc)

	body := `{"name":"花子","compensation_type":"experience","hourly_rate":50}`
	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", strings.NewReader(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- GET /api/users テスト ---

func TestUserHandler_SearchTalent_ParsesQueryParams(t *testing.T) {
	svc := &mockUserService{
		searchTalentFn: func(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
			if filter.Skill != "作曲" {
				t.Errorf("skill = %q, want %q", filter.Skill, "作曲")
			}
			if filter.CompensationType != model.CompensationPaid {
				t.Errorf("compensation = %q, want %q", filter.CompensationType, model.CompensationPaid)
			}
			if filter.MaxHourlyRate != 100 {
				t.Errorf("maxHourlyRate = %v, want 100", filter.MaxHourlyRate)
			}
			return []*model.User{testUser()}, nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users?skill=作曲&compensation_type=paid&max_hourly_rate=100", nil)
	req = withUserID(req, "viewer-1")
	w := httptest.NewRecorder()

	h.SearchTalent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestUserHandler_SearchTalent_InvalidMaxRate(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users?max_hourly_rate=abc", nil)
	req = withUserID(req, "viewer-1")
	w := httptest.NewRecorder()

	h.SearchTalent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- DELETE /api/users/me テスト ---

func TestUserHandler_Withdraw_Success(t *testing.T) {
	withdrawCalled := false
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawCalled = true
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return nil
		},
	}

	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !withdrawCalled {
		t.Error("expected Withdraw to be called")
	}
}
