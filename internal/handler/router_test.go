package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/atelier/internal/auth"
	"github.com/hitoshi/atelier/internal/middleware"
	"github.com/hitoshi/atelier/internal/model"
)

// okPinger は常に正常を返すPingerの実装。
type okPinger struct{}

func (okPinger) Ping() error { return nil }

// newTestRouter はモックサービスで構成したルーターを返す。
func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()

	if deps.HealthChecker == nil {
		deps.HealthChecker = okPinger{}
	}
	if deps.SessionFinder == nil {
		deps.SessionFinder = &mockSessionFinder{}
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		t.Cleanup(deps.RateLimiter.Stop)
	}
	if deps.AuthService == nil {
		deps.AuthService = &mockAuthService{}
	}
	if deps.ProfileFetcher == nil {
		deps.ProfileFetcher = &mockProfileFetcher{}
	}
	if deps.UserService == nil {
		deps.UserService = &mockUserService{}
	}
	if deps.PortfolioService == nil {
		deps.PortfolioService = &mockPortfolioService{}
	}
	if deps.ProjectService == nil {
		deps.ProjectService = &mockProjectService{}
	}
	if deps.BudgetService == nil {
		deps.BudgetService = &mockBudgetService{}
	}
	if deps.TaskService == nil {
		deps.TaskService = &mockTaskService{}
	}
	if deps.InviteService == nil {
		deps.InviteService = &mockInviteService{}
	}
	if deps.ApplicationService == nil {
		deps.ApplicationService = &mockApplicationService{}
	}
	if deps.SuggestService == nil {
		deps.SuggestService = &mockSuggestService{}
	}

	return NewRouter(deps)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status = %q, want %q", got["status"], "ok")
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_SessionEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got sessionStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.State != string(auth.StateAnonymous) {
		t.Errorf("state = %q, want %q", got.State, auth.StateAnonymous)
	}
}

func TestRouter_APIWithValidSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return testSession(), nil
		},
	}
	projectSvc := &mockProjectService{
		listMineFn: func(ctx context.Context, userID string) ([]*model.Project, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			return []*model.Project{testProject()}, nil
		},
	}

	router := newTestRouter(t, &RouterDeps{
		SessionFinder:  finder,
		ProjectService: projectSvc,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRouter_MutatingRequestRequiresCSRFToken(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return testSession(), nil
		},
	}

	router := newTestRouter(t, &RouterDeps{SessionFinder: finder})

	body := `{"title":"星降る夜のアニメMV"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	// CSRFトークンを付けない
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestRouter_SignupRedirectsWhenAlreadyLoggedIn(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return testSession(), nil
		},
	}

	router := newTestRouter(t, &RouterDeps{SessionFinder: finder})

	body := `{"email":"hanako@example.com","name":"花子","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["token"] == "" {
		t.Error("expected non-empty CSRF token")
	}
}

func TestRouter_UnknownRoute_Returns404(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// TestRouter_InviteLanding_NoSession_RedirectsToLogin は未認証の招待リンク遷移が
// ログイン画面へリダイレクトされることを検証する。
func TestRouter_InviteLanding_NoSession_RedirectsToLogin(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/invites/some-token", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

// TestRouter_InviteLanding_WithSession_RedirectsToAcceptPage は認証済みの招待リンク遷移が
// フロントエンドの承諾画面へリダイレクトされることを検証する。
func TestRouter_InviteLanding_WithSession_RedirectsToAcceptPage(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return testSession(), nil
		},
	}
	service := &mockInviteService{
		resolveTokenFn: func(ctx context.Context, token string) (*model.Invite, error) {
			return testInvite(), nil
		},
	}
	router := newTestRouter(t, &RouterDeps{
		SessionFinder:     finder,
		InviteService:     service,
		CORSAllowedOrigin: "http://localhost:3000",
	})

	req := httptest.NewRequest(http.MethodGet, "/invites/some-token", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	want := "http://localhost:3000/invites/accept?token=some-token"
	if loc := resp.Header.Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

// TestRouter_InviteLanding_InvalidToken_RedirectsToErrorPage は無効なトークンの場合に
// フロントエンドのエラー画面へリダイレクトされることを検証する。
func TestRouter_InviteLanding_InvalidToken_RedirectsToErrorPage(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return testSession(), nil
		},
	}
	service := &mockInviteService{
		resolveTokenFn: func(ctx context.Context, token string) (*model.Invite, error) {
			return nil, model.NewInviteNotFoundError()
		},
	}
	router := newTestRouter(t, &RouterDeps{
		SessionFinder:     finder,
		InviteService:     service,
		CORSAllowedOrigin: "http://localhost:3000",
	})

	req := httptest.NewRequest(http.MethodGet, "/invites/bad-token", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000/invites/invalid" {
		t.Errorf("Location = %q, want %q", loc, "http://localhost:3000/invites/invalid")
	}
}
