// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/atelier/internal/auth"
	"github.com/hitoshi/atelier/internal/middleware"
	"github.com/hitoshi/atelier/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, input auth.SignupInput) (*model.User, *model.Session, error)
	Login(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）

	// HydrationTimeout はセッション解決の上限時間。
	// 超過した場合はanonymousとして応答する。
	HydrationTimeout time.Duration
}

// AuthHandler はパスワード認証とセッション解決のHTTPハンドラー。
type AuthHandler struct {
	service       AuthServiceInterface
	sessionFinder middleware.SessionFinder
	fetcher       auth.ProfileFetcher
	config        AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	sessionFinder middleware.SessionFinder,
	fetcher auth.ProfileFetcher,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:       service,
		sessionFinder: sessionFinder,
		fetcher:       fetcher,
		config:        config,
	}
}

// signupRequest は新規登録リクエストのボディ。
type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionStateResponse はセッション解決結果のAPIレスポンス。
type sessionStateResponse struct {
	State   string           `json:"state"`
	Loading bool             `json:"loading"`
	Session *sessionResponse `json:"session"`
	User    *userResponse    `json:"user"`
}

// sessionResponse はセッション情報のAPIレスポンス。
type sessionResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signup は新規ユーザーを登録し、セッションCookieを発行する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "メールアドレス、名前、パスワードは必須です。",
			Category: "validation",
			Action:   "すべての項目を入力してください。",
		})
		return
	}

	user, session, err := h.service.Signup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Login はメールアドレスとパスワードを検証し、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Logout はセッションを破棄し、セッションCookieをクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session はセッションCookieをhydrating / anonymous / pending / authenticated
// のいずれかに解決して返す。ページ初期化時の状態復元に使用する。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	source := &requestSessionSource{
		request:       r,
		sessionFinder: h.sessionFinder,
	}

	resolver := auth.NewResolver(source, h.fetcher, h.config.HydrationTimeout)
	defer resolver.Close()

	if err := resolver.Start(r.Context()); err != nil {
		slog.Error("failed to start session resolver", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, internalError())
		return
	}

	snapshot := waitForResolution(r.Context(), resolver)

	resp := sessionStateResponse{
		State:   string(snapshot.State),
		Loading: snapshot.Loading,
	}
	if snapshot.Session != nil {
		resp.Session = &sessionResponse{
			UserID:    snapshot.Session.UserID,
			ExpiresAt: snapshot.Session.ExpiresAt,
		}
	}
	if snapshot.User != nil {
		u := toUserResponse(snapshot.User)
		resp.User = &u
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// requestSessionSource はリクエストのセッションCookieを
// 一度だけ通知するauth.SessionSourceの実装。
type requestSessionSource struct {
	request       *http.Request
	sessionFinder middleware.SessionFinder
}

var _ auth.SessionSource = (*requestSessionSource)(nil)

// Subscribe はCookieのセッションIDを検索し、結果を一度だけ通知する。
// Cookieが存在しない、または期限切れの場合はnilを通知する。
func (s *requestSessionSource) Subscribe(notify func(session *model.Session)) (func(), error) {
	cookie, err := s.request.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		notify(nil)
		return func() {}, nil
	}

	session, err := s.sessionFinder.FindByID(s.request.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		notify(nil)
		return func() {}, nil
	}

	notify(session)
	return func() {}, nil
}

// waitForResolution はResolverのloadingが解決されるまで待機し、最終状態を返す。
// コンテキストがキャンセルされた場合は時点のスナップショットを返す。
func waitForResolution(ctx context.Context, resolver *auth.Resolver) auth.Snapshot {
	select {
	case <-resolver.Resolved():
	case <-ctx.Done():
	}
	return resolver.Snapshot()
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- 共通ヘルパー ---

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, internalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEmailTaken, model.ErrCodeRoleAlreadyFilled:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeProfileNotFound,
		model.ErrCodeProjectNotFound, model.ErrCodeTaskNotFound,
		model.ErrCodePortfolioNotFound, model.ErrCodeInviteNotFound,
		model.ErrCodeApplicationNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCompensation, model.ErrCodeInvalidTaskStatus,
		model.ErrCodeInvalidAmount, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeNotProjectOwner, model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeInviteExpired:
		return http.StatusGone
	case model.ErrCodeAssigneeNotMember:
		return http.StatusUnprocessableEntity
	case model.ErrCodeSuggestionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireUserID はコンテキストからユーザーIDを取得する。
// 取得できない場合は401レスポンスを書き込み、falseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return "", false
	}
	return userID, true
}

// invalidRequestError はリクエストボディ解析失敗のエラーを返す。
func invalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// internalError は内部サーバーエラーを返す。
func internalError() *model.APIError {
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
