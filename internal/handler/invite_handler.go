package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/invite"
	"github.com/hitoshi/atelier/internal/model"
)

// InviteServiceInterface は招待ハンドラーが必要とするサービスインターフェース。
type InviteServiceInterface interface {
	Create(ctx context.Context, projectID, senderID string, input invite.CreateInput) (*model.Invite, string, error)
	ListMine(ctx context.Context, userID string) ([]*model.Invite, error)
	ResolveToken(ctx context.Context, token string) (*model.Invite, error)
	Accept(ctx context.Context, inviteID, userID string) (*model.Member, error)
	Decline(ctx context.Context, inviteID, userID string) error
}

// InviteHandler はプロジェクト招待のHTTPハンドラー。
type InviteHandler struct {
	service InviteServiceInterface
}

// NewInviteHandler はInviteHandlerを生成する。
func NewInviteHandler(service InviteServiceInterface) *InviteHandler {
	return &InviteHandler{service: service}
}

// createInviteRequest は招待作成リクエストのボディ。
type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// inviteResponse は招待情報のAPIレスポンス。
// Tokenは作成レスポンスにのみ含まれる平文トークン。
type inviteResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	ProjectName string     `json:"project_name,omitempty"`
	SenderName  string     `json:"sender_name,omitempty"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	Token       string     `json:"token,omitempty"`
}

// Create はプロジェクトへの招待を作成する。オーナーのみが実行できる。
// 平文トークンはこのレスポンスでのみ返される。
// POST /api/projects/{id}/invites
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	inv, token, err := h.service.Create(r.Context(), projectID, userID, invite.CreateInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toInviteResponse(inv)
	resp.Token = token

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// ListMine は自身宛ての招待一覧を返す。
// GET /api/invites
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	invites, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		resp = append(resp, toInviteResponse(inv))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ResolveToken は招待トークンから招待内容を照会する。
// GET /api/invites/resolve?token=
func (h *InviteHandler) ResolveToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "トークンが指定されていません。",
			Category: "validation",
			Action:   "招待リンクを確認してください。",
		})
		return
	}

	inv, err := h.service.ResolveToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toInviteResponse(inv))
}

// NewInviteLandingHandler は招待メールのリンクから開かれるページ遷移用ハンドラーを返す。
// トークンを検証し、フロントエンドの招待承諾画面へ303リダイレクトする。
// 無効なトークンの場合はフロントエンドのエラー画面へ誘導する。
// GET /invites/{token}
func NewInviteLandingHandler(service InviteServiceInterface, frontendOrigin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		if _, err := service.ResolveToken(r.Context(), token); err != nil {
			http.Redirect(w, r, frontendOrigin+"/invites/invalid", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, frontendOrigin+"/invites/accept?token="+url.QueryEscape(token), http.StatusSeeOther)
	}
}

// Accept は招待を承諾し、プロジェクトメンバーとして参加する。
// POST /api/invites/{id}/accept
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	inviteID := chi.URLParam(r, "id")

	member, err := h.service.Accept(r.Context(), inviteID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// Decline は招待を辞退する。
// POST /api/invites/{id}/decline
func (h *InviteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	inviteID := chi.URLParam(r, "id")

	if err := h.service.Decline(r.Context(), inviteID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toInviteResponse はmodel.InviteからAPIレスポンスに変換する。
func toInviteResponse(inv *model.Invite) inviteResponse {
	return inviteResponse{
		ID:          inv.ID,
		ProjectID:   inv.ProjectID,
		ProjectName: inv.ProjectName,
		SenderName:  inv.SenderName,
		Email:       inv.Email,
		Role:        inv.Role,
		Status:      string(inv.Status),
		ExpiresAt:   inv.ExpiresAt,
		UsedAt:      inv.UsedAt,
	}
}
