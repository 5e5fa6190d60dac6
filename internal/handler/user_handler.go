package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
	"github.com/hitoshi/atelier/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error)
	SearchTalent(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error)
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザープロフィール管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse は本人向けユーザー情報のAPIレスポンス。
type userResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Bio              string   `json:"bio"`
	AvatarURL        string   `json:"avatar_url"`
	Skills           []string `json:"skills"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// profileResponse は公開プロフィールのAPIレスポンス。メールアドレスは含めない。
type profileResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Bio              string   `json:"bio"`
	AvatarURL        string   `json:"avatar_url"`
	Skills           []string `json:"skills"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Name             string   `json:"name"`
	Bio              string   `json:"bio"`
	AvatarURL        string   `json:"avatar_url"`
	Skills           []string `json:"skills"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// Me は自身のプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// UpdateMe は自身のプロフィールを更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		Name:             req.Name,
		Bio:              req.Bio,
		AvatarURL:        req.AvatarURL,
		Skills:           req.Skills,
		CompensationType: model.CompensationType(req.CompensationType),
		HourlyRate:       req.HourlyRate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// Withdraw は自身のアカウントを削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile は指定ユーザーの公開プロフィールを返す。
// GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(u))
}

// SearchTalent はスキル・報酬条件でクリエイターを検索する。
// GET /api/users?skill=&compensation_type=&max_hourly_rate=
func (h *UserHandler) SearchTalent(w http.ResponseWriter, r *http.Request) {
	filter := repository.TalentFilter{
		Skill:            r.URL.Query().Get("skill"),
		CompensationType: model.CompensationType(r.URL.Query().Get("compensation_type")),
	}
	if raw := r.URL.Query().Get("max_hourly_rate"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "max_hourly_rateは0以上の数値で指定してください。",
				Category: "validation",
				Action:   "クエリパラメータを確認してください。",
			})
			return
		}
		filter.MaxHourlyRate = rate
	}

	users, err := h.service.SearchTalent(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]profileResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toProfileResponse(u))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toUserResponse はmodel.Userから本人向けAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Bio:              u.Bio,
		AvatarURL:        u.AvatarURL,
		Skills:           u.Skills,
		CompensationType: string(u.CompensationType),
		HourlyRate:       u.HourlyRate,
	}
}

// toProfileResponse はmodel.Userから公開プロフィールレスポンスに変換する。
func toProfileResponse(u *model.User) profileResponse {
	return profileResponse{
		ID:               u.ID,
		Name:             u.Name,
		Bio:              u.Bio,
		AvatarURL:        u.AvatarURL,
		Skills:           u.Skills,
		CompensationType: string(u.CompensationType),
		HourlyRate:       u.HourlyRate,
	}
}
