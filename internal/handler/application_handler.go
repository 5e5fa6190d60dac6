package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/application"
	"github.com/hitoshi/atelier/internal/model"
)

// ApplicationServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Apply(ctx context.Context, projectID, applicantID string, input application.ApplyInput) (*model.Application, error)
	ListForProject(ctx context.Context, projectID, userID string) ([]*model.Application, error)
	Approve(ctx context.Context, applicationID, userID string) (*model.Member, error)
	Decline(ctx context.Context, applicationID, userID string) error
}

// ApplicationHandler は公開プロジェクトへの応募のHTTPハンドラー。
type ApplicationHandler struct {
	service ApplicationServiceInterface
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// applyRequest は応募リクエストのボディ。
type applyRequest struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// applicationResponse は応募情報のAPIレスポンス。
type applicationResponse struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	ApplicantID      string   `json:"applicant_id"`
	ApplicantName    string   `json:"applicant_name,omitempty"`
	ApplicantAvatar  string   `json:"applicant_avatar,omitempty"`
	Role             string   `json:"role"`
	Message          string   `json:"message"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// Apply は公開プロジェクトの募集ロールに応募する。
// POST /api/projects/{id}/applications
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	app, err := h.service.Apply(r.Context(), projectID, userID, application.ApplyInput{
		Role:    req.Role,
		Message: req.Message,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toApplicationResponse(app))
}

// ListForProject はプロジェクトへの応募一覧を返す。オーナーのみが閲覧できる。
// GET /api/projects/{id}/applications
func (h *ApplicationHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	apps, err := h.service.ListForProject(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, toApplicationResponse(app))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Approve は応募を承認し、応募者をメンバーとして追加する。オーナーのみが実行できる。
// POST /api/applications/{id}/approve
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	applicationID := chi.URLParam(r, "id")

	member, err := h.service.Approve(r.Context(), applicationID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// Decline は応募を辞退にする。オーナーのみが実行できる。
// POST /api/applications/{id}/decline
func (h *ApplicationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	applicationID := chi.URLParam(r, "id")

	if err := h.service.Decline(r.Context(), applicationID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toApplicationResponse はmodel.ApplicationからAPIレスポンスに変換する。
func toApplicationResponse(app *model.Application) applicationResponse {
	return applicationResponse{
		ID:               app.ID,
		ProjectID:        app.ProjectID,
		ApplicantID:      app.ApplicantID,
		ApplicantName:    app.ApplicantName,
		ApplicantAvatar:  app.ApplicantAvatar,
		Role:             app.Role,
		Message:          app.Message,
		CompensationType: string(app.CompensationType),
		HourlyRate:       app.HourlyRate,
	}
}
