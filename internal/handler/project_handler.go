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

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, ownerID string, input project.CreateInput) (*model.Project, error)
	Get(ctx context.Context, projectID, viewerID string) (*model.Project, error)
	ListMine(ctx context.Context, userID string) ([]*model.Project, error)
	ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error)
	Update(ctx context.Context, projectID, userID string, input project.UpdateInput) (*model.Project, error)
	Delete(ctx context.Context, projectID, userID string) error
	AddMember(ctx context.Context, projectID, userID string, input project.AddMemberInput) (*model.Member, error)
	ListMembers(ctx context.Context, projectID, viewerID string) ([]*model.Member, error)
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// createProjectRequest はプロジェクト作成リクエストのボディ。
type createProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	RolesNeeded []string `json:"roles_needed"`
}

// updateProjectRequest はプロジェクト更新リクエストのボディ。
type updateProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	Status      string   `json:"status"`
	RolesNeeded []string `json:"roles_needed"`
	BudgetTotal float64  `json:"budget_total"`
}

// addMemberRequest はメンバー追加リクエストのボディ。
type addMemberRequest struct {
	UserID           *string  `json:"user_id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Specialty        string   `json:"specialty"`
	Bio              string   `json:"bio"`
	AvatarURL        string   `json:"avatar_url"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// projectResponse はプロジェクト情報のAPIレスポンス。
type projectResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	IsPublic    bool      `json:"is_public"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	RolesNeeded []string  `json:"roles_needed"`
	BudgetTotal float64   `json:"budget_total"`
	BudgetSpent float64   `json:"budget_spent"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// memberResponse はメンバー情報のAPIレスポンス。
type memberResponse struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	UserID           *string  `json:"user_id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Specialty        string   `json:"specialty"`
	Bio              string   `json:"bio"`
	AvatarURL        string   `json:"avatar_url"`
	CompensationType string   `json:"compensation_type"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

// Create は新しいプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "タイトルは必須です。",
			Category: "validation",
			Action:   "タイトルを入力してください。",
		})
		return
	}

	p, err := h.service.Create(r.Context(), userID, project.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		RolesNeeded: req.RolesNeeded,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// Get はプロジェクト詳細を取得する。
// 非公開プロジェクトはオーナーとメンバーのみが閲覧できる。
// GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// ListMine は自身が所有または参加しているプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	projects, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeProjectList(w, projects)
}

// ListPublic は公開プロジェクト一覧を返す。
// GET /api/projects/public?status=
func (h *ProjectHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	status := model.ProjectStatus(r.URL.Query().Get("status"))

	projects, err := h.service.ListPublic(r.Context(), status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeProjectList(w, projects)
}

// Update はプロジェクトを更新する。オーナーのみが実行できる。
// PATCH /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	p, err := h.service.Update(r.Context(), projectID, userID, project.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Status:      model.ProjectStatus(req.Status),
		RolesNeeded: req.RolesNeeded,
		BudgetTotal: req.BudgetTotal,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// Delete はプロジェクトを削除する。オーナーのみが実行できる。
// DELETE /api/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember はプロジェクトにメンバーを追加する。オーナーのみが実行できる。
// POST /api/projects/{id}/members
func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	member, err := h.service.AddMember(r.Context(), projectID, userID, project.AddMemberInput{
		UserID:           req.UserID,
		Name:             req.Name,
		Role:             req.Role,
		Specialty:        req.Specialty,
		Bio:              req.Bio,
		AvatarURL:        req.AvatarURL,
		CompensationType: model.CompensationType(req.CompensationType),
		HourlyRate:       req.HourlyRate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// ListMembers はプロジェクトのメンバー一覧を返す。
// GET /api/projects/{id}/members
func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	members, err := h.service.ListMembers(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- ヘルパー関数 ---

// toProjectResponse はmodel.ProjectからAPIレスポンスに変換する。
func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		IsPublic:    p.IsPublic,
		Title:       p.Title,
		Description: p.Description,
		Status:      string(p.Status),
		RolesNeeded: p.RolesNeeded,
		BudgetTotal: p.BudgetTotal,
		BudgetSpent: p.BudgetSpent,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
	}
}

// toMemberResponse はmodel.MemberからAPIレスポンスに変換する。
func toMemberResponse(m *model.Member) memberResponse {
	return memberResponse{
		ID:               m.ID,
		ProjectID:        m.ProjectID,
		UserID:           m.UserID,
		Name:             m.Name,
		Role:             m.Role,
		Specialty:        m.Specialty,
		Bio:              m.Bio,
		AvatarURL:        m.AvatarURL,
		CompensationType: string(m.CompensationType),
		HourlyRate:       m.HourlyRate,
	}
}

// writeProjectList はプロジェクト一覧をJSONで書き込む。
func writeProjectList(w http.ResponseWriter, projects []*model.Project) {
	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
