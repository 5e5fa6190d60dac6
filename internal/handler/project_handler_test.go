package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/project"
)

// --- モック定義 ---

// mockProjectService はProjectServiceInterfaceのモック実装。
type mockProjectService struct {
	createFn      func(ctx context.Context, ownerID string, input project.CreateInput) (*model.Project, error)
	getFn         func(ctx context.Context, projectID, viewerID string) (*model.Project, error)
	listMineFn    func(ctx context.Context, userID string) ([]*model.Project, error)
	listPublicFn  func(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error)
	updateFn      func(ctx context.Context, projectID, userID string, input project.UpdateInput) (*model.Project, error)
	deleteFn      func(ctx context.Context, projectID, userID string) error
	addMemberFn   func(ctx context.Context, projectID, userID string, input project.AddMemberInput) (*model.Member, error)
	listMembersFn func(ctx context.Context, projectID, viewerID string) ([]*model.Member, error)
}

func (m *mockProjectService) Create(ctx context.Context, ownerID string, input project.CreateInput) (*model.Project, error) {
	return m.createFn(ctx, ownerID, input)
}

func (m *mockProjectService) Get(ctx context.Context, projectID, viewerID string) (*model.Project, error) {
	return m.getFn(ctx, projectID, viewerID)
}

func (m *mockProjectService) ListMine(ctx context.Context, userID string) ([]*model.Project, error) {
	return m.listMineFn(ctx, userID)
}

func (m *mockProjectService) ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error) {
	return m.listPublicFn(ctx, status)
}

func (m *mockProjectService) Update(ctx context.Context, projectID, userID string, input project.UpdateInput) (*model.Project, error) {
	return m.updateFn(ctx, projectID, userID, input)
}

func (m *mockProjectService) Delete(ctx context.Context, projectID, userID string) error {
	return m.deleteFn(ctx, projectID, userID)
}

func (m *mockProjectService) AddMember(ctx context.Context, projectID, userID string, input project.AddMemberInput) (*model.Member, error) {
	return m.addMemberFn(ctx, projectID, userID, input)
}

func (m *mockProjectService) ListMembers(ctx context.Context, projectID, viewerID string) ([]*model.Member, error) {
	return m.listMembersFn(ctx, projectID, viewerID)
}

func testProject() *model.Project {
	return &model.Project{
		ID:          "project-1",
		OwnerID:     "owner-1",
		IsPublic:    true,
		Title:       "星降る夜のアニメMV",
		Description: "オリジナル楽曲のアニメーションMVを制作する",
		Status:      model.ProjectStatusPlanning,
		RolesNeeded: []string{"作曲家", "背景アーティスト"},
		BudgetTotal: 500000,
	}
}

// --- POST /api/projects テスト ---

func TestProjectHandler_Create_Success(t *testing.T) {
	svc := &mockProjectService{
		createFn: func(ctx context.Context, ownerID string, input project.CreateInput) (*model.Project, error) {
			if ownerID != "owner-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "owner-1")
			}
			if input.Title != "星降る夜のアニメMV" {
				t.Errorf("title = %q, want %q", input.Title, "星降る夜のアニメMV")
			}
			if len(input.RolesNeeded) != 2 {
				t.Errorf("len(RolesNeeded) = %d, want 2", len(input.RolesNeeded))
			}
			return testProject(), nil
		},
	}

	h := NewProjectHandler(svc)

	body := `{"title":"星降る夜のアニメMV","description":"MV制作","is_public":true,"roles_needed":["作曲家","背景アーティスト"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "project-1" {
		t.Errorf("project ID = %q, want %q", got.ID, "project-1")
	}
}

func TestProjectHandler_Create_EmptyTitle(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	body := `{"title":"","description":"MV制作"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestProjectHandler_Create_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"title":"x"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /api/projects/{id} テスト ---

func TestProjectHandler_Get_Success(t *testing.T) {
	svc := &mockProjectService{
		getFn: func(ctx context.Context, projectID, viewerID string) (*model.Project, error) {
			if projectID != "project-1" {
				t.Errorf("projectID = %q, want %q", projectID, "project-1")
			}
			return testProject(), nil
		},
	}

	h := NewProjectHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/project-1", nil)
	req = withUserID(req, "viewer-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestProjectHandler_Get_NotFound(t *testing.T) {
	svc := &mockProjectService{
		getFn: func(ctx context.Context, projectID, viewerID string) (*model.Project, error) {
			return nil, model.NewProjectNotFoundError(projectID)
		},
	}

	h := NewProjectHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/missing", nil)
	req = withUserID(req, "viewer-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- GET /api/projects/public テスト ---

func TestProjectHandler_ListPublic_PassesStatusFilter(t *testing.T) {
	svc := &mockProjectService{
		listPublicFn: func(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error) {
			if status != model.ProjectStatusPlanning {
				t.Errorf("status = %q, want %q", status, model.ProjectStatusPlanning)
			}
			return []*model.Project{testProject()}, nil
		},
	}

	h := NewProjectHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/public?status=planning", nil)
	w := httptest.NewRecorder()

	h.ListPublic(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got []projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len(projects) = %d, want 1", len(got))
	}
}

// --- PATCH /api/projects/{id} テスト ---

func TestProjectHandler_Update_NotOwner_ReturnsForbidden(t *testing.T) {
	svc := &mockProjectService{
		updateFn: func(ctx context.Context, projectID, userID string, input project.UpdateInput) (*model.Project, error) {
			return nil, model.NewNotProjectOwnerError()
		},
	}

	h := NewProjectHandler(svc)

	body := `{"title":"改題"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/projects/project-1", strings.NewReader(body))
	req = withUserID(req, "stranger-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

// --- DELETE /api/projects/{id} テスト ---

func TestProjectHandler_Delete_Success(t *testing.T) {
	deleteCalled := false
	svc := &mockProjectService{
		deleteFn: func(ctx context.Context, projectID, userID string) error {
			deleteCalled = true
			return nil
		},
	}

	h := NewProjectHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/project-1", nil)
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "project-1")
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

// --- POST /api/projects/{id}/members テスト ---

func TestProjectHandler_AddMember_Success(t *testing.T) {
	svc := &mockProjectService{
		addMemberFn: func(ctx context.Context, projectID, userID string, input project.AddMemberInput) (*model.Member, error) {
			if input.Role != "作曲家" {
				t.Errorf("role = %q, want %q", input.Role, "作曲家")
			}
			return &model.Member{
				ID:        "member-1",
				ProjectID: projectID,
				Name:      input.Name,
				Role:      input.Role,
			}, nil
		},
	}

	h := NewProjectHandler(svc)

	body := `{"name":"音楽太郎","role":"作曲家","compensation_type":"paid"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project-1/members", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.AddMember(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got memberResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "member-1" {
		t.Errorf("member ID = %q, want %q", got.ID, "member-1")
	}
}

func TestProjectHandler_AddMember_RoleAlreadyFilled(t *testing.T) {
	svc := &mockProjectService{
		addMemberFn: func(ctx context.Context, projectID, userID string, input project.AddMemberInput) (*model.Member, error) {
			return nil, model.NewRoleAlreadyFilledError(input.Role)
		},
	}

	h := NewProjectHandler(svc)

	body := `{"name":"音楽太郎","role":"作曲家"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project-1/members", strings.NewReader(body))
	req = withUserID(req, "owner-1")
	req = withChiURLParam(req, "id", "project-1")
	w := httptest.NewRecorder()

	h.AddMember(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}
