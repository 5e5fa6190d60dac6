package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/atelier/internal/suggest"
)

// SuggestServiceInterface はAI提案ハンドラーが必要とするサービスインターフェース。
type SuggestServiceInterface interface {
	SuggestConcept(ctx context.Context, userID string, input suggest.ConceptInput) (*suggest.ConceptSuggestion, error)
	SuggestTasks(ctx context.Context, projectID, userID, goal string) ([]suggest.TaskSuggestion, error)
	SuggestCollaborators(ctx context.Context, projectID, userID string) ([]suggest.RoleCandidates, error)
}

// SuggestionRecorder はAI提案の実行回数を記録する。
type SuggestionRecorder interface {
	RecordSuggestion(kind string)
}

// SuggestHandler は生成AIによる提案機能のHTTPハンドラー。
type SuggestHandler struct {
	service SuggestServiceInterface

	// Metrics が設定されている場合、提案種別ごとの実行回数を記録する。
	Metrics SuggestionRecorder
}

// NewSuggestHandler はSuggestHandlerを生成する。
func NewSuggestHandler(service SuggestServiceInterface) *SuggestHandler {
	return &SuggestHandler{service: service}
}

// suggestConceptRequest は企画提案リクエストのボディ。
type suggestConceptRequest struct {
	Idea      string `json:"idea"`
	ProjectID string `json:"project_id"`
}

// suggestTasksRequest はタスク分解リクエストのボディ。
type suggestTasksRequest struct {
	Goal string `json:"goal"`
}

// SuggestConcept はアイデアからプロジェクト企画を生成する。
// POST /api/suggest/concept
func (h *SuggestHandler) SuggestConcept(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req suggestConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	concept, err := h.service.SuggestConcept(r.Context(), userID, suggest.ConceptInput{
		Idea:      req.Idea,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordSuggestion("concept")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(concept)
}

// SuggestTasks はプロジェクトの目標をタスクに分解する。
// POST /api/projects/{id}/suggest/tasks
func (h *SuggestHandler) SuggestTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	var req suggestTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	tasks, err := h.service.SuggestTasks(r.Context(), projectID, userID, req.Goal)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordSuggestion("tasks")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]suggest.TaskSuggestion{"tasks": tasks})
}

// SuggestCollaborators は募集中のロールに対する候補者案を生成する。
// POST /api/projects/{id}/suggest/collaborators
func (h *SuggestHandler) SuggestCollaborators(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	projectID := chi.URLParam(r, "id")

	results, err := h.service.SuggestCollaborators(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordSuggestion("collaborators")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]suggest.RoleCandidates{"results": results})
}

func (h *SuggestHandler) recordSuggestion(kind string) {
	if h.Metrics != nil {
		h.Metrics.RecordSuggestion(kind)
	}
}
