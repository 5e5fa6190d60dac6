package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// TextSanitizer はAI出力からHTMLタグを除去するインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Service はAI提案機能のビジネスロジックを提供する。
type Service struct {
	chatter     Chatter
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
	artJobRepo  repository.ArtJobRepository
	sanitizer   TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	chatter Chatter,
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
	artJobRepo repository.ArtJobRepository,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		chatter:     chatter,
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		artJobRepo:  artJobRepo,
		sanitizer:   sanitizer,
	}
}

// ConceptInput は企画提案のリクエスト。
// ProjectIDを指定すると、生成された画像プロンプトで
// コンセプトアート生成ジョブをキューに登録する。
type ConceptInput struct {
	Idea      string
	ProjectID string
}

// ConceptSuggestion はAIが生成したプロジェクト企画。
type ConceptSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	RolesNeeded []string `json:"roles_needed"`
	ImagePrompt string   `json:"image_prompt"`
	ArtJobID    string   `json:"art_job_id,omitempty"`
}

const conceptSystemPrompt = `You are a creative director for collaborative media projects.
Given a user's raw idea, flesh it out into a compelling project concept.
Respond with a single JSON object and nothing else, using exactly these keys:
{"title": "a creative, catchy project title",
 "description": "a detailed one-paragraph description covering premise, tone and style",
 "roles_needed": ["3-5 initial creative roles, e.g. Concept Artist, Sound Designer"],
 "image_prompt": "a rich single-sentence prompt for an image generation AI describing scene, style, lighting and mood"}`

// SuggestConcept はアイデアからプロジェクト企画を生成する。
// ProjectID指定時はオーナー確認の上でコンセプトアート生成ジョブを登録する。
func (s *Service) SuggestConcept(ctx context.Context, userID string, input ConceptInput) (*ConceptSuggestion, error) {
	idea := strings.TrimSpace(input.Idea)
	if idea == "" {
		return nil, fmt.Errorf("アイデアは必須です")
	}

	var project *model.Project
	if input.ProjectID != "" {
		var err error
		project, err = s.findOwnedProject(ctx, input.ProjectID, userID)
		if err != nil {
			return nil, err
		}
	}

	content, err := s.chatter.Chat(ctx, conceptSystemPrompt, fmt.Sprintf("User's idea: %q", idea))
	if err != nil {
		slog.Error("企画提案の生成に失敗しました", slog.String("error", err.Error()))
		return nil, model.NewSuggestionFailedError("AIサービスへの接続に失敗しました")
	}

	var concept ConceptSuggestion
	if err := json.Unmarshal(extractJSON(content), &concept); err != nil {
		return nil, model.NewSuggestionFailedError("AI応答の解析に失敗しました")
	}

	concept.Title = s.sanitizer.SanitizeText(concept.Title)
	concept.Description = s.sanitizer.SanitizeText(concept.Description)
	concept.ImagePrompt = s.sanitizer.SanitizeText(concept.ImagePrompt)
	for i, role := range concept.RolesNeeded {
		concept.RolesNeeded[i] = s.sanitizer.SanitizeText(role)
	}
	if concept.Title == "" || concept.Description == "" {
		return nil, model.NewSuggestionFailedError("AI応答に必須項目が含まれていません")
	}

	if project != nil && concept.ImagePrompt != "" {
		now := time.Now()
		job := &model.ArtJob{
			ID:            uuid.New().String(),
			ProjectID:     project.ID,
			Prompt:        concept.ImagePrompt,
			Status:        model.ArtJobStatusQueued,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.artJobRepo.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("アート生成ジョブの登録に失敗しました: %w", err)
		}
		concept.ArtJobID = job.ID
		slog.Info("コンセプトアート生成ジョブを登録しました",
			slog.String("job_id", job.ID),
			slog.String("project_id", project.ID))
	}

	return &concept, nil
}

// TaskSuggestion はAIが生成したタスク案。
type TaskSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

const tasksSystemPrompt = `You are an expert producer for creative projects.
Break the given high-level goal down into smaller, actionable tasks in the
context of the project description. Do not assign tasks to anyone.
Respond with a single JSON object and nothing else:
{"tasks": [{"title": "concise actionable title", "description": "brief description"}]}`

// SuggestTasks は目標をタスク一覧に分解する。
// プロジェクトのオーナーまたはメンバーのみ利用できる。
func (s *Service) SuggestTasks(ctx context.Context, projectID, userID, goal string) ([]TaskSuggestion, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("目標は必須です")
	}
	project, err := s.findAccessibleProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	userPrompt := fmt.Sprintf("Project description: %q\n\nHigh-level goal: %q", project.Description, goal)
	content, err := s.chatter.Chat(ctx, tasksSystemPrompt, userPrompt)
	if err != nil {
		slog.Error("タスク分解の生成に失敗しました", slog.String("error", err.Error()))
		return nil, model.NewSuggestionFailedError("AIサービスへの接続に失敗しました")
	}

	var resp struct {
		Tasks []TaskSuggestion `json:"tasks"`
	}
	if err := json.Unmarshal(extractJSON(content), &resp); err != nil {
		return nil, model.NewSuggestionFailedError("AI応答の解析に失敗しました")
	}

	tasks := make([]TaskSuggestion, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		title := s.sanitizer.SanitizeText(t.Title)
		if title == "" {
			continue
		}
		tasks = append(tasks, TaskSuggestion{
			Title:       title,
			Description: s.sanitizer.SanitizeText(t.Description),
		})
	}
	if len(tasks) == 0 {
		return nil, model.NewSuggestionFailedError("タスク案を生成できませんでした")
	}
	return tasks, nil
}

// Candidate はAIが生成した架空のコラボレーター候補。
type Candidate struct {
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Specialty        string  `json:"specialty"`
	Bio              string  `json:"bio"`
	CompensationType string  `json:"compensation_type"`
	HourlyRate       float64 `json:"hourly_rate"`
}

// RoleCandidates は募集ロールごとの候補者一覧。
type RoleCandidates struct {
	Role       string      `json:"role"`
	Candidates []Candidate `json:"candidates"`
}

const collaboratorsSystemPrompt = `You are an expert talent scout for creative projects.
Given a project description and its missing roles, generate 2-3 compelling,
realistic fictional candidates per role. Some candidates should be professionals
seeking "paid" work with an hourly rate between 40 and 120, others talented
newcomers seeking "experience".
Respond with a single JSON object and nothing else:
{"results": [{"role": "role name", "candidates": [{"name": "...", "role": "...",
 "specialty": "...", "bio": "2-3 sentences", "compensation_type": "paid or experience",
 "hourly_rate": 0}]}]}`

// SuggestCollaborators は募集中ロールに対する架空の候補者一覧を生成する。
// プロジェクトオーナーのみ利用できる。
func (s *Service) SuggestCollaborators(ctx context.Context, projectID, userID string) ([]RoleCandidates, error) {
	project, err := s.findOwnedProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if len(project.RolesNeeded) == 0 {
		return nil, fmt.Errorf("募集中のロールがありません")
	}

	userPrompt := fmt.Sprintf("Project description: %q\n\nMissing roles: %s",
		project.Description, strings.Join(project.RolesNeeded, ", "))
	content, err := s.chatter.Chat(ctx, collaboratorsSystemPrompt, userPrompt)
	if err != nil {
		slog.Error("候補者提案の生成に失敗しました", slog.String("error", err.Error()))
		return nil, model.NewSuggestionFailedError("AIサービスへの接続に失敗しました")
	}

	var resp struct {
		Results []RoleCandidates `json:"results"`
	}
	if err := json.Unmarshal(extractJSON(content), &resp); err != nil {
		return nil, model.NewSuggestionFailedError("AI応答の解析に失敗しました")
	}

	for i := range resp.Results {
		resp.Results[i].Role = s.sanitizer.SanitizeText(resp.Results[i].Role)
		for j := range resp.Results[i].Candidates {
			c := &resp.Results[i].Candidates[j]
			c.Name = s.sanitizer.SanitizeText(c.Name)
			c.Role = s.sanitizer.SanitizeText(c.Role)
			c.Specialty = s.sanitizer.SanitizeText(c.Specialty)
			c.Bio = s.sanitizer.SanitizeText(c.Bio)
		}
	}
	return resp.Results, nil
}

// findOwnedProject はプロジェクトを取得し、userIDがオーナーであることを確認する。
func (s *Service) findOwnedProject(ctx context.Context, projectID, userID string) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID != userID {
		return nil, model.NewNotProjectOwnerError()
	}
	return project, nil
}

// findAccessibleProject はプロジェクトを取得し、userIDがチームの一員であることを確認する。
func (s *Service) findAccessibleProject(ctx context.Context, projectID, userID string) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID == userID {
		return project, nil
	}
	isMember, err := s.memberRepo.ExistsByProjectAndUser(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("メンバー確認に失敗しました: %w", err)
	}
	if !isMember {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return project, nil
}

// extractJSON はチャット応答からJSON本体を取り出す。
// モデルがコードフェンスや前置きを付けて返す場合に対応する。
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	start := strings.IndexAny(content, "{[")
	if start > 0 {
		content = content[start:]
	}
	return []byte(content)
}
