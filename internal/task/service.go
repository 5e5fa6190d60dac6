// Package task はかんばんボードのタスク管理ロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// Service はタスク管理のサービス層。
// タスクの作成・更新はプロジェクトのオーナーまたはチームメンバーのみ実行できる。
type Service struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
) *Service {
	return &Service{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
	}
}

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title       string
	Description string
	AssigneeID  *string
}

// Create は新しいタスクをtodo列の末尾に作成する。
// 担当者を指定する場合、担当者はチームメンバーでなければならない。
func (s *Service) Create(ctx context.Context, projectID, userID string, input CreateInput) (*model.Task, error) {
	if err := s.requireTeamAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("タスク名は必須です")
	}

	if err := s.validateAssignee(ctx, projectID, input.AssigneeID); err != nil {
		return nil, err
	}

	maxPos, err := s.taskRepo.MaxPosition(ctx, projectID, model.TaskStatusTodo)
	if err != nil {
		return nil, fmt.Errorf("表示位置の取得に失敗しました: %w", err)
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		AssigneeID:  input.AssigneeID,
		Status:      model.TaskStatusTodo,
		Position:    maxPos + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return task, nil
}

// CreateBatch は複数タスクをtodo列の末尾にまとめて作成する。
// AI提案によるタスク分解結果の一括取り込みで使用する。
func (s *Service) CreateBatch(ctx context.Context, projectID, userID string, titles []string) ([]*model.Task, error) {
	if err := s.requireTeamAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	maxPos, err := s.taskRepo.MaxPosition(ctx, projectID, model.TaskStatusTodo)
	if err != nil {
		return nil, fmt.Errorf("表示位置の取得に失敗しました: %w", err)
	}

	now := time.Now()
	tasks := make([]*model.Task, 0, len(titles))
	for _, title := range titles {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" {
			continue
		}
		maxPos++
		tasks = append(tasks, &model.Task{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			Title:     trimmed,
			Status:    model.TaskStatusTodo,
			Position:  maxPos,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("取り込むタスクがありません")
	}

	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("タスクの一括作成に失敗しました: %w", err)
	}

	slog.Info("タスクを一括作成しました",
		slog.String("project_id", projectID),
		slog.Int("count", len(tasks)),
	)

	return tasks, nil
}

// UpdateInput はタスク更新の入力。
// Statusが現在と異なる場合は列移動となり、Positionは移動先列内の位置を表す。
type UpdateInput struct {
	Title       string
	Description string
	AssigneeID  *string
	Status      model.TaskStatus
	Position    int
}

// Update はタスクの内容・状態・担当者・表示位置を更新する。
func (s *Service) Update(ctx context.Context, taskID, userID string, input UpdateInput) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	if err := s.requireTeamAccess(ctx, task.ProjectID, userID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("タスク名は必須です")
	}
	if !input.Status.IsValid() {
		return nil, model.NewInvalidTaskStatusError(string(input.Status))
	}
	if input.Position < 0 {
		return nil, fmt.Errorf("表示位置は0以上でなければなりません")
	}

	if err := s.validateAssignee(ctx, task.ProjectID, input.AssigneeID); err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.AssigneeID = input.AssigneeID
	task.Status = input.Status
	task.Position = input.Position
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return task, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, taskID, userID string) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return model.NewTaskNotFoundError(taskID)
	}

	if err := s.requireTeamAccess(ctx, task.ProjectID, userID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	return nil
}

// List はプロジェクトのタスク一覧をボード表示順で返す。
func (s *Service) List(ctx context.Context, projectID, userID string) ([]*model.Task, error) {
	if err := s.requireTeamAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// requireTeamAccess はuserIDがプロジェクトのオーナーまたはメンバーであることを確認する。
func (s *Service) requireTeamAccess(ctx context.Context, projectID, userID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID == userID {
		return nil
	}

	isMember, err := s.memberRepo.ExistsByProjectAndUser(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("メンバー確認に失敗しました: %w", err)
	}
	if !isMember {
		return model.NewProjectNotFoundError(projectID)
	}
	return nil
}

// validateAssignee は担当者がチームメンバーであることを確認する。
// assigneeIDがnilの場合は未割り当てとして許可する。
func (s *Service) validateAssignee(ctx context.Context, projectID string, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}

	isMember, err := s.memberRepo.ExistsByProjectAndUser(ctx, projectID, *assigneeID)
	if err != nil {
		return fmt.Errorf("担当者の確認に失敗しました: %w", err)
	}
	if !isMember {
		return model.NewAssigneeNotMemberError(*assigneeID)
	}
	return nil
}
