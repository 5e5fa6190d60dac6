// Package project はプロジェクト管理のドメインロジックを提供する。
package project

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

const (
	// defaultBudgetTotal は新規プロジェクトの初期予算。
	defaultBudgetTotal = 10000
	// leadRoleName はプロジェクト作成者に自動付与されるロール名。
	leadRoleName = "Project Lead"
)

// ContentSanitizer はプロジェクト説明のサニタイズインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// Service はプロジェクト管理のサービス層。
type Service struct {
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
	userRepo    repository.UserRepository
	sanitizer   ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
	userRepo repository.UserRepository,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// CreateInput はプロジェクト作成の入力。
type CreateInput struct {
	Title       string
	Description string
	IsPublic    bool
	RolesNeeded []string
}

// Create は新しいプロジェクトを作成する。
// 作成者はProject Leadとして自動的にチームへ参加する。
// 初期状態はplanning、予算は10000/0で初期化される。
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*model.Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("タイトルは必須です")
	}

	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := time.Now()
	project := &model.Project{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		IsPublic:    input.IsPublic,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		Status:      model.ProjectStatusPlanning,
		RolesNeeded: normalizeRoles(input.RolesNeeded),
		BudgetTotal: defaultBudgetTotal,
		BudgetSpent: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lead := &model.Member{
		ID:               uuid.New().String(),
		ProjectID:        project.ID,
		UserID:           &owner.ID,
		Name:             owner.Name,
		Role:             leadRoleName,
		Bio:              owner.Bio,
		AvatarURL:        owner.AvatarURL,
		CompensationType: owner.CompensationType,
		HourlyRate:       owner.HourlyRate,
		CreatedAt:        now,
	}
	if len(owner.Skills) > 0 {
		lead.Specialty = owner.Skills[0]
	}

	if err := s.projectRepo.CreateWithLead(ctx, project, lead); err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	slog.Info("プロジェクトを作成しました",
		slog.String("project_id", project.ID),
		slog.String("owner_id", ownerID),
	)

	return project, nil
}

// Get はプロジェクトを取得する。
// 非公開プロジェクトはオーナーまたはメンバーのみ閲覧できる。
func (s *Service) Get(ctx context.Context, projectID, viewerID string) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}

	if !project.IsPublic && project.OwnerID != viewerID {
		isMember, err := s.memberRepo.ExistsByProjectAndUser(ctx, projectID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("メンバー確認に失敗しました: %w", err)
		}
		if !isMember {
			return nil, model.NewProjectNotFoundError(projectID)
		}
	}

	return project, nil
}

// ListMine はユーザーが所有または参加しているプロジェクトを一覧する。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// ListPublic は公開プロジェクトを一覧する。statusは省略可能なフィルタ。
func (s *Service) ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("無効なステータスです: %s", status)
	}
	projects, err := s.projectRepo.ListPublic(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("公開プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// UpdateInput はプロジェクト更新の入力。
type UpdateInput struct {
	Title       string
	Description string
	IsPublic    bool
	Status      model.ProjectStatus
	RolesNeeded []string
	BudgetTotal float64
}

// Update はプロジェクトを更新する。オーナーのみが実行できる。
func (s *Service) Update(ctx context.Context, projectID, userID string, input UpdateInput) (*model.Project, error) {
	project, err := s.findOwned(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("タイトルは必須です")
	}
	if !input.Status.IsValid() {
		return nil, fmt.Errorf("無効なステータスです: %s", input.Status)
	}
	if input.BudgetTotal < 0 {
		return nil, model.NewInvalidAmountError()
	}

	project.Title = title
	project.Description = s.sanitizer.Sanitize(input.Description)
	project.IsPublic = input.IsPublic
	project.Status = input.Status
	project.RolesNeeded = normalizeRoles(input.RolesNeeded)
	project.BudgetTotal = input.BudgetTotal
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}

	return project, nil
}

// Delete はプロジェクトを削除する。オーナーのみが実行できる。
// タスク、経費、招待、応募はCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.findOwned(ctx, projectID, userID); err != nil {
		return err
	}

	if err := s.projectRepo.DeleteByID(ctx, projectID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	slog.Info("プロジェクトを削除しました",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
	)

	return nil
}

// AddMemberInput はチームメンバー追加の入力。
type AddMemberInput struct {
	UserID           *string
	Name             string
	Role             string
	Specialty        string
	Bio              string
	AvatarURL        string
	CompensationType model.CompensationType
	HourlyRate       *float64
}

// AddMember はプロジェクトにメンバーを追加する。オーナーのみが実行できる。
// 追加されたロールはroles_neededから同一トランザクションで除去される。
func (s *Service) AddMember(ctx context.Context, projectID, userID string, input AddMemberInput) (*model.Member, error) {
	if _, err := s.findOwned(ctx, projectID, userID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	role := strings.TrimSpace(input.Role)
	if name == "" || role == "" {
		return nil, fmt.Errorf("メンバー名とロールは必須です")
	}
	if input.CompensationType != "" && !input.CompensationType.IsValid() {
		return nil, model.NewInvalidCompensationError()
	}

	member := &model.Member{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		UserID:           input.UserID,
		Name:             name,
		Role:             role,
		Specialty:        strings.TrimSpace(input.Specialty),
		Bio:              s.sanitizer.Sanitize(input.Bio),
		AvatarURL:        strings.TrimSpace(input.AvatarURL),
		CompensationType: input.CompensationType,
		HourlyRate:       input.HourlyRate,
		CreatedAt:        time.Now(),
	}
	if member.CompensationType == "" {
		member.CompensationType = model.CompensationExperience
	}

	if err := s.memberRepo.AddWithRoleFill(ctx, member); err != nil {
		return nil, fmt.Errorf("メンバーの追加に失敗しました: %w", err)
	}

	slog.Info("チームメンバーを追加しました",
		slog.String("project_id", projectID),
		slog.String("role", role),
	)

	return member, nil
}

// ListMembers はプロジェクトのチームメンバーを一覧する。
func (s *Service) ListMembers(ctx context.Context, projectID, viewerID string) ([]*model.Member, error) {
	if _, err := s.Get(ctx, projectID, viewerID); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("メンバー一覧の取得に失敗しました: %w", err)
	}
	return members, nil
}

// findOwned はプロジェクトを取得し、userIDがオーナーであることを確認する。
func (s *Service) findOwned(ctx context.Context, projectID, userID string) (*model.Project, error) {
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

// normalizeRoles はロールリストの空白除去と重複排除を行う。
func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		trimmed := strings.TrimSpace(role)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
