// Package application は公開プロジェクトへの応募のドメインロジックを提供する。
package application

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

// ContentSanitizer は応募メッセージのサニタイズインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// Service は応募管理のサービス層。
type Service struct {
	appRepo     repository.ApplicationRepository
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
	userRepo    repository.UserRepository
	sanitizer   ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	appRepo repository.ApplicationRepository,
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
	userRepo repository.UserRepository,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		appRepo:     appRepo,
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// ApplyInput は応募の入力。
type ApplyInput struct {
	Role    string
	Message string
}

// Apply は公開プロジェクトの募集ロールに応募する。
// 応募者の報酬条件は応募時点のスナップショットとして保持される。
func (s *Service) Apply(ctx context.Context, projectID, applicantID string, input ApplyInput) (*model.Application, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil || !project.IsPublic {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID == applicantID {
		return nil, fmt.Errorf("自分のプロジェクトには応募できません")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		return nil, fmt.Errorf("応募するロールは必須です")
	}
	if !containsRole(project.RolesNeeded, role) {
		return nil, model.NewRoleAlreadyFilledError(role)
	}

	applicant, err := s.userRepo.FindByID(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if applicant == nil {
		return nil, model.NewUserNotFoundError()
	}

	app := &model.Application{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		ApplicantID:      applicantID,
		Role:             role,
		Message:          s.sanitizer.Sanitize(input.Message),
		CompensationType: applicant.CompensationType,
		HourlyRate:       applicant.HourlyRate,
		CreatedAt:        time.Now(),
	}

	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("応募の作成に失敗しました: %w", err)
	}

	slog.Info("応募を受け付けました",
		slog.String("project_id", projectID),
		slog.String("applicant_id", applicantID),
		slog.String("role", role),
	)

	return app, nil
}

// ListForProject はプロジェクト宛の応募一覧を返す。オーナーのみが閲覧できる。
func (s *Service) ListForProject(ctx context.Context, projectID, userID string) ([]*model.Application, error) {
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

	apps, err := s.appRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}
	return apps, nil
}

// Approve は応募を承認し、応募者をチームに追加する。オーナーのみが実行できる。
// ロールはroles_neededから取り除かれ、応募は削除される。
func (s *Service) Approve(ctx context.Context, applicationID, userID string) (*model.Member, error) {
	app, project, err := s.findOwnedApplication(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}

	if !containsRole(project.RolesNeeded, app.Role) {
		return nil, model.NewRoleAlreadyFilledError(app.Role)
	}

	applicant, err := s.userRepo.FindByID(ctx, app.ApplicantID)
	if err != nil {
		return nil, fmt.Errorf("応募者の取得に失敗しました: %w", err)
	}
	if applicant == nil {
		return nil, model.NewUserNotFoundError()
	}

	member := &model.Member{
		ID:               uuid.New().String(),
		ProjectID:        app.ProjectID,
		UserID:           &applicant.ID,
		Name:             applicant.Name,
		Role:             app.Role,
		Bio:              applicant.Bio,
		AvatarURL:        applicant.AvatarURL,
		CompensationType: app.CompensationType,
		HourlyRate:       app.HourlyRate,
		CreatedAt:        time.Now(),
	}
	if len(applicant.Skills) > 0 {
		member.Specialty = applicant.Skills[0]
	}

	if err := s.memberRepo.AddWithRoleFill(ctx, member); err != nil {
		return nil, fmt.Errorf("メンバーの追加に失敗しました: %w", err)
	}

	if err := s.appRepo.DeleteByID(ctx, app.ID); err != nil {
		return nil, fmt.Errorf("応募の削除に失敗しました: %w", err)
	}

	slog.Info("応募を承認しました",
		slog.String("application_id", app.ID),
		slog.String("project_id", app.ProjectID),
		slog.String("applicant_id", app.ApplicantID),
	)

	return member, nil
}

// Decline は応募を辞退（不採用）にする。オーナーのみが実行できる。
func (s *Service) Decline(ctx context.Context, applicationID, userID string) error {
	app, _, err := s.findOwnedApplication(ctx, applicationID, userID)
	if err != nil {
		return err
	}

	if err := s.appRepo.DeleteByID(ctx, app.ID); err != nil {
		return fmt.Errorf("応募の削除に失敗しました: %w", err)
	}

	return nil
}

// findOwnedApplication は応募と所属プロジェクトを取得し、userIDがオーナーであることを確認する。
func (s *Service) findOwnedApplication(ctx context.Context, applicationID, userID string) (*model.Application, *model.Project, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if app == nil {
		return nil, nil, model.NewApplicationNotFoundError(applicationID)
	}

	project, err := s.projectRepo.FindByID(ctx, app.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, nil, model.NewProjectNotFoundError(app.ProjectID)
	}
	if project.OwnerID != userID {
		return nil, nil, model.NewNotProjectOwnerError()
	}

	return app, project, nil
}

// containsRole はロールが募集中ロールのリストに含まれるかを返す。
func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
