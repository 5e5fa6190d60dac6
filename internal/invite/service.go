// Package invite はプロジェクト招待のドメインロジックを提供する。
package invite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// inviteTTL は招待トークンの有効期間。
const inviteTTL = 7 * 24 * time.Hour

// Service はプロジェクト招待のサービス層。
// トークンは平文をDBに保持せず、SHA-256ハッシュのみを格納する。
// 平文トークンは作成時に一度だけ返され、招待メールのリンクに埋め込まれる。
type Service struct {
	inviteRepo  repository.InviteRepository
	projectRepo repository.ProjectRepository
	memberRepo  repository.MemberRepository
	userRepo    repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	inviteRepo repository.InviteRepository,
	projectRepo repository.ProjectRepository,
	memberRepo repository.MemberRepository,
	userRepo repository.UserRepository,
) *Service {
	return &Service{
		inviteRepo:  inviteRepo,
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
	}
}

// CreateInput は招待作成の入力。
type CreateInput struct {
	Email string
	Role  string
}

// Create はプロジェクトへの招待を作成する。オーナーのみが実行できる。
// 戻り値の2番目は平文トークンで、この呼び出しでのみ取得できる。
func (s *Service) Create(ctx context.Context, projectID, senderID string, input CreateInput) (*model.Invite, string, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, "", model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID != senderID {
		return nil, "", model.NewNotProjectOwnerError()
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := strings.TrimSpace(input.Role)
	if email == "" || role == "" {
		return nil, "", fmt.Errorf("招待先メールアドレスとロールは必須です")
	}

	if !containsRole(project.RolesNeeded, role) {
		return nil, "", model.NewRoleAlreadyFilledError(role)
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("トークンの生成に失敗しました: %w", err)
	}

	now := time.Now()
	invite := &model.Invite{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		SenderID:  senderID,
		Email:     email,
		Role:      role,
		TokenHash: hashToken(token),
		Status:    model.InviteStatusPending,
		ExpiresAt: now.Add(inviteTTL),
		CreatedAt: now,
	}

	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, "", fmt.Errorf("招待の作成に失敗しました: %w", err)
	}

	slog.Info("招待を作成しました",
		slog.String("project_id", projectID),
		slog.String("invite_id", invite.ID),
		slog.String("role", role),
	)

	return invite, token, nil
}

// ListMine はログインユーザー宛の回答待ち招待一覧を返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Invite, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	invites, err := s.inviteRepo.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("招待一覧の取得に失敗しました: %w", err)
	}
	return invites, nil
}

// ResolveToken は招待リンクのトークンから招待を解決する。
// 期限切れまたは使用済みの場合はエラーを返す。
func (s *Service) ResolveToken(ctx context.Context, token string) (*model.Invite, error) {
	if token == "" {
		return nil, model.NewInviteNotFoundError()
	}

	invite, err := s.inviteRepo.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("招待の取得に失敗しました: %w", err)
	}
	if invite == nil {
		return nil, model.NewInviteNotFoundError()
	}
	if err := s.checkUsable(invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// Accept は招待を承諾し、ユーザーをプロジェクトのチームに追加する。
// 招待先メールアドレスとログインユーザーのメールアドレスが一致しなければならない。
// 該当ロールがroles_neededから既に埋まっている場合はROLE_ALREADY_FILLEDを返す。
// 承諾された招待は使用済みとなり再利用できない。
func (s *Service) Accept(ctx context.Context, inviteID, userID string) (*model.Member, error) {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return nil, fmt.Errorf("招待の取得に失敗しました: %w", err)
	}
	if invite == nil {
		return nil, model.NewInviteNotFoundError()
	}
	if err := s.checkUsable(invite); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return nil, model.NewInviteNotFoundError()
	}

	project, err := s.projectRepo.FindByID(ctx, invite.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(invite.ProjectID)
	}
	if !containsRole(project.RolesNeeded, invite.Role) {
		return nil, model.NewRoleAlreadyFilledError(invite.Role)
	}

	member := &model.Member{
		ID:               uuid.New().String(),
		ProjectID:        invite.ProjectID,
		UserID:           &user.ID,
		Name:             user.Name,
		Role:             invite.Role,
		Bio:              user.Bio,
		AvatarURL:        user.AvatarURL,
		CompensationType: user.CompensationType,
		HourlyRate:       user.HourlyRate,
		CreatedAt:        time.Now(),
	}
	if len(user.Skills) > 0 {
		member.Specialty = user.Skills[0]
	}

	if err := s.memberRepo.AddWithRoleFill(ctx, member); err != nil {
		return nil, fmt.Errorf("メンバーの追加に失敗しました: %w", err)
	}

	now := time.Now()
	if err := s.inviteRepo.UpdateStatus(ctx, invite.ID, model.InviteStatusAccepted, &now); err != nil {
		return nil, fmt.Errorf("招待の更新に失敗しました: %w", err)
	}

	slog.Info("招待が承諾されました",
		slog.String("invite_id", invite.ID),
		slog.String("project_id", invite.ProjectID),
		slog.String("user_id", userID),
	)

	return member, nil
}

// Decline は招待を辞退する。
func (s *Service) Decline(ctx context.Context, inviteID, userID string) error {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("招待の取得に失敗しました: %w", err)
	}
	if invite == nil {
		return model.NewInviteNotFoundError()
	}
	if invite.Status != model.InviteStatusPending {
		return model.NewInviteNotFoundError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return model.NewInviteNotFoundError()
	}

	if err := s.inviteRepo.UpdateStatus(ctx, invite.ID, model.InviteStatusDeclined, nil); err != nil {
		return fmt.Errorf("招待の更新に失敗しました: %w", err)
	}

	return nil
}

// checkUsable は招待が承諾可能な状態かを検証する。
func (s *Service) checkUsable(invite *model.Invite) error {
	if invite.Status != model.InviteStatusPending || invite.UsedAt != nil {
		return model.NewInviteNotFoundError()
	}
	if time.Now().After(invite.ExpiresAt) {
		return model.NewInviteExpiredError()
	}
	return nil
}

// generateToken は32バイトの乱数から64文字の16進トークンを生成する。
func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// hashToken はトークンのSHA-256ハッシュを16進文字列で返す。
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
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
