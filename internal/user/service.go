// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// ContentSanitizer は自己紹介文のサニタイズインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// PortfolioDeleter はポートフォリオ作品の一括削除インターフェース。
type PortfolioDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// ApplicationDeleter は応募の一括削除インターフェース。
type ApplicationDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileInvalidator はプロフィールキャッシュの無効化インターフェース。
// profile.Fetcherが実装する。
type ProfileInvalidator interface {
	Invalidate(userID string)
}

// Service はユーザープロフィール管理のサービス層。
// プロフィール更新、人材検索、退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo         repository.UserRepository
	sessionRepo      repository.SessionRepository
	portfolioDeleter PortfolioDeleter
	appDeleter       ApplicationDeleter
	sanitizer        ContentSanitizer

	// ProfileCache はプロフィール書き込み後に無効化するキャッシュ。
	// nilの場合は何もしない。
	ProfileCache ProfileInvalidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	portfolioDeleter PortfolioDeleter,
	appDeleter ApplicationDeleter,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		userRepo:         userRepo,
		sessionRepo:      sessionRepo,
		portfolioDeleter: portfolioDeleter,
		appDeleter:       appDeleter,
		sanitizer:        sanitizer,
	}
}

// GetProfile は指定ユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return user, nil
}

// UpdateProfileInput はプロフィール更新の入力。
type UpdateProfileInput struct {
	Name             string
	Bio              string
	AvatarURL        string
	Skills           []string
	CompensationType model.CompensationType
	HourlyRate       *float64
}

// UpdateProfile はユーザーのプロフィールを更新する。
// 報酬形態がexperienceの場合、希望時給の指定はINVALID_COMPENSATIONエラーとなる。
// 自己紹介文は保存前にサニタイズされる。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if !input.CompensationType.IsValid() {
		return nil, model.NewInvalidCompensationError()
	}
	if input.CompensationType == model.CompensationExperience && input.HourlyRate != nil {
		return nil, model.NewInvalidCompensationError()
	}
	if input.HourlyRate != nil && *input.HourlyRate < 0 {
		return nil, model.NewInvalidCompensationError()
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("表示名は必須です")
	}

	user.Name = name
	user.Bio = s.sanitizer.Sanitize(input.Bio)
	user.AvatarURL = strings.TrimSpace(input.AvatarURL)
	user.Skills = normalizeSkills(input.Skills)
	user.CompensationType = input.CompensationType
	user.HourlyRate = input.HourlyRate
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	// キャッシュ済みの旧プロフィールがセッション解決で返り続けないようにする
	if s.ProfileCache != nil {
		s.ProfileCache.Invalidate(userID)
	}

	slog.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
	)

	return user, nil
}

// SearchTalent は条件に合致するクリエイターを検索する。
func (s *Service) SearchTalent(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("人材検索に失敗しました: %w", err)
	}
	return users, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: ポートフォリオ作品 → 応募 → セッション → ユーザー
// （+ CASCADE: credentials, 所有プロジェクト。参加中プロジェクトのメンバー行はSET NULLで匿名化される）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. ポートフォリオ作品を削除
	if s.portfolioDeleter != nil {
		if err := s.portfolioDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("作品の削除に失敗しました: %w", err)
		}
	}

	// 2. 応募を削除
	if s.appDeleter != nil {
		if err := s.appDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("応募の削除に失敗しました: %w", err)
		}
	}

	// 3. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除（credentials、所有プロジェクトはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	if s.ProfileCache != nil {
		s.ProfileCache.Invalidate(userID)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// normalizeSkills はスキルリストの空白除去と重複排除を行う。
func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	result := make([]string, 0, len(skills))
	for _, skill := range skills {
		trimmed := strings.TrimSpace(skill)
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
