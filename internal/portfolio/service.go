package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// MediaTypeClassifier は作品URLのメディア種別判定インターフェース。
type MediaTypeClassifier interface {
	Classify(ctx context.Context, mediaURL string) model.MediaType
}

// ContentSanitizer は作品説明のサニタイズインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// URLValidator は作品URLのSSRF検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はポートフォリオ作品管理のサービス層。
type Service struct {
	portfolioRepo repository.PortfolioRepository
	classifier    MediaTypeClassifier
	validator     URLValidator
	sanitizer     ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	portfolioRepo repository.PortfolioRepository,
	classifier MediaTypeClassifier,
	validator URLValidator,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		portfolioRepo: portfolioRepo,
		classifier:    classifier,
		validator:     validator,
		sanitizer:     sanitizer,
	}
}

// CreateInput は作品登録の入力。
type CreateInput struct {
	Title       string
	Description string
	MediaURL    string
	Category    string
}

// Create は新しい作品を登録する。
// 作品URLはSSRF検証を通過しなければならず、メディア種別は自動判定される。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.PortfolioItem, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("作品名は必須です")
	}

	mediaURL, err := s.validateMediaURL(input.MediaURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item := &model.PortfolioItem{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		MediaURL:    mediaURL,
		MediaType:   s.classifier.Classify(ctx, mediaURL),
		Category:    strings.TrimSpace(input.Category),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.portfolioRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("作品の登録に失敗しました: %w", err)
	}

	slog.Info("ポートフォリオ作品を登録しました",
		slog.String("user_id", userID),
		slog.String("item_id", item.ID),
		slog.String("media_type", string(item.MediaType)),
	)

	return item, nil
}

// Get は作品を取得する。
func (s *Service) Get(ctx context.Context, itemID string) (*model.PortfolioItem, error) {
	item, err := s.portfolioRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	if item == nil {
		return nil, model.NewPortfolioNotFoundError(itemID)
	}
	return item, nil
}

// UpdateInput は作品更新の入力。
type UpdateInput struct {
	Title       string
	Description string
	MediaURL    string
	Category    string
}

// Update は作品情報を更新する。所有者のみが実行できる。
// URLが変更された場合はメディア種別を再判定する。
func (s *Service) Update(ctx context.Context, itemID, userID string, input UpdateInput) (*model.PortfolioItem, error) {
	item, err := s.findOwned(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("作品名は必須です")
	}

	mediaURL, err := s.validateMediaURL(input.MediaURL)
	if err != nil {
		return nil, err
	}

	if mediaURL != item.MediaURL {
		item.MediaType = s.classifier.Classify(ctx, mediaURL)
	}

	item.Title = title
	item.Description = s.sanitizer.Sanitize(input.Description)
	item.MediaURL = mediaURL
	item.Category = strings.TrimSpace(input.Category)
	item.UpdatedAt = time.Now()

	if err := s.portfolioRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("作品の更新に失敗しました: %w", err)
	}

	return item, nil
}

// Delete は作品を削除する。所有者のみが実行できる。
func (s *Service) Delete(ctx context.Context, itemID, userID string) error {
	if _, err := s.findOwned(ctx, itemID, userID); err != nil {
		return err
	}

	if err := s.portfolioRepo.DeleteByID(ctx, itemID); err != nil {
		return fmt.Errorf("作品の削除に失敗しました: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの作品一覧を作成日降順で返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.PortfolioItem, error) {
	items, err := s.portfolioRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("作品一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// findOwned は作品を取得し、userIDが所有者であることを確認する。
// 他人の作品はPORTFOLIO_NOT_FOUNDとして扱う。
func (s *Service) findOwned(ctx context.Context, itemID, userID string) (*model.PortfolioItem, error) {
	item, err := s.portfolioRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("作品の取得に失敗しました: %w", err)
	}
	if item == nil || item.UserID != userID {
		return nil, model.NewPortfolioNotFoundError(itemID)
	}
	return item, nil
}

// validateMediaURL は作品URLの構文とSSRF安全性を検証する。
func (s *Service) validateMediaURL(rawURL string) (string, error) {
	mediaURL := strings.TrimSpace(rawURL)
	if mediaURL == "" {
		return "", model.NewInvalidURLError("URLが指定されていません")
	}

	parsed, err := url.Parse(mediaURL)
	if err != nil || parsed.Host == "" {
		return "", model.NewInvalidURLError("URLの形式が不正です")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", model.NewInvalidURLError("http/https以外のスキームは使用できません")
	}

	if err := s.validator.ValidateURL(mediaURL); err != nil {
		return "", model.NewSSRFBlockedError()
	}

	return mediaURL, nil
}
