// Package portfolio はポートフォリオ作品管理のドメインロジックを提供する。
package portfolio

import (
	"context"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hitoshi/atelier/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

const (
	// DefaultProbeTimeout はHEADリクエストのデフォルトタイムアウト。
	DefaultProbeTimeout = 10 * time.Second
	// DefaultProbeMaxResponse はHEADレスポンスのデフォルト最大サイズ。
	DefaultProbeMaxResponse = 1 * 1024 * 1024
)

// MediaClassifier は作品URLのメディア種別（image/video）判定機能を提供する。
// SSRF防止付きクライアントでHEADリクエストを送信し、Content-Typeで判定する。
// HEADが失敗した場合やContent-Typeが不明な場合はURL拡張子で判定する。
type MediaClassifier struct {
	ssrfGuard    SSRFValidator
	probeTimeout time.Duration
	probeMaxSize int64
}

// NewMediaClassifier はデフォルト設定のMediaClassifierを生成する。
func NewMediaClassifier(ssrfGuard SSRFValidator) *MediaClassifier {
	return NewMediaClassifierWithProbe(ssrfGuard, DefaultProbeTimeout, DefaultProbeMaxResponse)
}

// NewMediaClassifierWithProbe はHEADリクエストのタイムアウトと
// 最大レスポンスサイズを指定してMediaClassifierを生成する。
func NewMediaClassifierWithProbe(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *MediaClassifier {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if maxSize <= 0 {
		maxSize = DefaultProbeMaxResponse
	}
	return &MediaClassifier{
		ssrfGuard:    ssrfGuard,
		probeTimeout: timeout,
		probeMaxSize: maxSize,
	}
}

// videoExtensions は動画として認識するURL拡張子。
var videoExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".m4v"}

// imageExtensions は静止画として認識するURL拡張子。
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".avif"}

// Classify は作品URLのメディア種別を判定する。
// HEADレスポンスのContent-Typeを優先し、取得できない場合は拡張子で判定する。
// どちらでも判定できない場合はimageを返す。
func (c *MediaClassifier) Classify(ctx context.Context, mediaURL string) model.MediaType {
	if mediaType, ok := c.classifyByContentType(ctx, mediaURL); ok {
		return mediaType
	}
	return classifyByExtension(mediaURL)
}

// classifyByContentType はHEADリクエストのContent-Typeでメディア種別を判定する。
func (c *MediaClassifier) classifyByContentType(ctx context.Context, mediaURL string) (model.MediaType, bool) {
	client := c.ssrfGuard.NewSafeClient(c.probeTimeout, c.probeMaxSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return "", false
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return "", false
	}

	switch {
	case strings.HasPrefix(mediaType, "video/"):
		return model.MediaTypeVideo, true
	case strings.HasPrefix(mediaType, "image/"):
		return model.MediaTypeImage, true
	}
	return "", false
}

// classifyByExtension はURLの拡張子でメディア種別を判定する。
func classifyByExtension(mediaURL string) model.MediaType {
	// クエリ文字列を除いたパス部分の拡張子のみを見る
	trimmed := mediaURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	ext := strings.ToLower(path.Ext(trimmed))

	for _, videoExt := range videoExtensions {
		if ext == videoExt {
			return model.MediaTypeVideo
		}
	}
	for _, imageExt := range imageExtensions {
		if ext == imageExt {
			return model.MediaTypeImage
		}
	}
	return model.MediaTypeImage
}
