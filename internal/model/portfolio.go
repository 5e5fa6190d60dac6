// Package model はドメインモデルを定義する。
package model

import "time"

// MediaType はポートフォリオ作品のメディア種別を表す。
type MediaType string

const (
	// MediaTypeImage は静止画を示す。
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo は動画を示す。
	MediaTypeVideo MediaType = "video"
)

// IsValid はメディア種別が定義済みの値かを検証する。
func (m MediaType) IsValid() bool {
	return m == MediaTypeImage || m == MediaTypeVideo
}

// PortfolioItem はユーザーのポートフォリオ作品を表す。
type PortfolioItem struct {
	ID          string
	UserID      string
	Title       string
	Description string
	MediaURL    string
	MediaType   MediaType
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
