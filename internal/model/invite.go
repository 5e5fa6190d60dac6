// Package model はドメインモデルを定義する。
package model

import "time"

// InviteStatus は招待の状態を表す。
type InviteStatus string

const (
	// InviteStatusPending は回答待ちを示す。
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted は承諾済みを示す。
	InviteStatusAccepted InviteStatus = "accepted"
	// InviteStatusDeclined は辞退済みを示す。
	InviteStatusDeclined InviteStatus = "declined"
)

// Invite はプロジェクトへの参加招待を表す。
// トークンは平文では保持せず、SHA-256ハッシュのみをTokenHashに格納する。
// 承諾時にUsedAtが設定され、同一トークンの再利用は拒否される。
type Invite struct {
	ID          string
	ProjectID   string
	SenderID    string
	Email       string
	Role        string
	TokenHash   string
	Status      InviteStatus
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
	ProjectName string // 一覧表示用にJOINで取得
	SenderName  string // 一覧表示用にJOINで取得
}

// Application は公開プロジェクトの募集ロールへの応募を表す。
// 報酬条件は応募時点のスナップショットとして保持する。
type Application struct {
	ID               string
	ProjectID        string
	ApplicantID      string
	Role             string
	Message          string
	CompensationType CompensationType
	HourlyRate       *float64
	CreatedAt        time.Time
	ApplicantName    string // 一覧表示用にJOINで取得
	ApplicantAvatar  string // 一覧表示用にJOINで取得
}
