// Package model はドメインモデルを定義する。
package model

import "time"

// CompensationType は報酬形態を表す。
type CompensationType string

const (
	// CompensationPaid は有償での参加を示す。
	CompensationPaid CompensationType = "paid"
	// CompensationExperience は経験目的（無償）での参加を示す。
	CompensationExperience CompensationType = "experience"
)

// IsValid は報酬形態が定義済みの値かを検証する。
func (c CompensationType) IsValid() bool {
	return c == CompensationPaid || c == CompensationExperience
}

// User はサービス利用ユーザーとそのプロフィールを表す。
// HourlyRateはCompensationTypeがpaidの場合のみ非nil（DB制約でも保証される）。
type User struct {
	ID               string
	Email            string
	Name             string
	Bio              string
	AvatarURL        string
	Skills           []string
	CompensationType CompensationType
	HourlyRate       *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Credential はユーザーのローカル認証情報を表す。
// パスワードはbcryptハッシュとしてのみ保持する。
type Credential struct {
	UserID       string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
