// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/atelier/internal/model"
)

// TalentFilter はユーザー検索（タレント検索）の絞り込み条件。
// ゼロ値のフィールドは条件として使用しない。
type TalentFilter struct {
	Skill            string
	CompensationType model.CompensationType
	MaxHourlyRate    float64
}

// UserRepository はユーザーとプロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithCredential はユーザーと認証情報を同一トランザクションで作成する。
	CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error

	// FindCredential は指定ユーザーの認証情報を取得する。見つからない場合はnilを返す。
	FindCredential(ctx context.Context, userID string) (*model.Credential, error)

	// Update はプロフィールを更新する。
	Update(ctx context.Context, user *model.User) error

	// List は絞り込み条件に一致するユーザー一覧を返す。
	List(ctx context.Context, filter TalentFilter) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するcredentialsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// CreateWithLead はプロジェクトと作成者のリードメンバーを同一トランザクションで作成する。
	CreateWithLead(ctx context.Context, project *model.Project, lead *model.Member) error

	// Update はプロジェクト情報を更新する。
	Update(ctx context.Context, project *model.Project) error

	// DeleteByID は指定IDのプロジェクトを削除する。
	// 関連するmembers、tasks、expenses、applications、invites、art_jobsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListByUserID はユーザーが所有または参加しているプロジェクト一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Project, error)

	// ListPublic は公開プロジェクト一覧を返す。statusがゼロ値以外の場合は絞り込む。
	ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error)

	// UpdateImageURL はプロジェクトのコンセプトアートURLを更新する。
	UpdateImageURL(ctx context.Context, projectID, imageURL string) error
}

// MemberRepository はプロジェクトメンバーの永続化インターフェース。
type MemberRepository interface {
	// ListByProjectID はプロジェクトのメンバー一覧を返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Member, error)

	// ExistsByProjectAndUser は指定ユーザーがプロジェクトのメンバーかを返す。
	ExistsByProjectAndUser(ctx context.Context, projectID, userID string) (bool, error)

	// AddWithRoleFill はメンバーを追加し、同一トランザクションで
	// プロジェクトのroles_neededから該当ロールを取り除く。
	AddWithRoleFill(ctx context.Context, member *model.Member) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// CreateBatch は複数タスクを同一トランザクションで作成する。
	// AI提案によるタスク一括取り込みで使用する。
	CreateBatch(ctx context.Context, tasks []*model.Task) error

	// Update はタスクの状態・担当者・表示位置を更新する。
	Update(ctx context.Context, task *model.Task) error

	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id string) error

	// ListByProjectID はプロジェクトのタスク一覧をstatus、position順で返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Task, error)

	// MaxPosition は指定プロジェクト・状態列内の最大positionを返す。
	// タスクが存在しない場合は-1を返す。
	MaxPosition(ctx context.Context, projectID string, status model.TaskStatus) (int, error)
}

// ExpenseRepository は経費データの永続化インターフェース。
type ExpenseRepository interface {
	// CreateWithBudgetUpdate は経費を作成し、同一トランザクションで
	// プロジェクトのbudget_spentを加算する。
	CreateWithBudgetUpdate(ctx context.Context, expense *model.Expense) error

	// ListByProjectID はプロジェクトの経費一覧を日付降順で返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Expense, error)

	// SumByProjectID はプロジェクトの経費合計を返す。
	SumByProjectID(ctx context.Context, projectID string) (float64, error)
}

// PortfolioRepository はポートフォリオ作品の永続化インターフェース。
type PortfolioRepository interface {
	// FindByID は指定IDの作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PortfolioItem, error)

	// Create は作品を作成する。
	Create(ctx context.Context, item *model.PortfolioItem) error

	// Update は作品情報を更新する。
	Update(ctx context.Context, item *model.PortfolioItem) error

	// DeleteByID は指定IDの作品を削除する。
	DeleteByID(ctx context.Context, id string) error

	// ListByUserID はユーザーの作品一覧を作成日降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.PortfolioItem, error)

	// DeleteByUserID はユーザーの全作品を削除する。退会処理で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// InviteRepository は招待データの永続化インターフェース。
type InviteRepository interface {
	// Create は招待を作成する。
	Create(ctx context.Context, invite *model.Invite) error

	// FindByID は指定IDの招待を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Invite, error)

	// FindByTokenHash はトークンハッシュで招待を検索する。見つからない場合はnilを返す。
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error)

	// ListByEmail は指定メールアドレス宛の回答待ち招待一覧を返す。
	// プロジェクト名と送信者名をJOINで付与する。
	ListByEmail(ctx context.Context, email string) ([]*model.Invite, error)

	// UpdateStatus は招待の状態を更新する。承諾時はused_atも設定する。
	UpdateStatus(ctx context.Context, id string, status model.InviteStatus, usedAt *time.Time) error

	// DeleteExpired は期限切れの回答待ち招待を削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ApplicationRepository は応募データの永続化インターフェース。
type ApplicationRepository interface {
	// Create は応募を作成する。
	Create(ctx context.Context, app *model.Application) error

	// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// ListByProjectID はプロジェクト宛の応募一覧を応募者情報付きで返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Application, error)

	// DeleteByID は指定IDの応募を削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全応募を削除する。退会処理で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ArtJobRepository はコンセプトアート生成ジョブの永続化インターフェース。
type ArtJobRepository interface {
	// Create はジョブをqueued状態で作成する。
	Create(ctx context.Context, job *model.ArtJob) error

	// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ArtJob, error)

	// ListDue は実行期限が到来したqueuedジョブを
	// FOR UPDATE SKIP LOCKEDで排他的に取得し、running状態に更新する。
	ListDue(ctx context.Context, limit int) ([]*model.ArtJob, error)

	// UpdateState はジョブの状態・試行回数・次回実行時刻・結果・エラーを更新する。
	UpdateState(ctx context.Context, job *model.ArtJob) error

	// DeleteFinishedBefore は指定時刻より前に完了・失敗したジョブを削除し、削除件数を返す。
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
