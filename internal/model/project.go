// Package model はドメインモデルを定義する。
package model

import "time"

// ProjectStatus はプロジェクトの進行状態を表す。
type ProjectStatus string

const (
	// ProjectStatusPlanning は企画段階を示す。
	ProjectStatusPlanning ProjectStatus = "planning"
	// ProjectStatusInProgress は制作中を示す。
	ProjectStatusInProgress ProjectStatus = "in-progress"
	// ProjectStatusCompleted は完了を示す。
	ProjectStatusCompleted ProjectStatus = "completed"
)

// IsValid はプロジェクト状態が定義済みの値かを検証する。
func (s ProjectStatus) IsValid() bool {
	return s == ProjectStatusPlanning || s == ProjectStatusInProgress || s == ProjectStatusCompleted
}

// Project は創作プロジェクトを表す。
// BudgetSpentは常に経費の合計と一致する（経費登録と同一トランザクションで更新）。
type Project struct {
	ID          string
	OwnerID     string
	IsPublic    bool
	Title       string
	Description string
	Status      ProjectStatus
	RolesNeeded []string
	BudgetTotal float64
	BudgetSpent float64
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member はプロジェクトの参加メンバーを表す。
// UserIDはAI提案による架空メンバーの場合nil。
type Member struct {
	ID               string
	ProjectID        string
	UserID           *string
	Name             string
	Role             string
	Specialty        string
	Bio              string
	AvatarURL        string
	CompensationType CompensationType
	HourlyRate       *float64
	CreatedAt        time.Time
}

// TaskStatus はかんばんボード上のタスク状態を表す。
type TaskStatus string

const (
	// TaskStatusTodo は未着手を示す。
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress は作業中を示す。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusDone は完了を示す。
	TaskStatusDone TaskStatus = "done"
)

// IsValid はタスク状態が定義済みの値かを検証する。
func (s TaskStatus) IsValid() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusDone
}

// Task はプロジェクトのタスクを表す。
// AssigneeIDは未割り当ての場合nil。割り当て先はチームメンバーでなければならない。
// Positionは同一ステータス列内の表示順序（0始まり）。
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	AssigneeID  *string
	Status      TaskStatus
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expense はプロジェクトの経費を表す。
type Expense struct {
	ID          string
	ProjectID   string
	Description string
	Amount      float64
	SpentAt     time.Time
}
