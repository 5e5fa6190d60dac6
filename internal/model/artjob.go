// Package model はドメインモデルを定義する。
package model

import "time"

// ArtJobStatus はコンセプトアート生成ジョブの状態を表す。
type ArtJobStatus string

const (
	// ArtJobStatusQueued は実行待ちを示す。
	ArtJobStatusQueued ArtJobStatus = "queued"
	// ArtJobStatusRunning は生成中を示す。
	ArtJobStatusRunning ArtJobStatus = "running"
	// ArtJobStatusDone は生成完了を示す。
	ArtJobStatusDone ArtJobStatus = "done"
	// ArtJobStatusFailed はリトライ上限到達による失敗を示す。
	ArtJobStatusFailed ArtJobStatus = "failed"
)

// ArtJob はコンセプトアートの非同期生成ジョブを表す。
// 生成はワーカーが実行し、失敗時は指数バックオフで再試行する。
// 完了時はResultURLがプロジェクトのImageURLに反映される。
type ArtJob struct {
	ID            string
	ProjectID     string
	Prompt        string
	Status        ArtJobStatus
	Attempts      int
	NextAttemptAt time.Time
	ResultURL     string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
