// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, portfolio, invite, suggest, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeInvalidCompensation = "INVALID_COMPENSATION"
	ErrCodeProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrCodeNotProjectOwner     = "NOT_PROJECT_OWNER"
	ErrCodeTaskNotFound        = "TASK_NOT_FOUND"
	ErrCodeAssigneeNotMember   = "ASSIGNEE_NOT_MEMBER"
	ErrCodeInvalidTaskStatus   = "INVALID_TASK_STATUS"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodePortfolioNotFound   = "PORTFOLIO_NOT_FOUND"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeSSRFBlocked         = "SSRF_BLOCKED"
	ErrCodeInviteNotFound      = "INVITE_NOT_FOUND"
	ErrCodeInviteExpired       = "INVITE_EXPIRED"
	ErrCodeRoleAlreadyFilled   = "ROLE_ALREADY_FILLED"
	ErrCodeApplicationNotFound = "APPLICATION_NOT_FOUND"
	ErrCodeSuggestionFailed    = "SUGGESTION_FAILED"
)

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスの存在有無を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProfileNotFoundError はセッションは有効だがプロフィール行が存在しない場合のエラーを生成する。
// 登録直後など正当に発生しうる状態であり、ログアウト扱いにはしない。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールがまだ作成されていません。",
		Category: "auth",
		Action:   "プロフィールの登録を完了してください。",
	}
}

// NewInvalidCompensationError は報酬形態と時給の組み合わせが不正な場合のエラーを生成する。
func NewInvalidCompensationError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCompensation,
		Message:  "報酬形態が不正です。時給はpaidの場合のみ指定できます。",
		Category: "validation",
		Action:   "報酬形態にはpaidまたはexperienceを指定してください。",
	}
}

// NewProjectNotFoundError はプロジェクトが見つからない場合のエラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewNotProjectOwnerError はオーナー以外による書き込み操作のエラーを生成する。
func NewNotProjectOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotProjectOwner,
		Message:  "この操作はプロジェクトのオーナーのみ実行できます。",
		Category: "project",
		Action:   "プロジェクトのオーナーに依頼してください。",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "project",
		Action:   "タスクIDを確認してください。",
	}
}

// NewAssigneeNotMemberError は担当者がチームメンバーでない場合のエラーを生成する。
func NewAssigneeNotMemberError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeAssigneeNotMember,
		Message:  fmt.Sprintf("指定されたユーザーはプロジェクトのメンバーではありません: %s", userID),
		Category: "project",
		Action:   "チームに参加しているメンバーを指定してください。",
	}
}

// NewInvalidTaskStatusError は無効なタスク状態エラーを生成する。
func NewInvalidTaskStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskStatus,
		Message:  fmt.Sprintf("無効なタスク状態です: %s", status),
		Category: "validation",
		Action:   "状態には todo、in-progress、done のいずれかを指定してください。",
	}
}

// NewInvalidAmountError は経費金額が不正な場合のエラーを生成する。
func NewInvalidAmountError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  "経費の金額は0より大きい値を指定してください。",
		Category: "validation",
		Action:   "金額を確認して再度登録してください。",
	}
}

// NewPortfolioNotFoundError はポートフォリオ作品が見つからない場合のエラーを生成する。
func NewPortfolioNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodePortfolioNotFound,
		Message:  fmt.Sprintf("指定された作品が見つかりません: %s", itemID),
		Category: "portfolio",
		Action:   "作品IDを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewInviteNotFoundError は招待が見つからない場合のエラーを生成する。
func NewInviteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeInviteNotFound,
		Message:  "指定された招待が見つかりません。",
		Category: "invite",
		Action:   "招待の送信者に再送を依頼してください。",
	}
}

// NewInviteExpiredError は招待の期限切れまたは使用済みエラーを生成する。
func NewInviteExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeInviteExpired,
		Message:  "この招待は期限切れか、既に使用されています。",
		Category: "invite",
		Action:   "招待の送信者に再送を依頼してください。",
	}
}

// NewRoleAlreadyFilledError は募集ロールが既に埋まっている場合のエラーを生成する。
func NewRoleAlreadyFilledError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeRoleAlreadyFilled,
		Message:  fmt.Sprintf("ロール「%s」は既に埋まっています。", role),
		Category: "invite",
		Action:   "プロジェクトの募集状況を確認してください。",
	}
}

// NewApplicationNotFoundError は応募が見つからない場合のエラーを生成する。
func NewApplicationNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された応募が見つかりません: %s", applicationID),
		Category: "invite",
		Action:   "応募IDを確認してください。",
	}
}

// NewSuggestionFailedError はAI提案の生成失敗エラーを生成する。
func NewSuggestionFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSuggestionFailed,
		Message:  fmt.Sprintf("AI提案の生成に失敗しました: %s", reason),
		Category: "suggest",
		Action:   "内容を変えて再度お試しください。",
	}
}
