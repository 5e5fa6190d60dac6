package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/profile"
)

// SessionState はセッション解決の状態を表す。
type SessionState string

const (
	// StateHydrating は初回のセッション通知を待機中の状態。
	StateHydrating SessionState = "hydrating"
	// StateAnonymous はセッションが存在しない状態。
	StateAnonymous SessionState = "anonymous"
	// StatePending はセッションは有効だがプロフィールを解決できなかった状態。
	// セッションは破棄せず維持する。
	StatePending SessionState = "pending"
	// StateAuthenticated はセッションとプロフィールの両方が解決済みの状態。
	StateAuthenticated SessionState = "authenticated"
)

// SessionSource はセッションの現在値と変更通知を提供する。
// Subscribeは登録直後に現在のセッション（存在しない場合はnil）を一度通知し、
// 以降の変更も同じコールバックへ通知する。戻り値は購読解除関数。
type SessionSource interface {
	Subscribe(notify func(session *model.Session)) (unsubscribe func(), err error)
}

// ProfileFetcher はユーザーIDからプロフィールを解決する。
// 行が存在しない場合はprofile.ErrNotFoundを返す。
type ProfileFetcher interface {
	Fetch(ctx context.Context, userID string) (*model.User, error)
}

// Snapshot はResolverの状態のコピー。読み取り側はこの値を自由に保持してよい。
type Snapshot struct {
	State   SessionState
	Loading bool
	Session *model.Session
	User    *model.User
}

// Resolver はセッション通知とプロフィール取得を統合し、
// hydrating / anonymous / pending / authenticated のいずれかに解決する状態機械。
// すべての状態変更はミューテックスで直列化され、読み取りはSnapshotのコピーで行う。
type Resolver struct {
	source  SessionSource
	fetcher ProfileFetcher
	timeout time.Duration

	mu          sync.Mutex
	state       SessionState
	session     *model.Session
	user        *model.User
	loading     bool
	version     uint64
	closed      bool
	unsubscribe func()
	timer       *time.Timer
	resolved    chan struct{}
}

// NewResolver はResolverを生成する。timeoutはハイドレーションの上限時間で、
// 超過した場合はanonymousとして解決する。
func NewResolver(source SessionSource, fetcher ProfileFetcher, timeout time.Duration) *Resolver {
	return &Resolver{
		source:   source,
		fetcher:  fetcher,
		timeout:  timeout,
		state:    StateHydrating,
		loading:  true,
		resolved: make(chan struct{}),
	}
}

// Start はセッションソースの購読を開始する。
// 最初の通知でloadingが一度だけfalseに解決され、以後trueには戻らない。
// timeout以内に解決しなかった場合はanonymousに倒す。
func (r *Resolver) Start(ctx context.Context) error {
	unsubscribe, err := r.source.Subscribe(func(session *model.Session) {
		r.handleSession(ctx, session)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		unsubscribe()
		return nil
	}
	r.unsubscribe = unsubscribe

	if r.timeout > 0 && r.loading {
		r.timer = time.AfterFunc(r.timeout, r.resolveByTimeout)
	}

	return nil
}

// handleSession はセッション通知を処理する。
// nilセッションは即座にanonymousへ解決し、進行中のプロフィール取得結果は
// バージョン番号の不一致により破棄される。
func (r *Resolver) handleSession(ctx context.Context, session *model.Session) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return
	}

	r.version++

	if session == nil {
		r.session = nil
		r.user = nil
		r.state = StateAnonymous
		r.resolveLoadingLocked()
		r.mu.Unlock()
		return
	}

	r.session = session
	version := r.version
	userID := session.UserID
	r.mu.Unlock()

	go r.fetchProfile(ctx, userID, version)
}

// fetchProfile はプロフィールを取得し、取得開始時点のバージョンが
// 現在と一致する場合のみ状態へ反映する。
func (r *Resolver) fetchProfile(ctx context.Context, userID string, version uint64) {
	user, err := r.fetcher.Fetch(ctx, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.version != version {
		// セッションが変わっているため古い結果を破棄
		return
	}

	switch {
	case err == nil:
		r.user = user
		r.state = StateAuthenticated
	case errors.Is(err, profile.ErrNotFound):
		r.user = nil
		r.state = StatePending
		slog.Warn("profile row missing for valid session", slog.String("user_id", userID))
	default:
		r.user = nil
		r.state = StatePending
		slog.Error("failed to fetch profile", slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	r.resolveLoadingLocked()
}

// resolveByTimeout はハイドレーションの上限時間到達時にanonymousへ倒す。
func (r *Resolver) resolveByTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.loading {
		return
	}

	r.version++
	r.session = nil
	r.user = nil
	r.state = StateAnonymous
	r.resolveLoadingLocked()
	slog.Warn("session hydration timed out, resolving as anonymous")
}

// resolveLoadingLocked はloadingをfalseに解決し、待機側へ通知する。
// 一度解決したら戻らない。呼び出し側でミューテックスを保持していること。
func (r *Resolver) resolveLoadingLocked() {
	if r.loading {
		r.loading = false
		if r.timer != nil {
			r.timer.Stop()
		}
		close(r.resolved)
	}
}

// Resolved はloadingがfalseに解決された時点でcloseされるチャネルを返す。
func (r *Resolver) Resolved() <-chan struct{} {
	return r.resolved
}

// Snapshot は現在の状態のコピーを返す。
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		State:   r.state,
		Loading: r.loading,
		Session: r.session,
		User:    r.user,
	}
}

// Close は購読を解除し、以降の通知による状態変更を無効化する。
// 複数回呼び出しても安全。
func (r *Resolver) Close() {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	// 未解決のまま閉じられた場合も待機側を起こす
	r.resolveLoadingLocked()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
