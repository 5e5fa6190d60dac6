// Package profile はプロフィールの取得とキャッシュを提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// ErrNotFound はプロフィール行が存在しないことを表す。
// 取得エラーとは区別され、呼び出し側で分岐に使用する。
var ErrNotFound = errors.New("profile not found")

// Fetcher はユーザーIDからプロフィールを解決する。
// 同一キーへの同時取得はsingleflightで1回にまとめられ、
// 成功した結果はInvalidateされるまでキャッシュされる。
type Fetcher struct {
	userRepo repository.UserRepository
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[string]*model.User
}

// NewFetcher はFetcherを生成する。
func NewFetcher(userRepo repository.UserRepository) *Fetcher {
	return &Fetcher{
		userRepo: userRepo,
		cache:    make(map[string]*model.User),
	}
}

// Fetch は指定ユーザーのプロフィールを返す。
// 行が存在しない場合はErrNotFoundを返す。取得失敗はキャッシュしない。
func (f *Fetcher) Fetch(ctx context.Context, userID string) (*model.User, error) {
	f.mu.RLock()
	if user, ok := f.cache[userID]; ok {
		f.mu.RUnlock()
		return user, nil
	}
	f.mu.RUnlock()

	result, err, _ := f.group.Do(userID, func() (any, error) {
		user, err := f.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch profile: %w", err)
		}
		if user == nil {
			return nil, ErrNotFound
		}

		f.mu.Lock()
		f.cache[userID] = user
		f.mu.Unlock()

		return user, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*model.User), nil
}

// Invalidate は指定ユーザーのキャッシュを破棄する。プロフィール更新後に呼ぶ。
func (f *Fetcher) Invalidate(userID string) {
	f.mu.Lock()
	delete(f.cache, userID)
	f.mu.Unlock()
}
