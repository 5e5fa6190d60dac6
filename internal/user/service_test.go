package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/profile"
	"github.com/hitoshi/atelier/internal/repository"
)

// mockUserRepo はUserRepositoryのテスト用モック。
type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	updateFn     func(ctx context.Context, user *model.User) error
	listFn       func(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error {
	return nil
}

func (m *mockUserRepo) FindCredential(ctx context.Context, userID string) (*model.Credential, error) {
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// mockSessionRepo はSessionRepositoryのテスト用モック。
type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}
func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// mockDeleter はDeleteByUserIDを持つ汎用モック。
type mockDeleter struct {
	called bool
	err    error
}

func (m *mockDeleter) DeleteByUserID(ctx context.Context, userID string) error {
	m.called = true
	return m.err
}

// passthroughSanitizer はサニタイズ呼び出しを記録するモック。
type passthroughSanitizer struct {
	called bool
}

func (s *passthroughSanitizer) Sanitize(raw string) string {
	s.called = true
	return raw
}

func existingUser() *model.User {
	return &model.User{
		ID:               "user-1",
		Email:            "creator@example.com",
		Name:             "クリエイター",
		Skills:           []string{"イラスト"},
		CompensationType: model.CompensationExperience,
	}
}

func TestGetProfile_ReturnsUser(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	user, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("ID = %q, want user-1", user.ID)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	_, err := svc.GetProfile(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProfileNotFound {
		t.Errorf("error = %v, want PROFILE_NOT_FOUND", err)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	var updated *model.User
	sanitizer := &passthroughSanitizer{}
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, sanitizer)

	rate := 3000.0
	before := time.Now()
	user, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "  新しい名前  ",
		Bio:              "<p>作曲が得意です</p>",
		Skills:           []string{"作曲", " 作曲 ", "", "編曲"},
		CompensationType: model.CompensationPaid,
		HourlyRate:       &rate,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated == nil {
		t.Fatal("Update should be called")
	}
	if user.Name != "新しい名前" {
		t.Errorf("Name = %q, want trimmed name", user.Name)
	}
	if len(user.Skills) != 2 {
		t.Errorf("Skills = %v, want deduplicated 2 entries", user.Skills)
	}
	if user.CompensationType != model.CompensationPaid {
		t.Errorf("CompensationType = %q, want paid", user.CompensationType)
	}
	if user.HourlyRate == nil || *user.HourlyRate != 3000.0 {
		t.Errorf("HourlyRate = %v, want 3000", user.HourlyRate)
	}
	if !sanitizer.called {
		t.Error("bio should be sanitized before save")
	}
	if updated.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want refreshed on update", updated.UpdatedAt)
	}
}

func TestUpdateProfile_HourlyRateWithExperience_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	rate := 3000.0
	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "名前",
		CompensationType: model.CompensationExperience,
		HourlyRate:       &rate,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCompensation {
		t.Errorf("error = %v, want INVALID_COMPENSATION", err)
	}
}

func TestUpdateProfile_NegativeHourlyRate_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	rate := -100.0
	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "名前",
		CompensationType: model.CompensationPaid,
		HourlyRate:       &rate,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCompensation {
		t.Errorf("error = %v, want INVALID_COMPENSATION", err)
	}
}

func TestUpdateProfile_InvalidCompensationType_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "名前",
		CompensationType: model.CompensationType("volunteer"),
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCompensation {
		t.Errorf("error = %v, want INVALID_COMPENSATION", err)
	}
}

func TestUpdateProfile_EmptyName_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "   ",
		CompensationType: model.CompensationExperience,
	})
	if err == nil {
		t.Error("expected error for empty name")
	}
}

func TestUpdateProfile_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	_, err := svc.UpdateProfile(context.Background(), "missing", UpdateProfileInput{
		Name:             "名前",
		CompensationType: model.CompensationExperience,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestSearchTalent_PassesFilter(t *testing.T) {
	var gotFilter repository.TalentFilter
	svc := NewService(&mockUserRepo{
		listFn: func(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
			gotFilter = filter
			return []*model.User{existingUser()}, nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	users, err := svc.SearchTalent(context.Background(), repository.TalentFilter{
		Skill:            "イラスト",
		CompensationType: model.CompensationPaid,
		MaxHourlyRate:    5000,
	})
	if err != nil {
		t.Fatalf("SearchTalent() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
	if gotFilter.Skill != "イラスト" {
		t.Errorf("filter.Skill = %q, want イラスト", gotFilter.Skill)
	}
}

func TestWithdraw_DeletesInOrder(t *testing.T) {
	var order []string
	portfolioDeleter := &mockDeleter{}
	appDeleter := &mockDeleter{}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			order = append(order, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			order = append(order, "sessions")
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, portfolioDeleter, appDeleter, &passthroughSanitizer{})

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	if !portfolioDeleter.called {
		t.Error("portfolio works should be deleted")
	}
	if !appDeleter.called {
		t.Error("applications should be deleted")
	}
	if len(order) != 2 || order[0] != "sessions" || order[1] != "user" {
		t.Errorf("sessions must be deleted before user, got order %v", order)
	}
}

func TestWithdraw_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})

	err := svc.Withdraw(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestWithdraw_PortfolioDeleteFailure_Aborts(t *testing.T) {
	userDeleted := false
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			userDeleted = true
			return nil
		},
	}, &mockSessionRepo{}, &mockDeleter{err: errors.New("db error")}, &mockDeleter{}, &passthroughSanitizer{})

	if err := svc.Withdraw(context.Background(), "user-1"); err == nil {
		t.Error("expected error when portfolio deletion fails")
	}
	if userDeleted {
		t.Error("user should not be deleted when an earlier step fails")
	}
}

// recordingInvalidator はキャッシュ無効化の呼び出しを記録するモック。
type recordingInvalidator struct {
	userIDs []string
}

func (r *recordingInvalidator) Invalidate(userID string) {
	r.userIDs = append(r.userIDs, userID)
}

func TestUpdateProfile_InvalidatesProfileCache(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})
	cache := &recordingInvalidator{}
	svc.ProfileCache = cache

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "新しい名前",
		CompensationType: model.CompensationExperience,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if len(cache.userIDs) != 1 || cache.userIDs[0] != "user-1" {
		t.Errorf("invalidated = %v, want [user-1]", cache.userIDs)
	}
}

func TestUpdateProfile_RepoError_DoesNotInvalidateCache(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			return errors.New("db error")
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})
	cache := &recordingInvalidator{}
	svc.ProfileCache = cache

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "新しい名前",
		CompensationType: model.CompensationExperience,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(cache.userIDs) != 0 {
		t.Errorf("invalidated = %v, want no invalidation on failure", cache.userIDs)
	}
}

func TestWithdraw_InvalidatesProfileCache(t *testing.T) {
	svc := NewService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return existingUser(), nil
		},
	}, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})
	cache := &recordingInvalidator{}
	svc.ProfileCache = cache

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	if len(cache.userIDs) != 1 || cache.userIDs[0] != "user-1" {
		t.Errorf("invalidated = %v, want [user-1]", cache.userIDs)
	}
}

// TestUpdateProfile_SessionResolutionSeesNewProfile はプロフィール更新後に
// キャッシュ付きフェッチャーが旧プロフィールを返し続けないことを検証する。
func TestUpdateProfile_SessionResolutionSeesNewProfile(t *testing.T) {
	stored := existingUser()
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			u := *stored
			return &u, nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			stored = user
			return nil
		},
	}

	fetcher := profile.NewFetcher(repo)
	svc := NewService(repo, &mockSessionRepo{}, &mockDeleter{}, &mockDeleter{}, &passthroughSanitizer{})
	svc.ProfileCache = fetcher

	// キャッシュを温める
	if _, err := fetcher.Fetch(context.Background(), "user-1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if _, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:             "新しい名前",
		CompensationType: model.CompensationExperience,
	}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	got, err := fetcher.Fetch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Fetch() after update error = %v", err)
	}
	if got.Name != "新しい名前" {
		t.Errorf("Name = %q, want 新しい名前 (stale cache)", got.Name)
	}
}
