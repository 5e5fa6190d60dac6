package project

import (
	"context"

	"github.com/hitoshi/atelier/internal/model"
	"github.com/hitoshi/atelier/internal/repository"
)

// mockProjectRepo はProjectRepositoryのテスト用モック。
type mockProjectRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Project, error)
	createWithLeadFn func(ctx context.Context, project *model.Project, lead *model.Member) error
	updateFn         func(ctx context.Context, project *model.Project) error
	deleteByIDFn     func(ctx context.Context, id string) error
	listByUserIDFn   func(ctx context.Context, userID string) ([]*model.Project, error)
	listPublicFn     func(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error)
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProjectRepo) CreateWithLead(ctx context.Context, project *model.Project, lead *model.Member) error {
	if m.createWithLeadFn != nil {
		return m.createWithLeadFn(ctx, project, lead)
	}
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *model.Project) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, project)
	}
	return nil
}

func (m *mockProjectRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockProjectRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Project, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProjectRepo) ListPublic(ctx context.Context, status model.ProjectStatus) ([]*model.Project, error) {
	if m.listPublicFn != nil {
		return m.listPublicFn(ctx, status)
	}
	return nil, nil
}

func (m *mockProjectRepo) UpdateImageURL(ctx context.Context, projectID, imageURL string) error {
	return nil
}

var _ repository.ProjectRepository = (*mockProjectRepo)(nil)

// mockMemberRepo はMemberRepositoryのテスト用モック。
type mockMemberRepo struct {
	listByProjectIDFn func(ctx context.Context, projectID string) ([]*model.Member, error)
	existsFn          func(ctx context.Context, projectID, userID string) (bool, error)
	addWithRoleFillFn func(ctx context.Context, member *model.Member) error
}

func (m *mockMemberRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Member, error) {
	if m.listByProjectIDFn != nil {
		return m.listByProjectIDFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockMemberRepo) ExistsByProjectAndUser(ctx context.Context, projectID, userID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, projectID, userID)
	}
	return false, nil
}

func (m *mockMemberRepo) AddWithRoleFill(ctx context.Context, member *model.Member) error {
	if m.addWithRoleFillFn != nil {
		return m.addWithRoleFillFn(ctx, member)
	}
	return nil
}

var _ repository.MemberRepository = (*mockMemberRepo)(nil)

// mockUserRepo はUserRepositoryのテスト用モック。
type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
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

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) List(ctx context.Context, filter repository.TalentFilter) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

var _ repository.UserRepository = (*mockUserRepo)(nil)

// mockExpenseRepo はExpenseRepositoryのテスト用モック。
type mockExpenseRepo struct {
	createFn func(ctx context.Context, expense *model.Expense) error
	listFn   func(ctx context.Context, projectID string) ([]*model.Expense, error)
	sumFn    func(ctx context.Context, projectID string) (float64, error)
}

func (m *mockExpenseRepo) CreateWithBudgetUpdate(ctx context.Context, expense *model.Expense) error {
	if m.createFn != nil {
		return m.createFn(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Expense, error) {
	if m.listFn != nil {
		return m.listFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockExpenseRepo) SumByProjectID(ctx context.Context, projectID string) (float64, error) {
	if m.sumFn != nil {
		return m.sumFn(ctx, projectID)
	}
	return 0, nil
}

var _ repository.ExpenseRepository = (*mockExpenseRepo)(nil)

// passthroughSanitizer はサニタイズ呼び出しを記録するモック。
type passthroughSanitizer struct {
	called bool
}

func (s *passthroughSanitizer) Sanitize(raw string) string {
	s.called = true
	return raw
}
