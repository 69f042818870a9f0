package accounts_test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	accounts "github.com/bravado-dev/go-accounts"
)

// MockUsers implements accounts.Users
type MockUsers struct {
	mock.Mock
}

func userAt(args mock.Arguments, i int) *accounts.User {
	if v := args.Get(i); v != nil {
		return v.(*accounts.User)
	}
	return nil
}

func usersAt(args mock.Arguments, i int) []*accounts.User {
	if v := args.Get(i); v != nil {
		return v.([]*accounts.User)
	}
	return nil
}

func (m *MockUsers) Create(ctx context.Context, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, record)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id string) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id string) (*accounts.User, error) {
	args := m.Called(ctx, tx, id)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) GetByUsername(ctx context.Context, username string) (*accounts.User, error) {
	args := m.Called(ctx, username)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	args := m.Called(ctx, identifier)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) List(ctx context.Context) ([]*accounts.User, error) {
	args := m.Called(ctx)
	return usersAt(args, 0), args.Error(1)
}

func (m *MockUsers) ListByStatus(ctx context.Context, status accounts.UserStatus) ([]*accounts.User, error) {
	args := m.Called(ctx, status)
	return usersAt(args, 0), args.Error(1)
}

func (m *MockUsers) CountByStatus(ctx context.Context, status accounts.UserStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, record)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id string, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id string, status accounts.UserStatus, opts ...accounts.StatusUpdateOption) (*accounts.User, error) {
	args := m.Called(ctx, id, status, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id string, status accounts.UserStatus, opts ...accounts.StatusUpdateOption) (*accounts.User, error) {
	args := m.Called(ctx, tx, id, status, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) Transition(ctx context.Context, actor accounts.ActorRef, user *accounts.User, target accounts.UserStatus, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, target, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) SoftDelete(ctx context.Context, actor accounts.ActorRef, user *accounts.User, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) Deactivate(ctx context.Context, actor accounts.ActorRef, user *accounts.User, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) Reactivate(ctx context.Context, actor accounts.ActorRef, user *accounts.User, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) Suspend(ctx context.Context, actor accounts.ActorRef, user *accounts.User, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, opts)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUsers) Lock(ctx context.Context, actor accounts.ActorRef, user *accounts.User, opts ...accounts.TransitionOption) (*accounts.User, error) {
	args := m.Called(ctx, actor, user, opts)
	return userAt(args, 0), args.Error(1)
}

// MockRepositoryManager implements accounts.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users accounts.Users
}

func NewMockRepositoryManager(users accounts.Users) *MockRepositoryManager {
	return &MockRepositoryManager{users: users}
}

func (m *MockRepositoryManager) Users() accounts.Users {
	return m.users
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}
