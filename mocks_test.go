package identity_test

import (
	"context"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockDirectory implements identity.Accounts for the methods the
// resolver and session manager exercise. The embedded interface covers
// the rest; calling an unstubbed method panics, which is what we want
// in a test.
type MockDirectory struct {
	identity.Accounts
	mock.Mock
}

func (m *MockDirectory) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*identity.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) FindByPhone(ctx context.Context, phone string) (*identity.Account, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) FindByUUID(ctx context.Context, accountUUID string) (*identity.Account, error) {
	args := m.Called(ctx, accountUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) Create(ctx context.Context, record *identity.Account, criteria ...repository.InsertCriteria) (*identity.Account, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Account, criteria ...repository.InsertCriteria) (*identity.Account, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockDirectory) Save(ctx context.Context, record *identity.Account) (*identity.Account, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

// MockResolver implements identity.AccountResolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolvePasswordLogin(ctx context.Context, identifier string) (*identity.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockResolver) ResolveOAuthLogin(ctx context.Context, assertion identity.OAuthAssertion) (*identity.Account, error) {
	args := m.Called(ctx, assertion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockResolver) ResolvePasswordlessLogin(ctx context.Context, assertion identity.PasswordlessAssertion) (*identity.Account, error) {
	args := m.Called(ctx, assertion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

// noopLogger keeps test output quiet
type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}

func notFound() error {
	return repository.NewRecordNotFound()
}

func testConfig() identity.Config {
	return identity.Config{
		SigningKey: "test-signing-key",
		AccessTTL:  20 * time.Minute,
		RefreshTTL: 168 * time.Hour,
		Issuer:     "test-issuer",
		Audience:   []string{"test:audience"},
	}
}

func testAccount() *identity.Account {
	return &identity.Account{
		UUID:     "11111111-2222-3333-4444-555555555555",
		Kind:     identity.KindUser,
		Role:     identity.RoleUser,
		Channel:  identity.ChannelEmail,
		FullName: "Pat Doe",
		Username: "patdoe",
		Email:    "pat@example.com",
	}
}
