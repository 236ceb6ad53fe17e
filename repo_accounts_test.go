package identity_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    uuid TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    account_role TEXT NOT NULL,
    login_channel TEXT NOT NULL DEFAULT 'EMAIL',
    full_name TEXT,
    username TEXT UNIQUE,
    email TEXT UNIQUE,
    phone_number TEXT UNIQUE,
    password_hash TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP
);`

func setupAccountsRepo(t *testing.T) (identity.Accounts, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return identity.NewAccountsRepository(bunDB), cleanup
}

func TestAccountsCreateAppliesDefaults(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	created, err := repo.Create(ctx, &identity.Account{
		FullName: "Pat Doe",
		Email:    "pat@example.com",
		Username: "patdoe",
		Channel:  identity.ChannelEmail,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotEmpty(t, created.UUID)
	assert.Equal(t, identity.RoleUser, created.Role)
	assert.Equal(t, identity.KindUser, created.Kind)
	assert.NotNil(t, created.CreatedAt)
}

func TestAccountsUUIDIsStable(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	created, err := repo.Create(ctx, &identity.Account{
		Email:    "pat@example.com",
		Username: "patdoe",
		Channel:  identity.ChannelEmail,
	})
	require.NoError(t, err)

	assignedUUID := created.UUID

	created.Email = "pat.updated@example.com"
	saved, err := repo.Save(ctx, created)
	require.NoError(t, err)

	assert.Equal(t, assignedUUID, saved.UUID)

	found, err := repo.FindByEmail(ctx, "pat.updated@example.com")
	require.NoError(t, err)
	assert.Equal(t, assignedUUID, found.UUID)
}

func TestAccountsGetByIdentifier(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	created, err := repo.Create(ctx, &identity.Account{
		FullName: "Pat Doe",
		Email:    "pat@example.com",
		Username: "patdoe",
		Phone:    "+14155552671",
		Channel:  identity.ChannelEmail,
	})
	require.NoError(t, err)

	t.Run("by email", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, "pat@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.UUID, got.UUID)
	})

	t.Run("by username", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, "patdoe")
		require.NoError(t, err)
		assert.Equal(t, created.UUID, got.UUID)
	})

	t.Run("by uuid", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, created.UUID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("by differently formatted phone", func(t *testing.T) {
		got, err := repo.GetByIdentifier(ctx, "+1 (415) 555-2671")
		require.NoError(t, err)
		assert.Equal(t, created.UUID, got.UUID)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := repo.GetByIdentifier(ctx, "nobody@example.com")
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("blank identifier", func(t *testing.T) {
		_, err := repo.GetByIdentifier(ctx, "   ")
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestAccountsDuplicateIdentity(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	_, err := repo.Create(ctx, &identity.Account{
		Email:    "pat@example.com",
		Username: "patdoe",
		Channel:  identity.ChannelEmail,
	})
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.Create(ctx, &identity.Account{
			Email:    "pat@example.com",
			Username: "someoneelse",
			Channel:  identity.ChannelEmail,
		})
		assert.True(t, identity.IsDuplicateIdentity(err))
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.Create(ctx, &identity.Account{
			Email:    "other@example.com",
			Username: "patdoe",
			Channel:  identity.ChannelEmail,
		})
		assert.True(t, identity.IsDuplicateIdentity(err))
	})
}

func TestAccountsExists(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	_, err := repo.Create(ctx, &identity.Account{
		Email:    "pat@example.com",
		Username: "patdoe",
		Phone:    "+14155552671",
		Channel:  identity.ChannelEmail,
	})
	require.NoError(t, err)

	exists, err := repo.ExistsByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsername(ctx, "patdoe")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsername(ctx, "free-name")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByPhone(ctx, "+14155552671")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryManager(t *testing.T) {
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	bunDB := bun.NewDB(db, sqlitedialect.New())
	defer bunDB.Close()

	_, err = bunDB.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	manager := identity.NewRepositoryManager(bunDB)
	require.NoError(t, manager.Validate())

	ctx := context.Background()

	err = manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := manager.Accounts().CreateTx(ctx, tx, &identity.Account{
			Email:    "tx@example.com",
			Username: "txuser",
			Channel:  identity.ChannelEmail,
		})
		return err
	})
	require.NoError(t, err)

	found, err := manager.Accounts().FindByEmail(ctx, "tx@example.com")
	require.NoError(t, err)
	assert.Equal(t, "txuser", found.Username)
}
