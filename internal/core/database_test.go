package core

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/apperr"
)

func TestCreateDatabase(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	d, err := env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{Name: "app-data"})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "app-data", d.Name)
	assert.Equal(t, env.cfg.DefaultMaxDBSizeBytes, d.MaxSizeBytes)
	assert.Equal(t, env.cfg.DefaultMaxTables, d.MaxTables)
	assert.Equal(t, env.cfg.DefaultMaxRowsPerTable, d.MaxRowsPerTable)
	assert.Equal(t, env.cfg.DefaultQueriesPerHour, d.QueryLimitPerHour)
	assert.Equal(t, 0, d.QueryCount)

	// The physical file exists as soon as the row does.
	_, err = os.Stat(env.registry.Path(d.ID))
	assert.NoError(t, err)
}

func TestCreateDatabase_CustomLimits(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	maxSize := int64(1048576)
	maxTables := 5
	d, err := env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{
		Name:         "custom",
		MaxSizeBytes: &maxSize,
		MaxTables:    &maxTables,
	})
	require.NoError(t, err)

	assert.Equal(t, maxSize, d.MaxSizeBytes)
	assert.Equal(t, maxTables, d.MaxTables)
	assert.Equal(t, env.cfg.DefaultMaxRowsPerTable, d.MaxRowsPerTable)
}

func TestCreateDatabase_InvalidName(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	for _, name := range []string{"", "has space", "semi;colon", "../escape"} {
		_, err := env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{Name: name})
		assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"), "name %q", name)
	}
}

func TestCreateDatabase_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	env.createDatabase(t, account.ID, "dup")

	_, err := env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{Name: "dup"})
	assert.True(t, apperr.IsCode(err, "CONFLICT"))

	// A different account can reuse the name.
	other := env.createAccount(t)
	_, err = env.svc.Database.Create(context.Background(), other.ID, request.CreateDatabase{Name: "dup"})
	assert.NoError(t, err)
}

func TestCreateDatabase_AtLimit(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	_, err := env.metaDB.ExecContext(context.Background(),
		`UPDATE accounts SET max_databases = 1 WHERE id = ?`, account.ID)
	require.NoError(t, err)

	env.createDatabase(t, account.ID, "first")

	_, err = env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{Name: "second"})
	assert.True(t, apperr.IsCode(err, "QUOTA_EXCEEDED"))
}

func TestGetDatabase(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	created := env.createDatabase(t, account.ID, "mine")

	got, err := env.svc.Database.Get(context.Background(), account.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, env.registry.Size(created.ID), got.SizeBytes)

	// Another account's lookup scopes to its own databases.
	other := env.createAccount(t)
	_, err = env.svc.Database.Get(context.Background(), other.ID, created.ID)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

func TestListDatabases(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	other := env.createAccount(t)

	env.createDatabase(t, account.ID, "one")
	env.createDatabase(t, account.ID, "two")
	env.createDatabase(t, other.ID, "theirs")

	list, err := env.svc.Database.List(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, d := range list {
		assert.NotEqual(t, "theirs", d.Name)
	}
}

func TestUpdateDatabase(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	d := env.createDatabase(t, account.ID, "before")

	newName := "after"
	maxTables := 7
	updated, err := env.svc.Database.Update(context.Background(), account.ID, d.ID, request.UpdateDatabase{
		Name:      &newName,
		MaxTables: &maxTables,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, 7, updated.MaxTables)
	assert.Equal(t, d.MaxSizeBytes, updated.MaxSizeBytes)
}

func TestUpdateDatabase_NameConflict(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	env.createDatabase(t, account.ID, "taken")
	d := env.createDatabase(t, account.ID, "free")

	taken := "taken"
	_, err := env.svc.Database.Update(context.Background(), account.ID, d.ID, request.UpdateDatabase{Name: &taken})
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

func TestDeleteDatabase(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	d := env.createDatabase(t, account.ID, "doomed")

	require.NoError(t, env.svc.Database.Delete(context.Background(), account.ID, d.ID))

	_, err := env.svc.Database.Get(context.Background(), account.ID, d.ID)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))

	_, err = os.Stat(env.registry.Path(d.ID))
	assert.True(t, os.IsNotExist(err))

	// Soft delete frees the name for reuse.
	_, err = env.svc.Database.Create(context.Background(), account.ID, request.CreateDatabase{Name: "doomed"})
	assert.NoError(t, err)

	err = env.svc.Database.Delete(context.Background(), account.ID, d.ID)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

func TestGetOwned(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	other := env.createAccount(t)
	d := env.createDatabase(t, account.ID, "guarded")

	got, err := env.svc.Database.GetOwned(context.Background(), account.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	// Ownership failures are distinguishable from missing databases.
	_, err = env.svc.Database.GetOwned(context.Background(), other.ID, d.ID)
	assert.True(t, apperr.IsCode(err, "FORBIDDEN"))

	_, err = env.svc.Database.GetOwned(context.Background(), account.ID, "no-such-db")
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}
