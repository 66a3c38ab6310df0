package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/model"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("dev@example.com"))
	assert.NoError(t, ValidateEmail("a.b+c@sub.example.io"))

	for _, bad := range []string{"", "dev", "dev@", "@example.com", "dev@example", "a b@example.com"} {
		err := ValidateEmail(bad)
		assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"), bad)
	}
}

func TestValidateDatabaseName(t *testing.T) {
	assert.NoError(t, ValidateDatabaseName("shop"))
	assert.NoError(t, ValidateDatabaseName("my_db-2"))
	assert.NoError(t, ValidateDatabaseName(strings.Repeat("a", 64)))

	for _, bad := range []string{"", strings.Repeat("a", 65), "my db", "shop!", "a/b"} {
		err := ValidateDatabaseName(bad)
		assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"), bad)
	}
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("SELECT 1", 100))

	assert.True(t, apperr.IsCode(ValidateQuery("", 100), "VALIDATION_ERROR"))
	assert.True(t, apperr.IsCode(ValidateQuery("   \n\t", 100), "VALIDATION_ERROR"))
	assert.True(t, apperr.IsCode(ValidateQuery(strings.Repeat("x", 101), 100), "VALIDATION_ERROR"))
}

func TestCheckForbiddenQuery(t *testing.T) {
	assert.NoError(t, CheckForbiddenQuery("SELECT * FROM users"))

	forbidden := []string{
		"ATTACH DATABASE 'x' AS y",
		"DETACH DATABASE y",
		"PRAGMA journal_mode = DELETE",
		"select pragma_page_count()",
		// Substring matching anywhere is deliberate, even inside literals.
		"INSERT INTO notes (body) VALUES ('how to use PRAGMA')",
	}
	for _, q := range forbidden {
		err := CheckForbiddenQuery(q)
		assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"), q)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		kind  model.QueryKind
	}{
		{"SELECT * FROM t", model.QueryKindRead},
		{"  with x as (select 1) select * from x", model.QueryKindRead},
		{"INSERT INTO t VALUES (1)", model.QueryKindWrite},
		{"update t set v = 1", model.QueryKindWrite},
		{"DELETE FROM t", model.QueryKindWrite},
		{"REPLACE INTO t VALUES (1)", model.QueryKindWrite},
		{"MERGE INTO t USING s ON 1=1", model.QueryKindWrite},
		{"CREATE TABLE t (id INTEGER)", model.QueryKindSchema},
		{"alter table t add column v", model.QueryKindSchema},
		{"DROP TABLE t", model.QueryKindSchema},
		{"TRUNCATE TABLE t", model.QueryKindSchema},
		{"EXPLAIN QUERY PLAN SELECT 1", model.QueryKindOther},
		{"VACUUM", model.QueryKindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Classify(tt.query), tt.query)
	}
}
