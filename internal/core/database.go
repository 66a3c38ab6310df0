package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/platform"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

// DatabaseService manages the tenant database lifecycle: the metadata row
// and the physical storage file are created and removed as a pair.
type DatabaseService struct {
	db       db.DB
	registry *tenantfile.Registry
	quota    *QuotaService
	cfg      *config.Config
}

func NewDatabaseService(metaDB db.DB, registry *tenantfile.Registry, quota *QuotaService, cfg *config.Config) *DatabaseService {
	return &DatabaseService{db: metaDB, registry: registry, quota: quota, cfg: cfg}
}

const databaseColumns = `id, account_id, name, filename, created_at, updated_at, last_accessed_at,
	size_bytes, max_size_bytes, max_tables, max_rows_per_table, query_count, query_limit_per_hour`

func scanDatabase(row interface{ Scan(...any) error }) (*model.Database, error) {
	var (
		d              model.Database
		lastAccessedAt sql.NullTime
	)
	err := row.Scan(&d.ID, &d.AccountID, &d.Name, &d.Filename, &d.CreatedAt, &d.UpdatedAt, &lastAccessedAt,
		&d.SizeBytes, &d.MaxSizeBytes, &d.MaxTables, &d.MaxRowsPerTable, &d.QueryCount, &d.QueryLimitPerHour)
	if err != nil {
		return nil, err
	}
	if lastAccessedAt.Valid {
		d.LastAccessedAt = &lastAccessedAt.Time
	}
	d.IsActive = true
	return &d, nil
}

// Create provisions a new tenant database under the account's count and
// storage quotas. The physical file is created first; if the metadata insert
// then fails the orphaned file is removed again.
func (s *DatabaseService) Create(ctx context.Context, accountID string, req request.CreateDatabase) (*model.Database, error) {
	if err := ValidateDatabaseName(req.Name); err != nil {
		return nil, err
	}

	if err := s.quota.CheckDatabaseQuota(ctx, accountID); err != nil {
		return nil, err
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM databases WHERE account_id = ? AND name = ? AND is_active = 1`,
		accountID, req.Name,
	).Scan(&existing)
	if err == nil {
		return nil, apperr.Conflict(fmt.Sprintf("Database with name '%s' already exists", req.Name))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check database name: %w", err)
	}

	if err := s.quota.CheckStorageQuota(ctx, accountID, 0); err != nil {
		return nil, err
	}

	id := platform.NewID()
	initialSize, err := s.registry.CreatePhysical(id)
	if err != nil {
		return nil, fmt.Errorf("create database file: %w", err)
	}

	now := time.Now().UTC()
	d := &model.Database{
		ID:                id,
		AccountID:         accountID,
		Name:              req.Name,
		Filename:          "db_" + id + ".sqlite",
		CreatedAt:         now,
		UpdatedAt:         now,
		SizeBytes:         initialSize,
		MaxSizeBytes:      s.cfg.DefaultMaxDBSizeBytes,
		MaxTables:         s.cfg.DefaultMaxTables,
		MaxRowsPerTable:   s.cfg.DefaultMaxRowsPerTable,
		QueryLimitPerHour: s.cfg.DefaultQueriesPerHour,
		IsActive:          true,
	}
	if req.MaxSizeBytes != nil {
		d.MaxSizeBytes = *req.MaxSizeBytes
	}
	if req.MaxTables != nil {
		d.MaxTables = *req.MaxTables
	}
	if req.MaxRowsPerTable != nil {
		d.MaxRowsPerTable = *req.MaxRowsPerTable
	}
	if req.QueryLimitPerHour != nil {
		d.QueryLimitPerHour = *req.QueryLimitPerHour
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO databases (id, account_id, name, filename, created_at, updated_at,
		                        size_bytes, max_size_bytes, max_tables, max_rows_per_table, query_limit_per_hour)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.AccountID, d.Name, d.Filename, d.CreatedAt, d.UpdatedAt,
		d.SizeBytes, d.MaxSizeBytes, d.MaxTables, d.MaxRowsPerTable, d.QueryLimitPerHour,
	)
	if err != nil {
		// The metadata row never existed, so the file must not either.
		if delErr := s.registry.DeletePhysical(id); delErr != nil {
			return nil, fmt.Errorf("insert database (orphan file %s left behind: %v): %w", id, delErr, err)
		}
		return nil, fmt.Errorf("insert database: %w", err)
	}

	return d, nil
}

// Get returns one of the account's active databases with its size
// reconciled from the physical file.
func (s *DatabaseService) Get(ctx context.Context, accountID, databaseID string) (*model.Database, error) {
	d, err := scanDatabase(s.db.QueryRowContext(ctx,
		`SELECT `+databaseColumns+` FROM databases WHERE id = ? AND account_id = ? AND is_active = 1`,
		databaseID, accountID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Database not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get database %s: %w", databaseID, err)
	}

	size, err := s.quota.ReconcileSize(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	d.SizeBytes = size
	return d, nil
}

// List returns the account's active databases, sizes reconciled.
func (s *DatabaseService) List(ctx context.Context, accountID string) ([]model.Database, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+databaseColumns+` FROM databases WHERE account_id = ? AND is_active = 1 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var databases []model.Database
	for rows.Next() {
		d, err := scanDatabase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		databases = append(databases, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate databases: %w", err)
	}

	for i := range databases {
		size, err := s.quota.ReconcileSize(ctx, databases[i].ID)
		if err != nil {
			return nil, err
		}
		databases[i].SizeBytes = size
	}
	return databases, nil
}

// Update applies a partial update of name and limits.
func (s *DatabaseService) Update(ctx context.Context, accountID, databaseID string, req request.UpdateDatabase) (*model.Database, error) {
	existing, err := s.Get(ctx, accountID, databaseID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != existing.Name {
		if err := ValidateDatabaseName(*req.Name); err != nil {
			return nil, err
		}
		var other string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM databases WHERE account_id = ? AND name = ? AND is_active = 1`,
			accountID, *req.Name,
		).Scan(&other)
		if err == nil {
			return nil, apperr.Conflict(fmt.Sprintf("Database with name '%s' already exists", *req.Name))
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check database name: %w", err)
		}
	}

	var (
		sets []string
		args []any
	)
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.MaxSizeBytes != nil {
		sets = append(sets, "max_size_bytes = ?")
		args = append(args, *req.MaxSizeBytes)
	}
	if req.MaxTables != nil {
		sets = append(sets, "max_tables = ?")
		args = append(args, *req.MaxTables)
	}
	if req.MaxRowsPerTable != nil {
		sets = append(sets, "max_rows_per_table = ?")
		args = append(args, *req.MaxRowsPerTable)
	}
	if req.QueryLimitPerHour != nil {
		sets = append(sets, "query_limit_per_hour = ?")
		args = append(args, *req.QueryLimitPerHour)
	}
	if len(sets) == 0 {
		return existing, nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), databaseID)

	query := `UPDATE databases SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update database %s: %w", databaseID, err)
	}

	return s.Get(ctx, accountID, databaseID)
}

// Delete soft-deletes the metadata row, then evicts any live handle and
// removes the physical file with its WAL side files.
func (s *DatabaseService) Delete(ctx context.Context, accountID, databaseID string) error {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM databases WHERE id = ? AND account_id = ? AND is_active = 1`,
		databaseID, accountID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Database not found")
	}
	if err != nil {
		return fmt.Errorf("get database %s: %w", databaseID, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE databases SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), databaseID,
	); err != nil {
		return fmt.Errorf("soft-delete database %s: %w", databaseID, err)
	}

	if err := s.registry.DeletePhysical(databaseID); err != nil {
		return fmt.Errorf("delete database file %s: %w", databaseID, err)
	}
	return nil
}

// GetOwned resolves a database for the query path: NotFound when absent or
// inactive, Forbidden when owned by a different account.
func (s *DatabaseService) GetOwned(ctx context.Context, accountID, databaseID string) (*model.Database, error) {
	d, err := scanDatabase(s.db.QueryRowContext(ctx,
		`SELECT `+databaseColumns+` FROM databases WHERE id = ? AND is_active = 1`, databaseID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Database not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get database %s: %w", databaseID, err)
	}

	if d.AccountID != accountID {
		return nil, apperr.Forbidden("Access denied")
	}
	return d, nil
}
