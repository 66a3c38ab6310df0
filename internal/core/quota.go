package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

type OperationKind string

const (
	OpWrite  OperationKind = "write"
	OpSchema OperationKind = "schema"
)

// QuotaService admits or rejects operations against per-account and
// per-database limits. Size checks go through the registry because the
// cached size_bytes can drift between statements.
type QuotaService struct {
	db       db.DB
	registry *tenantfile.Registry
}

func NewQuotaService(metaDB db.DB, registry *tenantfile.Registry) *QuotaService {
	return &QuotaService{db: metaDB, registry: registry}
}

// CheckDatabaseQuota fails when the account already has its maximum number
// of active databases.
func (s *QuotaService) CheckDatabaseQuota(ctx context.Context, accountID string) error {
	var maxDatabases int
	err := s.db.QueryRowContext(ctx,
		`SELECT max_databases FROM accounts WHERE id = ?`, accountID,
	).Scan(&maxDatabases)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Account not found")
	}
	if err != nil {
		return fmt.Errorf("get account %s: %w", accountID, err)
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM databases WHERE account_id = ? AND is_active = 1`, accountID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("count databases: %w", err)
	}

	if count >= maxDatabases {
		return apperr.QuotaExceeded(fmt.Sprintf("Maximum database limit (%d) reached", maxDatabases))
	}
	return nil
}

// CheckStorageQuota fails when the account's total physical footprint plus
// incomingBytes would exceed its storage limit. Sizes are reconciled from
// the actual files, not trusted from the cache.
func (s *QuotaService) CheckStorageQuota(ctx context.Context, accountID string, incomingBytes int64) error {
	var limit int64
	err := s.db.QueryRowContext(ctx,
		`SELECT total_storage_limit_bytes FROM accounts WHERE id = ?`, accountID,
	).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Account not found")
	}
	if err != nil {
		return fmt.Errorf("get account %s: %w", accountID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM databases WHERE account_id = ? AND is_active = 1`, accountID,
	)
	if err != nil {
		return fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan database id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate databases: %w", err)
	}

	var total int64
	for _, id := range ids {
		size, err := s.ReconcileSize(ctx, id)
		if err != nil {
			return err
		}
		total += size
	}

	if total+incomingBytes > limit {
		return apperr.QuotaExceeded(fmt.Sprintf("Storage quota exceeded. Used: %d bytes, Limit: %d bytes", total, limit))
	}
	return nil
}

// CheckDatabaseLimits admits a mutating operation against the database's
// hourly query budget, its physical size limit, and — for schema
// operations — its table limit.
func (s *QuotaService) CheckDatabaseLimits(ctx context.Context, databaseID string, op OperationKind) error {
	var d model.Database
	err := s.db.QueryRowContext(ctx,
		`SELECT max_size_bytes, max_tables, query_limit_per_hour, query_count
		 FROM databases WHERE id = ? AND is_active = 1`, databaseID,
	).Scan(&d.MaxSizeBytes, &d.MaxTables, &d.QueryLimitPerHour, &d.QueryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Database not found")
	}
	if err != nil {
		return fmt.Errorf("get database limits %s: %w", databaseID, err)
	}

	if d.QueryCount >= d.QueryLimitPerHour {
		return apperr.QuotaExceeded(fmt.Sprintf("Hourly query limit (%d) exceeded", d.QueryLimitPerHour))
	}

	size, err := s.ReconcileSize(ctx, databaseID)
	if err != nil {
		return err
	}
	if size > d.MaxSizeBytes {
		return apperr.QuotaExceeded(fmt.Sprintf("Database size limit (%d bytes) exceeded", d.MaxSizeBytes))
	}

	if op == OpSchema {
		tables, err := s.registry.TableCount(databaseID)
		if err != nil {
			return fmt.Errorf("count tables: %w", err)
		}
		if tables >= d.MaxTables {
			return apperr.QuotaExceeded(fmt.Sprintf("Maximum table limit (%d) reached", d.MaxTables))
		}
	}

	return nil
}

// RecordQuery increments the database's rolling hourly counter and stamps
// last_accessed_at.
func (s *QuotaService) RecordQuery(ctx context.Context, databaseID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE databases SET query_count = query_count + 1, last_accessed_at = ? WHERE id = ?`,
		time.Now().UTC(), databaseID,
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// ReconcileSize recomputes size_bytes from the physical file and persists it
// when it drifted. Returns the ground-truth size.
func (s *QuotaService) ReconcileSize(ctx context.Context, databaseID string) (int64, error) {
	actual := s.registry.Size(databaseID)

	var cached int64
	err := s.db.QueryRowContext(ctx,
		`SELECT size_bytes FROM databases WHERE id = ?`, databaseID,
	).Scan(&cached)
	if errors.Is(err, sql.ErrNoRows) {
		return actual, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cached size %s: %w", databaseID, err)
	}

	if cached != actual {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE databases SET size_bytes = ? WHERE id = ?`, actual, databaseID,
		); err != nil {
			return 0, fmt.Errorf("update size %s: %w", databaseID, err)
		}
	}
	return actual, nil
}

// ResetHourlyCounters zeroes every database's query counter. Idempotent;
// invoked by an external scheduler once per hour.
func (s *QuotaService) ResetHourlyCounters(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE databases SET query_count = 0`); err != nil {
		return fmt.Errorf("reset query counters: %w", err)
	}
	return nil
}
