package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/metrics"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

// Query text in the audit log is truncated to this many bytes.
const maxLoggedQueryLength = 10000

// QueryService validates, classifies, admits, executes, and logs statements
// against tenant databases. Engine-level SQL errors are soft failures: they
// come back as a QueryResult with Success=false, never as an error return.
// Validation, quota, and infrastructure failures do return errors.
type QueryService struct {
	db       db.DB
	registry *tenantfile.Registry
	quota    *QuotaService
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewQueryService(metaDB db.DB, registry *tenantfile.Registry, quota *QuotaService, cfg *config.Config, logger zerolog.Logger) *QueryService {
	return &QueryService{db: metaDB, registry: registry, quota: quota, cfg: cfg, logger: logger}
}

// logQuery appends one audit record. Audit failures are logged but never
// fail the statement they describe.
func (s *QueryService) logQuery(ctx context.Context, databaseID, query string, duration time.Duration, rowsAffected *int64, execErr *string) {
	if len(query) > maxLoggedQueryLength {
		query = query[:maxLoggedQueryLength]
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_logs (database_id, query, executed_at, duration_ms, rows_affected, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		databaseID, query, time.Now().UTC(), duration.Milliseconds(), rowsAffected, execErr,
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("database_id", databaseID).Msg("write query log")
	}
}

// Execute runs a single statement. Reads return all result rows;
// writes/schema statements must pass quota admission first and report
// affected rows plus the last inserted row ID.
func (s *QueryService) Execute(ctx context.Context, databaseID string, req request.Query) (model.QueryResult, error) {
	if err := ValidateQuery(req.Query, s.cfg.MaxQueryLength); err != nil {
		return model.QueryResult{}, err
	}
	if err := CheckForbiddenQuery(req.Query); err != nil {
		return model.QueryResult{}, err
	}

	kind := Classify(req.Query)

	if kind == model.QueryKindWrite || kind == model.QueryKindSchema {
		op := OpWrite
		if kind == model.QueryKindSchema {
			op = OpSchema
		}
		if err := s.quota.CheckDatabaseLimits(ctx, databaseID, op); err != nil {
			// Quota rejections are part of the audit trail too.
			if apperr.IsCode(err, "QUOTA_EXCEEDED") {
				metrics.ObserveQuotaRejection(string(op))
				msg := err.Error()
				s.logQuery(ctx, databaseID, req.Query, 0, nil, &msg)
			}
			return model.QueryResult{}, err
		}
	}

	handle, err := s.registry.Acquire(databaseID)
	if err != nil {
		return model.QueryResult{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()

	if kind == model.QueryKindRead {
		data, err := collectRows(execCtx, handle, req.Query, req.Params)
		duration := time.Since(start)
		if err != nil {
			return s.softFail(ctx, databaseID, req.Query, duration, err), nil
		}

		if err := s.quota.RecordQuery(ctx, databaseID); err != nil {
			return model.QueryResult{}, err
		}
		affected := int64(len(data))
		s.logQuery(ctx, databaseID, req.Query, duration, &affected, nil)
		metrics.ObserveQuery(kind.String(), true)

		return model.QueryResult{Success: true, Data: data}, nil
	}

	res, err := handle.ExecContext(execCtx, req.Query, req.Params...)
	duration := time.Since(start)
	if err != nil {
		return s.softFail(ctx, databaseID, req.Query, duration, err), nil
	}

	changes, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()

	if err := s.quota.RecordQuery(ctx, databaseID); err != nil {
		return model.QueryResult{}, err
	}
	if kind == model.QueryKindWrite || kind == model.QueryKindSchema {
		if _, err := s.quota.ReconcileSize(ctx, databaseID); err != nil {
			return model.QueryResult{}, err
		}
	}
	s.logQuery(ctx, databaseID, req.Query, duration, &changes, nil)
	metrics.ObserveQuery(kind.String(), true)

	return model.QueryResult{Success: true, RowsAffected: &changes, LastInsertRowID: &lastID}, nil
}

// ExecuteBatch runs statements sequentially, stopping at the first failed
// result. Nothing is rolled back: effects of earlier statements persist.
func (s *QueryService) ExecuteBatch(ctx context.Context, databaseID string, queries []request.Query) (model.BatchResult, error) {
	var batch model.BatchResult
	for _, q := range queries {
		result, err := s.Execute(ctx, databaseID, q)
		if err != nil {
			return model.BatchResult{}, err
		}
		batch.Results = append(batch.Results, result)
		if !result.Success {
			break
		}
	}
	return batch, nil
}

// ExecuteMigration runs statements in a single transaction. The first
// statement failure rolls everything back; each attempt is still logged
// individually. The query counter and size cache are updated once, after a
// successful commit. Transaction plumbing errors become one appended
// failure result.
func (s *QueryService) ExecuteMigration(ctx context.Context, databaseID string, queries []string) (model.BatchResult, error) {
	if err := s.quota.CheckDatabaseLimits(ctx, databaseID, OpSchema); err != nil {
		return model.BatchResult{}, err
	}

	handle, err := s.registry.Acquire(databaseID)
	if err != nil {
		return model.BatchResult{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	var batch model.BatchResult

	tx, err := handle.BeginTx(execCtx, nil)
	if err != nil {
		batch.Results = append(batch.Results, model.QueryResult{Success: false, Error: err.Error()})
		return batch, nil
	}

	for _, query := range queries {
		if err := ValidateQuery(query, s.cfg.MaxQueryLength); err != nil {
			_ = tx.Rollback()
			batch.Results = append(batch.Results, model.QueryResult{Success: false, Error: err.Error()})
			return batch, nil
		}
		if err := CheckForbiddenQuery(query); err != nil {
			_ = tx.Rollback()
			batch.Results = append(batch.Results, model.QueryResult{Success: false, Error: err.Error()})
			return batch, nil
		}

		start := time.Now()
		res, execErr := tx.ExecContext(execCtx, query)
		duration := time.Since(start)

		if execErr != nil {
			msg := execErr.Error()
			s.logQuery(ctx, databaseID, query, duration, nil, &msg)
			_ = tx.Rollback()
			batch.Results = append(batch.Results, model.QueryResult{Success: false, Error: msg})
			return batch, nil
		}

		changes, _ := res.RowsAffected()
		lastID, _ := res.LastInsertId()
		s.logQuery(ctx, databaseID, query, duration, &changes, nil)
		batch.Results = append(batch.Results, model.QueryResult{Success: true, RowsAffected: &changes, LastInsertRowID: &lastID})
	}

	if err := tx.Commit(); err != nil {
		batch.Results = append(batch.Results, model.QueryResult{Success: false, Error: err.Error()})
		return batch, nil
	}

	if err := s.quota.RecordQuery(ctx, databaseID); err != nil {
		return model.BatchResult{}, err
	}
	if _, err := s.quota.ReconcileSize(ctx, databaseID); err != nil {
		return model.BatchResult{}, err
	}

	return batch, nil
}

func (s *QueryService) softFail(ctx context.Context, databaseID, query string, duration time.Duration, execErr error) model.QueryResult {
	msg := execErr.Error()
	s.logQuery(ctx, databaseID, query, duration, nil, &msg)
	metrics.ObserveQuery(Classify(query).String(), false)
	return model.QueryResult{Success: false, Error: msg}
}

// collectRows runs a read statement and materializes every row as a map of
// column name to value. []byte values come back as strings so they stay
// JSON-friendly.
func collectRows(ctx context.Context, handle *sql.DB, query string, params []any) ([]map[string]any, error) {
	rows, err := handle.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
