package model

import "time"

// Database is the metadata record for one tenant SQLite file. SizeBytes is a
// cache of the physical file size and is reconciled before quota decisions
// and before being returned to callers.
type Database struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"-"`
	Name              string     `json:"name"`
	Filename          string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastAccessedAt    *time.Time `json:"last_accessed_at"`
	SizeBytes         int64      `json:"size_bytes"`
	MaxSizeBytes      int64      `json:"max_size_bytes"`
	MaxTables         int        `json:"max_tables"`
	MaxRowsPerTable   int        `json:"max_rows_per_table"`
	QueryCount        int        `json:"query_count"`
	QueryLimitPerHour int        `json:"query_limit_per_hour"`
	IsActive          bool       `json:"-"`
}
