package model

import "time"

// Statement classification kinds. Classification is purely lexical, by the
// leading keyword of the trimmed statement.
type QueryKind int

const (
	QueryKindOther QueryKind = iota
	QueryKindRead
	QueryKindWrite
	QueryKindSchema
)

func (k QueryKind) String() string {
	switch k {
	case QueryKindRead:
		return "read"
	case QueryKindWrite:
		return "write"
	case QueryKindSchema:
		return "schema"
	default:
		return "other"
	}
}

// QueryResult is the soft-fail result of one statement. Engine-level SQL
// errors land in Error with Success=false instead of propagating as faults.
type QueryResult struct {
	Success         bool             `json:"success"`
	Data            []map[string]any `json:"data,omitempty"`
	RowsAffected    *int64           `json:"rowsAffected,omitempty"`
	LastInsertRowID *int64           `json:"lastInsertRowid,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// BatchResult is the ordered outcome of a batch or migration run.
type BatchResult struct {
	Results []QueryResult `json:"results"`
}

// QueryLog is one append-only audit record per executed statement,
// including failed ones.
type QueryLog struct {
	ID           int64     `json:"id"`
	DatabaseID   string    `json:"database_id"`
	Query        string    `json:"query"`
	ExecutedAt   time.Time `json:"executed_at"`
	DurationMS   int64     `json:"duration_ms"`
	RowsAffected *int64    `json:"rows_affected"`
	Error        *string   `json:"error"`
}
