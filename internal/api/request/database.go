package request

// CreateDatabase holds the request body for creating a tenant database.
// Unset limits fall back to the configured defaults.
type CreateDatabase struct {
	Name              string `json:"name" validate:"required,dbname"`
	MaxSizeBytes      *int64 `json:"max_size_bytes" validate:"omitempty,gt=0"`
	MaxTables         *int   `json:"max_tables" validate:"omitempty,gt=0"`
	MaxRowsPerTable   *int   `json:"max_rows_per_table" validate:"omitempty,gt=0"`
	QueryLimitPerHour *int   `json:"query_limit_per_hour" validate:"omitempty,gt=0"`
}

// UpdateDatabase holds the request body for a partial update of a database's
// name or limits.
type UpdateDatabase struct {
	Name              *string `json:"name" validate:"omitempty,dbname"`
	MaxSizeBytes      *int64  `json:"max_size_bytes" validate:"omitempty,gt=0"`
	MaxTables         *int    `json:"max_tables" validate:"omitempty,gt=0"`
	MaxRowsPerTable   *int    `json:"max_rows_per_table" validate:"omitempty,gt=0"`
	QueryLimitPerHour *int    `json:"query_limit_per_hour" validate:"omitempty,gt=0"`
}
