package request

// Query holds one statement with positional parameters.
type Query struct {
	Query  string `json:"query" validate:"required"`
	Params []any  `json:"params"`
}

// Batch holds an ordered list of statements executed without a transaction.
type Batch struct {
	Queries []Query `json:"queries" validate:"required,min=1,dive"`
}

// Migrate holds an ordered list of statements executed in one transaction.
type Migrate struct {
	Queries []string `json:"queries" validate:"required,min=1"`
}
