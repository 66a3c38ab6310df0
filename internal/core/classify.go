package core

import (
	"strings"

	"github.com/edvin/tenantdb/internal/model"
)

var (
	writeKeywords  = []string{"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE"}
	schemaKeywords = []string{"CREATE", "ALTER", "DROP", "TRUNCATE"}
	readKeywords   = []string{"SELECT", "WITH"}
)

// Classify determines a statement's kind from its leading keyword. The match
// is purely lexical; anything unrecognized executes as a generic statement
// without row-returning semantics.
func Classify(query string) model.QueryKind {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range schemaKeywords {
		if strings.HasPrefix(upper, kw) {
			return model.QueryKindSchema
		}
	}
	for _, kw := range writeKeywords {
		if strings.HasPrefix(upper, kw) {
			return model.QueryKindWrite
		}
	}
	for _, kw := range readKeywords {
		if strings.HasPrefix(upper, kw) {
			return model.QueryKindRead
		}
	}
	return model.QueryKindOther
}
