package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edvin/tenantdb/internal/apperr"
)

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dbNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// Statements matching any of these anywhere in their text are rejected
// outright: they attach external files or change engine runtime behavior.
// This is a blunt substring denylist, not a parser, so a keyword inside a
// string literal is rejected too.
var forbiddenKeywords = []string{"ATTACH", "DETACH", "PRAGMA"}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return apperr.Validation("Invalid email format")
	}
	return nil
}

func ValidateDatabaseName(name string) error {
	if name == "" || len(name) > 64 {
		return apperr.Validation("Database name must be between 1 and 64 characters")
	}
	if !dbNameRegex.MatchString(name) {
		return apperr.Validation("Database name can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

func ValidateQuery(query string, maxLength int) error {
	if strings.TrimSpace(query) == "" {
		return apperr.Validation("Query cannot be empty")
	}
	if len(query) > maxLength {
		return apperr.Validation(fmt.Sprintf("Query exceeds maximum length of %d characters", maxLength))
	}
	return nil
}

func CheckForbiddenQuery(query string) error {
	upper := strings.ToUpper(query)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return apperr.Validation("Query contains forbidden keyword: " + kw)
		}
	}
	return nil
}
