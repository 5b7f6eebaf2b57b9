// Package sqlutil provides SQL identifier helpers for Firmament.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier wraps a MySQL identifier (table or column name) in
// backticks, doubling any embedded backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts identifiers to alphanumerics and
// underscores. Report table and column names come from configuration, so
// anything outside this set is rejected before it reaches a query.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name is safe to interpolate into a
// query as a quoted identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}
