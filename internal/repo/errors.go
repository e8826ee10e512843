package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup or targeted update matches no row.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate is returned when an insert or update hits a unique index.
	ErrDuplicate = errors.New("duplicate")
)

// isUniqueViolation detects unique-index failures. glebarez/sqlite often
// returns plain-text errors instead of gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// escapeLike escapes LIKE wildcards so user text matches literally with
// ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
