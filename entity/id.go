package entity

import (
	"strings"

	"github.com/google/uuid"
)

// CanonicalID returns the lower-case hyphenated form of a UUID, which is how
// Postgres hands identifiers back. Other values are only trimmed.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}

	return id
}
