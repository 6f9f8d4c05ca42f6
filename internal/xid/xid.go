package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random id tagged with prefix, e.g. "sale-3f0c...".
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// HasPrefix reports whether id was minted by New with the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-")
}
