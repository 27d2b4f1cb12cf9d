package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key joins parts into a colon separated cache key.
func Key(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// HashedKey appends a short digest of the parts to prefix. Used when the raw
// parts would make keys unbounded.
func HashedKey(prefix string, parts ...any) string {
	return prefix + ":" + strconv.FormatUint(xxhash.Sum64String(Key(parts...)), 16)
}

// RatePlans is the key holding the serialised rate-plan table.
func RatePlans(namespace string) string {
	if namespace == "" {
		return "rateplans:all"
	}
	return namespace + ":rateplans:all"
}
