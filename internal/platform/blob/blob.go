// Package blob stores uploaded files and hands back publicly resolvable
// references. Objects are write-once; nothing in the listing lifecycle deletes
// them when evidence is cleared.
package blob

import (
	"context"
	"strings"
)

// Store uploads an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// PublicURL joins a base URL and an object key.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
