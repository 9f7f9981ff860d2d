// Package cache provides the injected TTL cache capability the gateway uses
// for /info responses. Repeated lookups for the same canonical URL within the
// TTL window must not re-invoke the metadata extractor; that contract lives
// here. The core components never touch the cache.
package cache

import (
	"context"

	"github.com/ytget/ytgate/internal/media"
)

// Store is the cache capability handed to the gateway. Implementations must
// be safe under interleaved access from many concurrent requests.
type Store interface {
	// Get returns the cached media info for a canonical source URL, or
	// false when absent or expired.
	Get(ctx context.Context, key string) (*media.Info, bool)
	// Set stores media info under a canonical source URL. The entry is
	// visible to Get only while its age is below the store's TTL.
	Set(ctx context.Context, key string, info *media.Info)
	// Close releases background resources.
	Close() error
}
