package quota

import (
	"context"
	"time"
)

// Store abstracts an atomic counter with per-key expiry. Counts are
// monotonically non-decreasing within a window; a key whose window has passed
// reads as zero.
type Store interface {
	// Increment atomically bumps the counter for key and returns the
	// post-increment count. An expired key restarts at 1.
	Increment(ctx context.Context, key string) (int64, error)
	// Peek returns the current count without mutating it. Absent or expired
	// keys return 0.
	Peek(ctx context.Context, key string) (int64, error)
	// ExpireAfter arms the expiry for key. Callers arm it only on the 0->1
	// transition of the counter.
	ExpireAfter(ctx context.Context, key string, ttl time.Duration) error
}
