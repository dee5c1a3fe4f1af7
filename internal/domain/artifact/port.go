package artifact

import (
	"context"
	"time"
)

// Store port (interface untuk penyimpanan artefak).
// Put/Presign/Remove serve the typesetting flow; Get serves resume
// download and PDF streaming. No listing or versioning.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}
