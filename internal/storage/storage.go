package storage

import (
	"context"
	"io"
	"time"
)

// Store persists uploaded document files and hands out time-limited
// download URLs. Keys are opaque to callers; the handler records them on
// the document row and passes them back verbatim.
type Store interface {
	Upload(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// DownloadLinkTTL is how long a presigned download URL stays usable.
const DownloadLinkTTL = 15 * time.Minute
