package mediastore

import (
	"context"
	"io"
)

// MediaStore stages uploaded media on durable storage for tools that need a
// file rather than a byte slice.
type MediaStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Delete(ctx context.Context, storageKey string) error
}

// PathStore is a MediaStore whose objects are addressable as local files.
type PathStore interface {
	MediaStore
	Path(storageKey string) (string, error)
}
