package out

import (
	"context"
	"errors"
)

// ErrCorrupt is returned by RecordStore.Load when a stored document exists but cannot be decoded.
var ErrCorrupt = errors.New("record store: corrupt document")

// RecordStore persists JSON documents by relative name (e.g. "data/emails_cleaned.json").
type RecordStore interface {
	// Load decodes the named document into dest. found is false when it does not exist.
	Load(ctx context.Context, name string, dest any) (found bool, err error)
	// Save overwrites the named document.
	Save(ctx context.Context, name string, v any) error
	// Append adds one entry to an append-only log.
	Append(ctx context.Context, name string, v any) error
}

// BlobStore stores raw bytes such as email attachments.
type BlobStore interface {
	PutBlob(ctx context.Context, name string, data []byte) (path string, err error)
}
