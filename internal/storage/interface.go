package storage

import (
	"context"
	"io"
)

// ArtifactStore is the durable destination for finished export artifacts.
// Save returns the path/key that Open, Delete and Exists accept.
type ArtifactStore interface {
	// Save writes the artifact and returns its durable path.
	Save(ctx context.Context, name string, reader io.Reader, size int64) (string, error)

	// Open streams a stored artifact and reports its size.
	Open(ctx context.Context, path string) (io.ReadCloser, int64, error)

	// Delete removes a stored artifact.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an artifact is still present.
	Exists(ctx context.Context, path string) (bool, error)
}
