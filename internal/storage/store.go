// Package storage provides the remote object storage that holds published drafts.
//
// The bucket is shared mutable state across runs. No locking is performed: two
// runs syncing the same draft race and the last write wins.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"time"
)

// Bucket is a flat key/object store keyed by slash-separated paths.
type Bucket interface {
	// Name identifies the bucket in logs and errors.
	Name() string

	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Head returns object information without the body.
	// Returns ErrNotFound if the object doesn't exist.
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// Get returns the object body.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores size bytes read from body under key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64, meta map[string]string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Touch replaces the user metadata of an existing object, keeping its content.
	Touch(ctx context.Context, key string, meta map[string]string) error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string // unquoted; the hex MD5 of the content for single-part uploads
	LastModified time.Time
	Metadata     map[string]string
}

// ErrNotFound is returned when an object doesn't exist.
var ErrNotFound = errors.New("object not found")

// IsNotFound returns true if err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ContentType guesses the MIME type for key from its extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
