// Package storage defines the Provider interface for object storage backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Errors reported by every Provider implementation.
var (
	// ErrAlreadyExists is returned by Put when the key is taken. Providers never overwrite.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound is returned by Open and Delete when no object is stored under the key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty keys or keys that escape the bucket.
	ErrInvalidKey = errors.New("invalid object key")
)

// Provider abstracts object storage operations.
type Provider interface {
	// Put writes data under key. It fails with ErrAlreadyExists instead of overwriting.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// AccessPath returns a consumer-accessible reference for a storage key.
	// The format depends on the backend (e.g. public bucket URL, server route).
	AccessPath(key string) string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Lister is an optional interface for providers that can enumerate their keys.
type Lister interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ValidateKey rejects keys that are empty, absolute, or contain traversal segments.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// JoinURL appends key to base, inserting a single slash.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
