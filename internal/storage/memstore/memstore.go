// Package memstore implements storage.Provider in process memory.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/memohai/roastery/internal/storage"
)

type object struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	objects   map[string]object
	publicURL string
	now       func() time.Time
}

var (
	_ storage.Provider = (*Store)(nil)
	_ storage.Lister   = (*Store)(nil)
)

// New creates an empty store; publicURL prefixes AccessPath results.
func New(publicURL string) *Store {
	return &Store{
		objects:   make(map[string]object),
		publicURL: publicURL,
		now:       time.Now,
	}
}

// Put stores a copy of reader's bytes, failing with storage.ErrAlreadyExists if taken.
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, key)
	}
	s.objects[key] = object{data: data, contentType: contentType, modTime: s.now()}
	return nil
}

// Open returns a reader over a copy of the stored bytes.
func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

// AccessPath joins key onto the configured public URL.
func (s *Store) AccessPath(key string) string {
	return storage.JoinURL(s.publicURL, key)
}

// List returns objects whose key starts with prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.ObjectInfo, 0, len(s.objects))
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(obj.data)), ModTime: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ContentType returns the content type recorded for key.
func (s *Store) ContentType(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.contentType, ok
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
