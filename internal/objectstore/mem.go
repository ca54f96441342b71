package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/edvin/searchvault/internal/model"
)

type memBlob struct {
	content []byte
	version string
}

// MemStore is an in-memory Store used by tests and local dry runs.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
	clock *versionClock
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string]memBlob), clock: newVersionClock()}
}

func (s *MemStore) Put(_ context.Context, path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = memBlob{content: append([]byte(nil), content...), version: s.clock.next()}
	return nil
}

func (s *MemStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	return append([]byte(nil), b.content...), nil
}

func (s *MemStore) List(_ context.Context, prefix string) ([]model.BlobRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []model.BlobRef
	for name, b := range s.blobs {
		if strings.HasPrefix(name, prefix) {
			refs = append(refs, model.BlobRef{Name: name, VersionID: b.version})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// SetVersion overrides the version id of an existing blob.
func (s *MemStore) SetVersion(path, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[path]; ok {
		b.version = version
		s.blobs[path] = b
	}
}

// Len returns the number of stored blobs.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
