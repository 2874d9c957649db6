package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"office-dashboard/internal/dashboard/domain/repository"
)

var _ repository.ObjectStore = (*MemoryStorage)(nil)

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in a map. URLs point at BaseURL and carry
// the expiry so callers can tell them apart in tests.
type MemoryStorage struct {
	BaseURL string
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{BaseURL: baseURL, objects: make(map[string]Object)}
}

func (s *MemoryStorage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = Object{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) PresignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %q not found", key)
	}
	return fmt.Sprintf("%s/%s?expires=%d", s.BaseURL, url.PathEscape(key), int(expires.Seconds())), nil
}

func (s *MemoryStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get returns a stored object.
func (s *MemoryStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}
