// Package memory provides a storage.Storage backed by an in-process map.
//
// It backs in-memory invocation and tests:
//
//	store := memory.New()
//	engine := local.NewEngine(local.WithStorage(store))
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(_ storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

// memFile holds a stored object's data and metadata.
type memFile struct {
	data    []byte
	modTime time.Time
}

// Storage is safe for concurrent use.
type Storage struct {
	mu    sync.RWMutex
	files map[string]*memFile
}

// New creates an empty in-memory store.
func New() *Storage {
	return &Storage{files: make(map[string]*memFile)}
}

// Upload reads reader fully and stores a copy under path.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return errors.Storage(path, fmt.Errorf("read upload data: %w", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &memFile{data: data, modTime: time.Now()}
	return nil
}

// Download returns a reader over the bytes stored at path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, errors.Storage(path, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Delete removes path. Missing paths are not an error.
func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

// Exists reports whether path holds an object.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok, nil
}

// List returns the objects under prefix sorted by path.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []storage.FileInfo{}
	for path, f := range s.files {
		if strings.HasPrefix(path, prefix) {
			result = append(result, storage.FileInfo{
				Path:         path,
				Size:         int64(len(f.data)),
				LastModified: f.modTime,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Reset removes every object.
func (s *Storage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]*memFile)
}

var _ storage.Storage = (*Storage)(nil)
