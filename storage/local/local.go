// Package local stores objects as files below a base directory.
package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, log *logger.Logger) (storage.Storage, error) {
		s, err := NewStorage(cfg.BasePath)
		if err != nil {
			return nil, err
		}
		log.Debug("local storage ready", logger.Fields(logger.FieldPath, s.basePath))
		return s, nil
	})
}

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Storage) BasePath() string { return s.basePath }

// resolve maps a slash-separated object path to a file below basePath.
func (s *Storage) resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Storage(path, fmt.Errorf("path escapes base directory %s", s.basePath))
	}
	return full, nil
}

// Upload writes data from reader to a temporary file and renames it into
// place, so readers never observe a partially written object.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Storage(path, fmt.Errorf("create directory: %w", err))
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return errors.Storage(path, fmt.Errorf("create file: %w", err))
	}
	tmp := f.Name()
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()      //nolint:errcheck // write error takes precedence
		os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return errors.Storage(path, fmt.Errorf("write file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return errors.Storage(path, fmt.Errorf("close file: %w", err))
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return errors.Storage(path, fmt.Errorf("rename file: %w", err))
	}
	return nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Storage(path, storage.ErrNotFound)
		}
		return nil, errors.Storage(path, fmt.Errorf("open file: %w", err))
	}
	return f, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Storage(path, fmt.Errorf("delete file: %w", err))
	}
	return nil
}

// Exists checks whether a regular file exists at path.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Storage(path, fmt.Errorf("stat file: %w", err))
	}
	return !info.IsDir(), nil
}

// List returns metadata for all files whose relative path starts with prefix.
// Temporary files of in-flight uploads are skipped.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	root := s.basePath
	if dir, _ := splitPrefix(prefix); dir != "" {
		resolved, err := s.resolve(dir)
		if err != nil {
			return nil, err
		}
		root = resolved
	}

	files := []storage.FileInfo{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, storage.FileInfo{Path: rel, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return []storage.FileInfo{}, nil
		}
		return nil, errors.Storage(prefix, fmt.Errorf("list files: %w", err))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// splitPrefix splits a listing prefix into its directory part and the
// partial name that follows it.
func splitPrefix(prefix string) (dir, rest string) {
	i := strings.LastIndex(prefix, "/")
	if i < 0 {
		return "", prefix
	}
	return prefix[:i], prefix[i+1:]
}

// compile-time check
var _ storage.Storage = (*Storage)(nil)
