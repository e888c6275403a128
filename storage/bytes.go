package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/kbukum/dagflow/errors"
)

// WriteBytes stores data at path.
func WriteBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// ReadBytes reads the whole object at path.
func ReadBytes(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Storage(path, err)
	}
	return data, nil
}

// DeletePrefix removes every object whose path starts with prefix.
func DeletePrefix(ctx context.Context, s Storage, prefix string) error {
	files, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.Delete(ctx, f.Path); err != nil {
			return err
		}
	}
	return nil
}
