package local

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/storage"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	return s
}

func TestStorage_UploadCreatesDirectories(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	if err := s.Upload(ctx, "runs/1/square/x.json", strings.NewReader("64")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.BasePath(), "runs", "1", "square", "x.json"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "64" {
		t.Errorf("got %q, want 64", data)
	}
}

func TestStorage_UploadReplaces(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	_ = storage.WriteBytes(ctx, s, "a", []byte("first"))
	_ = storage.WriteBytes(ctx, s, "a", []byte("second"))

	data, err := storage.ReadBytes(ctx, s, "a")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("got %q, want second", data)
	}
	files, _ := s.List(ctx, "")
	if len(files) != 1 {
		t.Errorf("expected no leftover temp files, got %+v", files)
	}
}

func TestStorage_DownloadMissing(t *testing.T) {
	_, err := newStorage(t).Download(context.Background(), "nope.json")
	if !stderrors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_RejectsEscapingPaths(t *testing.T) {
	s := newStorage(t)
	err := s.Upload(context.Background(), "../outside.json", strings.NewReader("x"))
	if !errors.HasCode(err, errors.ErrCodeStorage) {
		t.Fatalf("expected STORAGE, got %v", err)
	}
}

func TestStorage_ExistsDelete(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	_ = storage.WriteBytes(ctx, s, "dir/file", []byte("x"))

	if ok, _ := s.Exists(ctx, "dir/file"); !ok {
		t.Error("expected file to exist")
	}
	if ok, _ := s.Exists(ctx, "dir"); ok {
		t.Error("directories are not objects")
	}
	if err := s.Delete(ctx, "dir/file"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "dir/file"); err != nil {
		t.Errorf("deleting a missing file should succeed, got %v", err)
	}
	if ok, _ := s.Exists(ctx, "dir/file"); ok {
		t.Error("expected file to be gone")
	}
}

func TestStorage_List(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	for _, p := range []string{"run/b/out/1.json", "run/b/out/0.json", "run/a/x.json", "runner/z.json"} {
		if err := storage.WriteBytes(ctx, s, p, []byte("1")); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"run/b/", []string{"run/b/out/0.json", "run/b/out/1.json"}},
		{"run/", []string{"run/a/x.json", "run/b/out/0.json", "run/b/out/1.json"}},
		{"run", []string{"run/a/x.json", "run/b/out/0.json", "run/b/out/1.json", "runner/z.json"}},
		{"missing/", nil},
	}
	for _, tc := range tests {
		t.Run(tc.prefix, func(t *testing.T) {
			files, err := s.List(ctx, tc.prefix)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(files) != len(tc.want) {
				t.Fatalf("got %d files, want %d: %+v", len(files), len(tc.want), files)
			}
			for i, f := range files {
				if f.Path != tc.want[i] {
					t.Errorf("files[%d] = %s, want %s", i, f.Path, tc.want[i])
				}
			}
		})
	}
}
