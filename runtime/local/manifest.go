package local

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/storage"
)

// ManifestName is the file listing the partitions stored in a directory.
const ManifestName = "manifest.json"

// Manifest lists partition entries relative to their directory, in partition
// order. Entries ending in "/" are nested partitioned directories with their
// own manifest.
type Manifest struct {
	Partitions []string `json:"partitions"`
}

func writeManifest(ctx context.Context, store storage.Storage, dir string, m Manifest) error {
	if m.Partitions == nil {
		m.Partitions = []string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Serialization(err)
	}
	return storage.WriteBytes(ctx, store, path.Join(dir, ManifestName), data)
}

// ReadManifest reads the manifest of dir.
func ReadManifest(ctx context.Context, store storage.Storage, dir string) (Manifest, error) {
	var m Manifest
	data, err := storage.ReadBytes(ctx, store, path.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Deserialization(err).WithDetail("path", path.Join(dir, ManifestName))
	}
	return m, nil
}

// writeElements persists each element to dir/<i>.<ext> and writes the
// manifest. It returns the handles and the total bytes written.
func writeElements(ctx context.Context, store storage.Storage, dir string, codec serializer.Serializer, elems []any) (Partitioned, int64, error) {
	codec = serializer.OrDefault(codec)
	p := Partitioned{Items: make([]Value, len(elems))}
	m := Manifest{Partitions: make([]string, len(elems))}
	var total int64
	for i, elem := range elems {
		name := strconv.Itoa(i) + "." + codec.Extension()
		f, n, err := writeFile(ctx, store, path.Join(dir, name), codec, elem)
		if err != nil {
			return Partitioned{}, 0, err
		}
		p.Items[i] = f
		m.Partitions[i] = name
		total += n
	}
	if err := writeManifest(ctx, store, dir, m); err != nil {
		return Partitioned{}, 0, err
	}
	return p, total, nil
}

// ReadPartitioned opens the partitioned directory dir. Element files are
// read with codec.
func ReadPartitioned(ctx context.Context, store storage.Storage, dir string, codec serializer.Serializer) (Partitioned, error) {
	m, err := ReadManifest(ctx, store, dir)
	if err != nil {
		return Partitioned{}, err
	}
	p := Partitioned{Items: make([]Value, len(m.Partitions))}
	for i, entry := range m.Partitions {
		if strings.Contains(strings.TrimSuffix(entry, "/"), "/") || entry == "" || strings.HasPrefix(entry, ".") {
			return Partitioned{}, errors.Deserialization(fmt.Errorf("invalid manifest entry %q", entry)).
				WithDetail("path", path.Join(dir, ManifestName))
		}
		if strings.HasSuffix(entry, "/") {
			nested, err := ReadPartitioned(ctx, store, path.Join(dir, entry), codec)
			if err != nil {
				return Partitioned{}, err
			}
			p.Items[i] = nested
			continue
		}
		p.Items[i] = File{Path: path.Join(dir, entry), Codec: serializer.OrDefault(codec)}
	}
	return p, nil
}

// Export copies v from src to dst. A File is copied to target; a Partitioned
// becomes the directory target holding one entry per partition and a
// manifest.
func Export(ctx context.Context, src storage.Storage, v Value, dst storage.Storage, target string) error {
	switch h := v.(type) {
	case File:
		return copyObject(ctx, src, h.Path, dst, target)
	case Partitioned:
		m := Manifest{Partitions: make([]string, h.Len())}
		for i, item := range h.All() {
			switch it := item.(type) {
			case File:
				m.Partitions[i] = strconv.Itoa(i) + "." + it.Serializer().Extension()
			default:
				m.Partitions[i] = strconv.Itoa(i) + "/"
			}
			if err := Export(ctx, src, item, dst, path.Join(target, m.Partitions[i])); err != nil {
				return err
			}
		}
		return writeManifest(ctx, dst, target, m)
	default:
		return errors.InvalidType("unknown value handle", v)
	}
}

// Import returns a handle to the value stored at target: a File when target
// is an object, a Partitioned when target is a directory with a manifest.
func Import(ctx context.Context, store storage.Storage, target string, codec serializer.Serializer) (Value, error) {
	ok, err := store.Exists(ctx, target)
	if err != nil {
		return nil, err
	}
	if ok {
		return File{Path: target, Codec: serializer.OrDefault(codec)}, nil
	}
	ok, err = store.Exists(ctx, path.Join(target, ManifestName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Storage(target, storage.ErrNotFound)
	}
	return ReadPartitioned(ctx, store, target, codec)
}

func copyObject(ctx context.Context, src storage.Storage, from string, dst storage.Storage, to string) error {
	rc, err := src.Download(ctx, from)
	if err != nil {
		return err
	}
	defer rc.Close()
	return dst.Upload(ctx, to, rc)
}
