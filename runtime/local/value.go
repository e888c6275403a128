package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"reflect"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/storage"
)

// Value is a handle to a persisted value: a File or a Partitioned.
type Value interface {
	value()
}

// File is a single serialized value in storage.
type File struct {
	Path  string
	Codec serializer.Serializer
}

// Serializer returns the serializer the file was written with.
func (f File) Serializer() serializer.Serializer { return serializer.OrDefault(f.Codec) }

func (File) value() {}

// Partitioned is an ordered sequence of values, one per partition.
type Partitioned struct {
	Items []Value
}

// Len returns the number of partitions.
func (p Partitioned) Len() int { return len(p.Items) }

// All yields the partitions in order.
func (p Partitioned) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, v := range p.Items {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (Partitioned) value() {}

// Load deserializes v. A Partitioned value loads as []any in partition order.
func Load(ctx context.Context, store storage.Storage, v Value) (any, error) {
	switch h := v.(type) {
	case File:
		return readFile(ctx, store, h)
	case Partitioned:
		out := make([]any, h.Len())
		for i, item := range h.All() {
			loaded, err := Load(ctx, store, item)
			if err != nil {
				return nil, err
			}
			out[i] = loaded
		}
		return out, nil
	default:
		return nil, errors.InvalidType("unknown value handle", v)
	}
}

func readFile(ctx context.Context, store storage.Storage, f File) (any, error) {
	rc, err := store.Download(ctx, f.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	v, err := deserialize(f.Serializer(), rc)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.Deserialization(err).WithDetail("path", f.Path)
	}
	return v, nil
}

// writeFile streams value through codec into store at path and returns the
// handle and the number of bytes written.
func writeFile(ctx context.Context, store storage.Storage, path string, codec serializer.Serializer, value any) (File, int64, error) {
	codec = serializer.OrDefault(codec)
	pr, pw := io.Pipe()
	cw := &countingWriter{w: pw}
	serErr := make(chan error, 1)
	go func() {
		err := serialize(codec, value, cw)
		if err != nil && !errors.IsAppError(err) {
			err = errors.Serialization(err)
		}
		pw.CloseWithError(err)
		serErr <- err
	}()

	uploadErr := store.Upload(ctx, path, pr)
	if uploadErr != nil {
		pr.CloseWithError(uploadErr)
	} else {
		pr.Close()
	}
	err := <-serErr

	switch {
	case err != nil && (uploadErr == nil || !stderrors.Is(err, uploadErr)):
		return File{}, 0, err
	case uploadErr != nil:
		return File{}, 0, uploadErr
	}
	return File{Path: path, Codec: codec}, cw.n, nil
}

// serialize runs codec.Serialize, turning a panic in user marshalling code
// into a SERIALIZATION error.
func serialize(codec serializer.Serializer, value any, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Serialization(fmt.Errorf("serializer panicked: %v", r))
		}
	}()
	return codec.Serialize(value, w)
}

func deserialize(codec serializer.Serializer, r io.Reader) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, errors.Deserialization(fmt.Errorf("deserializer panicked: %v", p))
		}
	}()
	return codec.Deserialize(r)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// elements returns the elements of a slice or array value.
func elements(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
