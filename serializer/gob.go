package serializer

import (
	"encoding/gob"
	"io"

	"github.com/kbukum/dagflow/errors"
)

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// Gob serializes arbitrary Go values with encoding/gob, preserving their
// concrete types across the boundary. Custom types must be registered with
// gob.Register before use.
type Gob struct{}

// Serialize writes value to w as a gob stream.
func (s Gob) Serialize(value any, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(&value); err != nil {
		return errors.Serialization(err).WithDetail("serializer", s.String())
	}
	return nil
}

// Deserialize reads one gob-encoded value from r.
func (s Gob) Deserialize(r io.Reader) (any, error) {
	var v any
	if err := gob.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Deserialization(err).WithDetail("serializer", s.String())
	}
	return v, nil
}

// Extension returns "gob".
func (s Gob) Extension() string { return "gob" }

func (s Gob) String() string { return "Gob" }
