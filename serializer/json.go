package serializer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/dagflow/errors"
)

// JSON serializes values as JSON documents. Numbers decode as float64,
// objects as map[string]any and arrays as []any.
type JSON struct {
	// Indent is the number of spaces used to indent nested values; 0 writes compact JSON.
	Indent int
}

// Serialize writes value to w as JSON.
func (s JSON) Serialize(value any, w io.Writer) error {
	enc := json.NewEncoder(w)
	if s.Indent > 0 {
		enc.SetIndent("", fmt.Sprintf("%*s", s.Indent, ""))
	}
	if err := enc.Encode(value); err != nil {
		return errors.Serialization(err).WithDetail("serializer", s.String())
	}
	return nil
}

// Deserialize reads one JSON document from r.
func (s JSON) Deserialize(r io.Reader) (any, error) {
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Deserialization(err).WithDetail("serializer", s.String())
	}
	return v, nil
}

// Extension returns "json".
func (s JSON) Extension() string { return "json" }

func (s JSON) String() string { return fmt.Sprintf("JSON(indent=%d)", s.Indent) }
