package serializer

import (
	"fmt"
	"io"

	"github.com/kbukum/dagflow/errors"
)

// Bytes passes raw payloads through untouched. It accepts []byte and string
// values and always deserializes to []byte.
type Bytes struct{}

// Serialize writes the raw bytes of value to w.
func (s Bytes) Serialize(value any, w io.Writer) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Serialization(fmt.Errorf("expected []byte or string, got %T", value)).
			WithDetail("serializer", s.String())
	}
	if _, err := w.Write(data); err != nil {
		return errors.Serialization(err).WithDetail("serializer", s.String())
	}
	return nil
}

// Deserialize reads r to the end.
func (s Bytes) Deserialize(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Deserialization(err).WithDetail("serializer", s.String())
	}
	return data, nil
}

// Extension returns "bin".
func (s Bytes) Extension() string { return "bin" }

func (s Bytes) String() string { return "Bytes" }
