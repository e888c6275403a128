package serializer

import (
	"fmt"
	"io"
	"reflect"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/util"
)

// Serializer converts values to and from byte streams.
type Serializer interface {
	// Serialize writes value to w.
	Serialize(value any, w io.Writer) error
	// Deserialize reads one value from r.
	Deserialize(r io.Reader) (any, error)
	// Extension is the file extension used when naming persisted payloads.
	Extension() string
}

// Default is the serializer used when an input or output declares none.
var Default Serializer = JSON{}

// OrDefault returns s, or Default when s is nil.
func OrDefault(s Serializer) Serializer {
	if s == nil {
		return Default
	}
	return s
}

// Equal reports whether two serializers are the same codec with the same
// settings. A nil serializer stands for Default.
func Equal(a, b Serializer) bool {
	return reflect.DeepEqual(OrDefault(a), OrDefault(b))
}

// Name returns a printable description of s.
func Name(s Serializer) string {
	s = OrDefault(s)
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

var registry = map[string]Serializer{
	"json":  JSON{},
	"yaml":  YAML{},
	"gob":   Gob{},
	"bytes": Bytes{},
}

// Lookup returns the serializer registered under name.
func Lookup(name string) (Serializer, error) {
	if name == "" {
		return Default, nil
	}
	s, ok := registry[name]
	if !ok {
		return nil, errors.InvalidReference("serializer", name, util.SortedKeys(registry))
	}
	return s, nil
}
