package serializer

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/dagflow/errors"
)

// YAML serializes values as a single YAML document.
type YAML struct{}

// Serialize writes value to w as YAML.
func (s YAML) Serialize(value any, w io.Writer) (err error) {
	defer func() {
		// yaml.v3 panics on some unsupported kinds (funcs, channels)
		if r := recover(); r != nil {
			err = errors.Serialization(nil).WithDetail("panic", r).WithDetail("serializer", s.String())
		}
	}()
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(value); err != nil {
		return errors.Serialization(err).WithDetail("serializer", s.String())
	}
	if err := enc.Close(); err != nil {
		return errors.Serialization(err).WithDetail("serializer", s.String())
	}
	return nil
}

// Deserialize reads one YAML document from r.
func (s YAML) Deserialize(r io.Reader) (any, error) {
	var v any
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Deserialization(err).WithDetail("serializer", s.String())
	}
	return v, nil
}

// Extension returns "yaml".
func (s YAML) Extension() string { return "yaml" }

func (s YAML) String() string { return "YAML" }
