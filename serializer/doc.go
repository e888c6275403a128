// Package serializer defines the value/byte-stream contract every dagflow
// input and output declares, and the codecs shipped with the module.
//
// Values only ever cross node boundaries in serialized form. A codec must
// report failures as errors.ErrCodeSerialization / ErrCodeDeserialization
// AppErrors so the engine can attribute them to the node that produced or
// consumed the value.
//
//	var buf bytes.Buffer
//	err := serializer.JSON{}.Serialize(map[string]any{"a": 1}, &buf)
//	v, err := serializer.JSON{}.Deserialize(&buf)
package serializer
