// Package output declares how a node's outputs are obtained.
//
// Task outputs extract a value from the task's return value: the whole value
// (FromReturnValue), one key of a map (FromKey) or one field of a struct
// (FromProperty). DAG outputs expose an output of one of the DAG's nodes
// (FromNodeOutput).
package output

import (
	"fmt"
	"reflect"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/serializer"
)

// Output describes a value a node produces.
type Output interface {
	// Serializer returns the serializer the value is persisted with.
	Serializer() serializer.Serializer
	// IsPartitioned reports whether the value is a sequence whose elements
	// may drive a partitioned node downstream.
	IsPartitioned() bool
}

// Extractor is an Output that can be pulled out of a task's return value.
type Extractor interface {
	Output
	Extract(returnValue any) (any, error)
}

// FromReturnValue exposes the whole return value.
type FromReturnValue struct {
	Codec       serializer.Serializer
	Partitioned bool
}

// ReturnValue returns a FromReturnValue with the default serializer.
func ReturnValue() FromReturnValue { return FromReturnValue{} }

// Serializer returns the serializer the value is persisted with.
func (o FromReturnValue) Serializer() serializer.Serializer { return serializer.OrDefault(o.Codec) }

// IsPartitioned reports whether the return value is partitioned.
func (o FromReturnValue) IsPartitioned() bool { return o.Partitioned }

// Extract returns returnValue unchanged.
func (o FromReturnValue) Extract(returnValue any) (any, error) { return returnValue, nil }

// FromKey exposes one key of a map return value.
type FromKey struct {
	Key         string
	Codec       serializer.Serializer
	Partitioned bool
}

// Key returns a FromKey for key with the default serializer.
func Key(key string) FromKey { return FromKey{Key: key} }

// Serializer returns the serializer the value is persisted with.
func (o FromKey) Serializer() serializer.Serializer { return serializer.OrDefault(o.Codec) }

// IsPartitioned reports whether the value under Key is partitioned.
func (o FromKey) IsPartitioned() bool { return o.Partitioned }

// Extract returns returnValue[Key]. returnValue must be a map keyed by strings.
func (o FromKey) Extract(returnValue any) (any, error) {
	rv := reflect.ValueOf(returnValue)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, shapeError(fmt.Sprintf("output key %q requires a map with string keys, got %T", o.Key, returnValue), returnValue)
	}
	v := rv.MapIndex(reflect.ValueOf(o.Key).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, errors.Newf(errors.ErrCodeOutputShape, "return value has no key %q", o.Key).
			WithDetail("key", o.Key)
	}
	return v.Interface(), nil
}

// FromProperty exposes one exported field, or zero-argument method, of a
// struct return value.
type FromProperty struct {
	Name  string
	Codec serializer.Serializer
}

// Property returns a FromProperty for name with the default serializer.
func Property(name string) FromProperty { return FromProperty{Name: name} }

// Serializer returns the serializer the value is persisted with.
func (o FromProperty) Serializer() serializer.Serializer { return serializer.OrDefault(o.Codec) }

// IsPartitioned is always false for properties.
func (o FromProperty) IsPartitioned() bool { return false }

// Extract returns the field or method result called Name.
func (o FromProperty) Extract(returnValue any) (any, error) {
	rv := reflect.ValueOf(returnValue)
	if rv.IsValid() && !(rv.Kind() == reflect.Pointer && rv.IsNil()) {
		if m := rv.MethodByName(o.Name); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return callGetter(m, o.Name)
		}
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, shapeError(fmt.Sprintf("output property %q requires a struct, got nil %T", o.Name, returnValue), returnValue)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, shapeError(fmt.Sprintf("output property %q requires a struct, got %T", o.Name, returnValue), returnValue)
	}
	f, ok := rv.Type().FieldByName(o.Name)
	if !ok || !f.IsExported() {
		return nil, errors.Newf(errors.ErrCodeOutputShape, "return value %T has no property %q", returnValue, o.Name).
			WithDetail("property", o.Name)
	}
	return rv.FieldByIndex(f.Index).Interface(), nil
}

// callGetter calls a zero-argument method, turning a panic into an
// EXECUTION_FAILED error.
func callGetter(m reflect.Value, name string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Newf(errors.ErrCodeExecution, "output property %q panicked: %v", name, r).
				WithDetail("property", name)
		}
	}()
	return m.Call(nil)[0].Interface(), nil
}

// FromNodeOutput exposes the output of one of a DAG's nodes as an output of
// the DAG itself.
type FromNodeOutput struct {
	Node   string
	Output string
	Codec  serializer.Serializer
}

// NodeOutput returns a FromNodeOutput for node's output with the default serializer.
func NodeOutput(node, output string) FromNodeOutput {
	return FromNodeOutput{Node: node, Output: output}
}

// Serializer returns the serializer the value is persisted with.
func (o FromNodeOutput) Serializer() serializer.Serializer { return serializer.OrDefault(o.Codec) }

// Ref identifies the referenced output. Two references expose the same
// value exactly when their refs are equal.
func (o FromNodeOutput) Ref() string { return o.Node + "." + o.Output }

func shapeError(msg string, value any) *errors.AppError {
	return errors.New(errors.ErrCodeOutputShape, msg).WithDetail("type", fmt.Sprintf("%T", value))
}
