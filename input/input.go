// Package input declares where a node's inputs come from.
//
// A node input is either a parameter supplied by the caller of the enclosing
// DAG (FromParam) or the output of a sibling node (FromNodeOutput). Every
// input carries the serializer its value is read with.
package input

import "github.com/kbukum/dagflow/serializer"

// Input is the closed set of input kinds. Only types in this package
// implement it.
type Input interface {
	// Serializer returns the serializer the value is read with.
	Serializer() serializer.Serializer
	input()
}

// FromParam reads the input from a parameter of the enclosing DAG, or from
// the caller when the node is invoked on its own.
type FromParam struct {
	// Name of the parameter. Empty means the parameter carries the same name
	// as the input declaring it.
	Name string
	// Default is used when the parameter is not supplied. Only honored when
	// HasDefault is set, so nil can be a default.
	Default    any
	HasDefault bool
	// Codec overrides the default serializer.
	Codec serializer.Serializer
}

// Param returns a FromParam for the parameter called name.
func Param(name string) FromParam { return FromParam{Name: name} }

// ParamWithDefault returns a FromParam that falls back to def.
func ParamWithDefault(name string, def any) FromParam {
	return FromParam{Name: name, Default: def, HasDefault: true}
}

// ParamName resolves the parameter name for the input called inputName.
func (p FromParam) ParamName(inputName string) string {
	if p.Name == "" {
		return inputName
	}
	return p.Name
}

// Serializer returns the serializer the parameter is read with.
func (p FromParam) Serializer() serializer.Serializer { return serializer.OrDefault(p.Codec) }

func (FromParam) input() {}

// FromNodeOutput reads the input from an output of a sibling node.
type FromNodeOutput struct {
	Node   string
	Output string
	Codec  serializer.Serializer
}

// NodeOutput returns a FromNodeOutput for node's output.
func NodeOutput(node, output string) FromNodeOutput {
	return FromNodeOutput{Node: node, Output: output}
}

// Serializer returns the serializer the output is read with.
func (o FromNodeOutput) Serializer() serializer.Serializer { return serializer.OrDefault(o.Codec) }

func (FromNodeOutput) input() {}
