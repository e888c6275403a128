package dag

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/util"
)

// Definition is the YAML form of a DAG.
//
//	inputs:
//	  multiplier: {default: 2}
//	nodes:
//	  fan-out:
//	    task: numbers
//	    outputs:
//	      items: {partitioned: true}
//	  multiply:
//	    task: multiply
//	    inputs:
//	      multiplier: {param: multiplier}
//	      n: {node: fan-out, output: items}
//	    outputs:
//	      product: {}
//	    partition_by: n
//	outputs:
//	  product: {node: sum, output: total}
type Definition struct {
	// Inputs declares the DAG inputs.
	Inputs map[string]InputDef `yaml:"inputs,omitempty"`
	// Outputs exposes node outputs.
	Outputs map[string]DAGOutputDef `yaml:"outputs,omitempty"`
	// PartitionBy names the input the DAG is partitioned by.
	PartitionBy string `yaml:"partition_by,omitempty"`
	// Nodes defines the DAG's nodes.
	Nodes map[string]NodeDef `yaml:"nodes"`
}

// NodeDef defines a node. Exactly one of Task, DAG or Include must be set.
type NodeDef struct {
	// Task is the registry key of the function the node runs.
	Task string `yaml:"task,omitempty"`
	// DAG defines a nested DAG inline.
	DAG *Definition `yaml:"dag,omitempty"`
	// Include loads a nested DAG from a file, relative to the including file.
	Include string `yaml:"include,omitempty"`
	// Inputs declares a task's inputs. Nested DAGs declare theirs in their definition.
	Inputs map[string]InputDef `yaml:"inputs,omitempty"`
	// Outputs declares a task's outputs.
	Outputs map[string]OutputDef `yaml:"outputs,omitempty"`
	// PartitionBy names the input a task is partitioned by.
	PartitionBy string `yaml:"partition_by,omitempty"`
	// RuntimeOptions are carried unchanged on the task.
	RuntimeOptions map[string]any `yaml:"runtime_options,omitempty"`
}

// InputDef defines an input. Setting Node makes it a node output reference,
// otherwise it reads the parameter called Param (default: the input name).
type InputDef struct {
	Param      string     `yaml:"param,omitempty"`
	Node       string     `yaml:"node,omitempty"`
	Output     string     `yaml:"output,omitempty"`
	Default    *yaml.Node `yaml:"default,omitempty"`
	Serializer string     `yaml:"serializer,omitempty"`
}

// OutputDef defines a task output. Key selects a map key and Property a
// struct field; with neither set the whole return value is used.
type OutputDef struct {
	Key         string `yaml:"key,omitempty"`
	Property    string `yaml:"property,omitempty"`
	Partitioned bool   `yaml:"partitioned,omitempty"`
	Serializer  string `yaml:"serializer,omitempty"`
}

// DAGOutputDef defines a DAG output.
type DAGOutputDef struct {
	Node       string `yaml:"node"`
	Output     string `yaml:"output"`
	Serializer string `yaml:"serializer,omitempty"`
}

// LoadDefinition reads a YAML definition from path and builds the DAG it
// describes, resolving task functions in registry.
func LoadDefinition(path string, registry *Registry) (*DAG, error) {
	b := &builder{registry: registry, stack: make(map[string]bool)}
	return b.loadFile(path)
}

// ParseDefinition builds a DAG from YAML data. Includes are resolved
// relative to the working directory.
func ParseDefinition(data []byte, registry *Registry) (*DAG, error) {
	def, err := decodeDefinition(data, "definition")
	if err != nil {
		return nil, err
	}
	b := &builder{registry: registry, stack: make(map[string]bool)}
	return b.build(def, ".")
}

func decodeDefinition(data []byte, source string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("dag: parsing %s", source)).WithCause(err)
	}
	return &def, nil
}

type builder struct {
	registry *Registry
	stack    map[string]bool // files on the current include path
}

func (b *builder) loadFile(path string) (*DAG, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("dag: resolving %s", path)).WithCause(err)
	}
	if b.stack[abs] {
		return nil, errors.InvalidConfig(fmt.Sprintf("dag: circular include of %s", path))
	}
	b.stack[abs] = true
	defer delete(b.stack, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("dag: reading %s", path)).WithCause(err)
	}
	def, err := decodeDefinition(data, path)
	if err != nil {
		return nil, err
	}
	return b.build(def, filepath.Dir(abs))
}

func (b *builder) build(def *Definition, dir string) (*DAG, error) {
	inputs, err := buildInputs(def.Inputs)
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]Node, len(def.Nodes))
	for _, name := range util.SortedKeys(def.Nodes) {
		node, err := b.buildNode(name, def.Nodes[name], dir)
		if err != nil {
			return nil, errors.InNode(name, err)
		}
		nodes[name] = node
	}
	outputs := make(map[string]output.FromNodeOutput, len(def.Outputs))
	for name, o := range def.Outputs {
		s, err := serializer.Lookup(o.Serializer)
		if err != nil {
			return nil, err
		}
		outputs[name] = output.FromNodeOutput{Node: o.Node, Output: o.Output, Codec: s}
	}
	return NewDAG(DAGConfig{
		Nodes:            nodes,
		Inputs:           inputs,
		Outputs:          outputs,
		PartitionByInput: def.PartitionBy,
	})
}

func (b *builder) buildNode(name string, def NodeDef, dir string) (Node, error) {
	set := 0
	for _, present := range []bool{def.Task != "", def.DAG != nil, def.Include != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errors.InvalidConfig(fmt.Sprintf("node %q must set exactly one of task, dag or include", name))
	}

	if def.Task == "" {
		if len(def.Inputs) > 0 || len(def.Outputs) > 0 || def.PartitionBy != "" {
			return nil, errors.InvalidConfig(fmt.Sprintf(
				"nested DAG %q declares inputs, outputs and partitioning in its own definition", name))
		}
		if def.DAG != nil {
			return b.build(def.DAG, dir)
		}
		path := def.Include
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return b.loadFile(path)
	}

	fn, ok := b.registry.Get(def.Task)
	if !ok {
		return nil, errors.InvalidReference("task function", def.Task, b.registry.List())
	}
	inputs, err := buildInputs(def.Inputs)
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]output.Extractor, len(def.Outputs))
	for outName, o := range def.Outputs {
		s, err := serializer.Lookup(o.Serializer)
		if err != nil {
			return nil, err
		}
		switch {
		case o.Key != "" && o.Property != "":
			return nil, errors.InvalidConfig(fmt.Sprintf("output %q sets both key and property", outName))
		case o.Key != "":
			outputs[outName] = output.FromKey{Key: o.Key, Codec: s, Partitioned: o.Partitioned}
		case o.Property != "":
			if o.Partitioned {
				return nil, errors.InvalidConfig(fmt.Sprintf("property output %q cannot be partitioned", outName))
			}
			outputs[outName] = output.FromProperty{Name: o.Property, Codec: s}
		default:
			outputs[outName] = output.FromReturnValue{Codec: s, Partitioned: o.Partitioned}
		}
	}
	return NewTask(TaskConfig{
		Func:             fn,
		Inputs:           inputs,
		Outputs:          outputs,
		PartitionByInput: def.PartitionBy,
		RuntimeOptions:   def.RuntimeOptions,
	})
}

func buildInputs(defs map[string]InputDef) (map[string]input.Input, error) {
	inputs := make(map[string]input.Input, len(defs))
	for name, d := range defs {
		s, err := serializer.Lookup(d.Serializer)
		if err != nil {
			return nil, err
		}
		if d.Node != "" {
			if d.Param != "" || d.Default != nil {
				return nil, errors.InvalidConfig(fmt.Sprintf("input %q mixes node output and param settings", name))
			}
			inputs[name] = input.FromNodeOutput{Node: d.Node, Output: d.Output, Codec: s}
			continue
		}
		p := input.FromParam{Name: d.Param, Codec: s}
		if d.Default != nil {
			if err := d.Default.Decode(&p.Default); err != nil {
				return nil, errors.InvalidConfig(fmt.Sprintf("input %q has an unreadable default", name)).WithCause(err)
			}
			p.HasDefault = true
		}
		inputs[name] = p
	}
	return inputs, nil
}
