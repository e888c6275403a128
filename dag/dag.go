package dag

import (
	"fmt"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/util"
	"github.com/kbukum/dagflow/validation"
)

// DAGConfig configures a DAG.
type DAGConfig struct {
	// Nodes maps node names to nodes. Must not be empty.
	Nodes map[string]Node
	// Inputs declares the DAG's own inputs. Nodes read them with input.FromParam.
	Inputs map[string]input.Input
	// Outputs exposes node outputs under the DAG's own output names.
	Outputs map[string]output.FromNodeOutput
	// PartitionByInput makes the whole DAG run once per element of the named input.
	PartitionByInput string
}

// DAG is a validated, immutable graph of named nodes.
type DAG struct {
	nodes       util.Frozen[Node]
	inputs      util.Frozen[input.Input]
	outputs     util.Frozen[output.FromNodeOutput]
	partitioned map[string]bool
	partitionBy string
	order       [][]string
}

// exposedOutput is how a DAG output looks to the DAG's parent.
type exposedOutput struct {
	output.FromNodeOutput
	partitioned bool
}

func (o exposedOutput) IsPartitioned() bool { return o.partitioned }

// NewDAG validates cfg and returns the DAG it describes. Checks run in a fixed
// order and the first violation is returned:
//
//  1. the DAG has at least one node
//  2. node, input and output names are valid
//  3. every input has a supported type
//  4. every node input references an existing param or node output with the same serializer
//  5. every DAG output references an existing, non-partitioned node output with
//     the same serializer, and no node output is exposed twice
//  6. partitioning is legal
//  7. the dependencies are acyclic
func NewDAG(cfg DAGConfig) (*DAG, error) {
	if len(cfg.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDAG, "a DAG must contain at least one node")
	}
	nodeNames := util.SortedKeys(cfg.Nodes)

	if err := validateNames(cfg, nodeNames); err != nil {
		return nil, err
	}
	if err := validateInputTypes(cfg, nodeNames); err != nil {
		return nil, err
	}
	for _, name := range nodeNames {
		if err := validateDependencies(cfg, name); err != nil {
			return nil, err
		}
	}
	partitioned, err := validateOutputs(cfg)
	if err != nil {
		return nil, err
	}
	if err := validatePartitioning(cfg, nodeNames); err != nil {
		return nil, err
	}
	order, err := TopologicalSort(dependencies(cfg.Nodes))
	if err != nil {
		return nil, err
	}

	return &DAG{
		nodes:       util.Freeze(cfg.Nodes),
		inputs:      util.Freeze(cfg.Inputs),
		outputs:     util.Freeze(cfg.Outputs),
		partitioned: partitioned,
		partitionBy: cfg.PartitionByInput,
		order:       order,
	}, nil
}

// MustDAG is like NewDAG but panics on error.
func MustDAG(cfg DAGConfig) *DAG {
	d, err := NewDAG(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *DAG) Kind() Kind { return KindDAG }

func (d *DAG) Inputs() map[string]input.Input { return d.inputs.Map() }

// Outputs returns the DAG outputs. A DAG output is partitioned when the node
// output it exposes is.
func (d *DAG) Outputs() map[string]output.Output {
	out := make(map[string]output.Output, d.outputs.Len())
	for name, ref := range d.outputs.All() {
		out[name] = exposedOutput{FromNodeOutput: ref, partitioned: d.partitioned[name]}
	}
	return out
}

func (d *DAG) PartitionByInput() string { return d.partitionBy }

func (d *DAG) sealed() {}

// Node returns the child node called name.
func (d *DAG) Node(name string) (Node, bool) { return d.nodes.Get(name) }

// NodeNames returns the child node names in ascending order.
func (d *DAG) NodeNames() []string { return d.nodes.Keys() }

// InputNames returns the DAG input names in ascending order.
func (d *DAG) InputNames() []string { return d.inputs.Keys() }

// Input returns the declaration of the named DAG input.
func (d *DAG) Input(name string) (input.Input, bool) { return d.inputs.Get(name) }

// OutputNames returns the DAG output names in ascending order.
func (d *DAG) OutputNames() []string { return d.outputs.Keys() }

// OutputRef returns the node output exposed as the named DAG output.
func (d *DAG) OutputRef(name string) (output.FromNodeOutput, bool) { return d.outputs.Get(name) }

// ExecutionOrder returns the layers computed by TopologicalSort. Nodes in the
// same layer do not depend on each other. The result is a copy.
func (d *DAG) ExecutionOrder() [][]string {
	out := make([][]string, len(d.order))
	for i, layer := range d.order {
		out[i] = append([]string(nil), layer...)
	}
	return out
}

// --- validation steps ---

func validateNames(cfg DAGConfig, nodeNames []string) error {
	for _, name := range nodeNames {
		if err := validation.Name("node", name); err != nil {
			return err
		}
		if cfg.Nodes[name] == nil {
			return errors.Newf(errors.ErrCodeInvalidDAG, "node %q is nil", name)
		}
	}
	for _, name := range util.SortedKeys(cfg.Inputs) {
		if err := validation.Name("input", name); err != nil {
			return err
		}
	}
	for _, name := range util.SortedKeys(cfg.Outputs) {
		if err := validation.Name("output", name); err != nil {
			return err
		}
	}
	return nil
}

func validateInputTypes(cfg DAGConfig, nodeNames []string) error {
	for _, name := range util.SortedKeys(cfg.Inputs) {
		if err := checkInputType("dag", name, cfg.Inputs[name]); err != nil {
			return err
		}
	}
	for _, nodeName := range nodeNames {
		inputs := cfg.Nodes[nodeName].Inputs()
		for _, name := range util.SortedKeys(inputs) {
			if err := checkInputType("node "+nodeName, name, inputs[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDependencies(cfg DAGConfig, nodeName string) error {
	inputs := cfg.Nodes[nodeName].Inputs()
	for _, name := range util.SortedKeys(inputs) {
		subject := fmt.Sprintf("input %q of node %q", name, nodeName)
		switch in := inputs[name].(type) {
		case input.FromParam:
			param := in.ParamName(name)
			src, ok := cfg.Inputs[param]
			if !ok {
				return errors.InvalidReference("param", param, util.SortedKeys(cfg.Inputs)).
					WithDetail("node", nodeName).WithDetail("input", name)
			}
			if !serializer.Equal(in.Serializer(), src.Serializer()) {
				return errors.SerializerMismatch(subject, serializer.Name(src.Serializer()), serializer.Name(in.Serializer()))
			}
		case input.FromNodeOutput:
			out, err := lookupNodeOutput(cfg.Nodes, in.Node, in.Output)
			if err != nil {
				if app, ok := errors.AsAppError(err); ok {
					app.WithDetail("node", nodeName).WithDetail("input", name)
				}
				return err
			}
			if !serializer.Equal(in.Serializer(), out.Serializer()) {
				return errors.SerializerMismatch(subject, serializer.Name(out.Serializer()), serializer.Name(in.Serializer()))
			}
		}
	}
	return nil
}

// validateOutputs returns which DAG outputs are partitioned.
func validateOutputs(cfg DAGConfig) (map[string]bool, error) {
	partitioned := make(map[string]bool, len(cfg.Outputs))
	exposed := make(map[string]string, len(cfg.Outputs))
	for _, name := range util.SortedKeys(cfg.Outputs) {
		ref := cfg.Outputs[name]
		out, err := lookupNodeOutput(cfg.Nodes, ref.Node, ref.Output)
		if err != nil {
			if app, ok := errors.AsAppError(err); ok {
				app.WithDetail("output", name)
			}
			return nil, err
		}
		if !serializer.Equal(ref.Serializer(), out.Serializer()) {
			return nil, errors.SerializerMismatch(fmt.Sprintf("DAG output %q", name),
				serializer.Name(out.Serializer()), serializer.Name(ref.Serializer()))
		}
		if cfg.Nodes[ref.Node].PartitionByInput() != "" {
			return nil, errors.Partitioning(fmt.Sprintf(
				"DAG output %q exposes output %q of partitioned node %q; add a node that reduces the partitions",
				name, ref.Output, ref.Node))
		}
		if other, dup := exposed[ref.Ref()]; dup {
			return nil, errors.Newf(errors.ErrCodeInvalidDAG,
				"DAG outputs %q and %q expose the same node output %s", other, name, ref.Ref())
		}
		exposed[ref.Ref()] = name
		partitioned[name] = out.IsPartitioned()
	}
	return partitioned, nil
}

func validatePartitioning(cfg DAGConfig, nodeNames []string) error {
	if p := cfg.PartitionByInput; p != "" {
		in, ok := cfg.Inputs[p]
		if !ok {
			return errors.Partitioning(fmt.Sprintf("DAG is partitioned by input %q, which it does not declare", p)).
				WithDetail("available", util.SortedKeys(cfg.Inputs))
		}
		if _, ok := in.(input.FromNodeOutput); !ok {
			return errors.Partitioning(fmt.Sprintf("DAG is partitioned by input %q, which does not come from a node output", p))
		}
	}
	for _, nodeName := range nodeNames {
		node := cfg.Nodes[nodeName]
		p := node.PartitionByInput()
		if p == "" {
			continue
		}
		inputs := node.Inputs()
		in, ok := inputs[p]
		if !ok {
			return errors.Partitioning(fmt.Sprintf("node %q is partitioned by input %q, which it does not declare", nodeName, p)).
				WithDetail("available", util.SortedKeys(inputs))
		}
		ref, ok := in.(input.FromNodeOutput)
		if !ok {
			return errors.Partitioning(fmt.Sprintf(
				"node %q is partitioned by input %q, which does not come from a node output", nodeName, p))
		}
		if cfg.Nodes[ref.Node].PartitionByInput() != "" {
			return errors.Partitioning(fmt.Sprintf(
				"node %q is partitioned by the output of partitioned node %q; reduce the partitions first", nodeName, ref.Node))
		}
		if out := cfg.Nodes[ref.Node].Outputs()[ref.Output]; !out.IsPartitioned() {
			return errors.Partitioning(fmt.Sprintf(
				"node %q is partitioned by output %q of node %q, which is not partitioned", nodeName, ref.Output, ref.Node))
		}
	}
	return nil
}

func lookupNodeOutput(nodes map[string]Node, nodeName, outputName string) (output.Output, error) {
	node, ok := nodes[nodeName]
	if !ok {
		return nil, errors.InvalidReference("node", nodeName, util.SortedKeys(nodes))
	}
	outputs := node.Outputs()
	out, ok := outputs[outputName]
	if !ok {
		return nil, errors.InvalidReference(fmt.Sprintf("output of node %q", nodeName), outputName, util.SortedKeys(outputs))
	}
	return out, nil
}

// dependencies maps every node to the nodes whose outputs it reads.
func dependencies(nodes map[string]Node) map[string][]string {
	deps := make(map[string][]string, len(nodes))
	for name, node := range nodes {
		var on []string
		for _, in := range node.Inputs() {
			if ref, ok := in.(input.FromNodeOutput); ok {
				on = append(on, ref.Node)
			}
		}
		deps[name] = util.Unique(on)
	}
	return deps
}
