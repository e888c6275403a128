package dag

import (
	"context"
	"fmt"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
	"github.com/kbukum/dagflow/util"
	"github.com/kbukum/dagflow/validation"
)

// Kind discriminates the node variants.
type Kind int

const (
	// KindTask is a *Task.
	KindTask Kind = iota + 1
	// KindDAG is a *DAG.
	KindDAG
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindDAG:
		return "dag"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is the unit of work in a DAG. The only implementations are *Task and
// *DAG; switch on Kind (or the concrete type) to tell them apart.
type Node interface {
	Kind() Kind
	// Inputs returns a copy of the node's input declarations.
	Inputs() map[string]input.Input
	// Outputs returns a copy of the node's output declarations.
	Outputs() map[string]output.Output
	// PartitionByInput names the input the node is partitioned by, or "".
	PartitionByInput() string
	sealed()
}

// Args holds the deserialized values passed to a task function, keyed by
// input name.
type Args map[string]any

// Float returns the named argument as a float64. JSON decodes every number
// to float64, so integer kinds are converted too. Other types yield 0.
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return 0
	}
}

// String returns the named argument as a string, or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Slice returns the named argument as []any, or nil.
func (a Args) Slice(name string) []any {
	s, _ := a[name].([]any)
	return s
}

// Func is the function a Task runs. Its return value is handed to every
// output extractor of the task.
type Func func(ctx context.Context, args Args) (any, error)

// TaskConfig configures a Task.
type TaskConfig struct {
	// Func is the function to run. Required.
	Func Func
	// Inputs maps argument names to where their values come from.
	Inputs map[string]input.Input
	// Outputs maps output names to how they are extracted from the return value.
	Outputs map[string]output.Extractor
	// PartitionByInput makes the task run once per element of the named input.
	PartitionByInput string
	// RuntimeOptions are carried unchanged for orchestrator compilers.
	RuntimeOptions map[string]any
}

// Task wraps a Func with its input and output declarations. It is immutable.
type Task struct {
	fn             Func
	inputs         util.Frozen[input.Input]
	outputs        util.Frozen[output.Extractor]
	partitionBy    string
	runtimeOptions util.Frozen[any]
}

var (
	_ Node = (*Task)(nil)
	_ Node = (*DAG)(nil)
)

// NewTask validates cfg and returns the Task it describes.
func NewTask(cfg TaskConfig) (*Task, error) {
	if cfg.Func == nil {
		return nil, errors.New(errors.ErrCodeInvalidDAG, "task requires a function")
	}
	for _, name := range util.SortedKeys(cfg.Inputs) {
		if err := validation.Name("input", name); err != nil {
			return nil, err
		}
		if err := checkInputType("task", name, cfg.Inputs[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range util.SortedKeys(cfg.Outputs) {
		if err := validation.Name("output", name); err != nil {
			return nil, err
		}
		if cfg.Outputs[name] == nil {
			return nil, errors.Newf(errors.ErrCodeInvalidDAG, "output %q has no declaration", name)
		}
	}
	if p := cfg.PartitionByInput; p != "" {
		if _, ok := cfg.Inputs[p]; !ok {
			return nil, errors.Partitioning(fmt.Sprintf("task is partitioned by input %q, which it does not declare", p)).
				WithDetail("available", util.SortedKeys(cfg.Inputs))
		}
	}
	return &Task{
		fn:             cfg.Func,
		inputs:         util.Freeze(cfg.Inputs),
		outputs:        util.Freeze(cfg.Outputs),
		partitionBy:    cfg.PartitionByInput,
		runtimeOptions: util.Freeze(cfg.RuntimeOptions),
	}, nil
}

// MustTask is like NewTask but panics on error. Intended for package-level
// declarations and tests.
func MustTask(cfg TaskConfig) *Task {
	t, err := NewTask(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Task) Kind() Kind { return KindTask }

func (t *Task) Inputs() map[string]input.Input { return t.inputs.Map() }

func (t *Task) Outputs() map[string]output.Output {
	out := make(map[string]output.Output, t.outputs.Len())
	for name, o := range t.outputs.All() {
		out[name] = o
	}
	return out
}

func (t *Task) PartitionByInput() string { return t.partitionBy }

func (t *Task) sealed() {}

// InputNames returns the input names in ascending order.
func (t *Task) InputNames() []string { return t.inputs.Keys() }

// Input returns the declaration of the named input.
func (t *Task) Input(name string) (input.Input, bool) { return t.inputs.Get(name) }

// OutputNames returns the output names in ascending order.
func (t *Task) OutputNames() []string { return t.outputs.Keys() }

// Extractor returns the declaration of the named output.
func (t *Task) Extractor(name string) (output.Extractor, bool) { return t.outputs.Get(name) }

// RuntimeOptions returns a copy of the task's runtime options.
func (t *Task) RuntimeOptions() map[string]any { return t.runtimeOptions.Map() }

// Call runs the task function. A panic inside the function is returned as an
// ErrCodeExecution error.
func (t *Task) Call(ctx context.Context, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeExecution, "task panicked: %v", r)
		}
	}()
	return t.fn(ctx, args)
}

func checkInputType(owner, name string, in input.Input) error {
	switch in.(type) {
	case input.FromParam, input.FromNodeOutput:
		return nil
	default:
		return errors.Newf(errors.ErrCodeUnsupportedInput, "%s input %q has unsupported type %T", owner, name, in).
			WithDetail("input", name)
	}
}
