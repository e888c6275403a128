package local

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/util"
)

// call is a single invocation of a node.
type call struct {
	// path is the dotted path of the node below the run root; "" for the root.
	path string
	node dag.Node
	// partition is the partition index, or -1.
	partition int
	params    map[string]Value
	// scope is the storage directory the invocation owns.
	scope string
}

// displayPath names the node in logs, spans and metrics.
func (c call) displayPath() string {
	if c.path == "" {
		return "root"
	}
	return c.path
}

// invokeFunc runs one invocation, after partitioning has been resolved.
type invokeFunc func(ctx context.Context, c call) (map[string]Value, error)

// runNode invokes c.node once, or once per partition when it is partitioned.
func (e *Engine) runNode(ctx context.Context, c call) (map[string]Value, error) {
	by := c.node.PartitionByInput()
	if by == "" {
		return e.invoke(ctx, c)
	}

	src, err := e.partitionSource(ctx, c, by)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordPartitions(ctx, c.displayPath(), src.Len())
	}

	results := make([]map[string]Value, src.Len())
	err = e.forEach(ctx, src.Len(), func(ctx context.Context, i int) error {
		params := util.Clone(c.params)
		params[by] = src.Items[i]
		out, err := e.invoke(ctx, call{
			path:      c.path,
			node:      c.node,
			partition: i,
			params:    params,
			scope:     path.Join(c.scope, "_partitions", strconv.Itoa(i)),
		})
		if err != nil {
			return inPartition(i, err)
		}
		results[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	outputs := make(map[string]Value)
	for name := range c.node.Outputs() {
		p := Partitioned{Items: make([]Value, len(results))}
		for i, out := range results {
			p.Items[i] = out[name]
		}
		outputs[name] = p
	}
	return outputs, nil
}

// partitionSource returns the sequence a partitioned node iterates over. A
// File holding a sequence is split into one file per element first.
func (e *Engine) partitionSource(ctx context.Context, c call, by string) (Partitioned, error) {
	switch v := c.params[by].(type) {
	case Partitioned:
		return v, nil
	case File:
		loaded, err := readFile(ctx, e.store, v)
		if err != nil {
			return Partitioned{}, err
		}
		elems, ok := elements(loaded)
		if !ok {
			return Partitioned{}, errors.InvalidType(
				fmt.Sprintf("input %q partitions the node and must hold a sequence, got %T", by, loaded), loaded)
		}
		p, _, err := writeElements(ctx, e.store, path.Join(c.scope, "_split", by), v.Serializer(), elems)
		return p, err
	default:
		return Partitioned{}, errors.InvalidType(fmt.Sprintf("input %q has no value", by), v)
	}
}

// execute dispatches on the node kind.
func (e *Engine) execute(ctx context.Context, c call) (map[string]Value, error) {
	switch n := c.node.(type) {
	case *dag.Task:
		return e.runTask(ctx, n, c)
	case *dag.DAG:
		return e.runDAG(ctx, n, c)
	default:
		return nil, errors.InvalidType(fmt.Sprintf("unsupported node %T", c.node), c.node)
	}
}

func (e *Engine) runTask(ctx context.Context, t *dag.Task, c call) (map[string]Value, error) {
	args := make(dag.Args, len(c.params))
	for _, name := range t.InputNames() {
		v, err := Load(ctx, e.store, c.params[name])
		if err != nil {
			return nil, err
		}
		args[name] = v
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		if !errors.IsAppError(err) {
			err = errors.New(errors.ErrCodeExecution, "task returned an error").WithCause(err)
		}
		return nil, err
	}

	outputs := make(map[string]Value, len(t.OutputNames()))
	for _, name := range t.OutputNames() {
		ext, _ := t.Extractor(name)
		v, err := ext.Extract(result)
		if err != nil {
			return nil, err
		}
		codec := ext.Serializer()

		var (
			handle Value
			n      int64
		)
		if ext.IsPartitioned() {
			elems, ok := elements(v)
			if !ok {
				return nil, errors.InvalidType(
					fmt.Sprintf("output %q is partitioned and must be a sequence, got %T", name, v), v)
			}
			handle, n, err = writeElements(ctx, e.store, path.Join(c.scope, name), codec, elems)
		} else {
			handle, n, err = writeFile(ctx, e.store, path.Join(c.scope, name+"."+codec.Extension()), codec, v)
		}
		if err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.RecordBytes(ctx, c.displayPath(), name, n)
		}
		outputs[name] = handle
	}
	return outputs, nil
}

func (e *Engine) runDAG(ctx context.Context, d *dag.DAG, c call) (map[string]Value, error) {
	var mu sync.Mutex
	values := make(map[string]map[string]Value, len(d.NodeNames()))

	for _, layer := range d.ExecutionOrder() {
		err := e.forEach(ctx, len(layer), func(ctx context.Context, i int) error {
			name := layer[i]
			child, _ := d.Node(name)

			mu.Lock()
			params, err := childParams(child, c.params, values)
			mu.Unlock()
			if err != nil {
				return errors.InNode(name, err)
			}

			out, err := e.runNode(ctx, call{
				path:      joinPath(c.path, name),
				node:      child,
				partition: -1,
				params:    params,
				scope:     path.Join(c.scope, name),
			})
			if err != nil {
				return errors.InNode(name, err)
			}
			mu.Lock()
			values[name] = out
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	outputs := make(map[string]Value, len(d.OutputNames()))
	for _, name := range d.OutputNames() {
		ref, _ := d.OutputRef(name)
		outputs[name] = values[ref.Node][ref.Output]
	}
	return outputs, nil
}

// childParams resolves the inputs of a DAG's child node from the DAG's
// params and the outputs of the child's siblings.
func childParams(child dag.Node, params map[string]Value, values map[string]map[string]Value) (map[string]Value, error) {
	inputs := child.Inputs()
	out := make(map[string]Value, len(inputs))
	for name, in := range inputs {
		var (
			v  Value
			ok bool
		)
		switch ref := in.(type) {
		case input.FromParam:
			v, ok = params[ref.ParamName(name)]
		case input.FromNodeOutput:
			v, ok = values[ref.Node][ref.Output]
		}
		if !ok || v == nil {
			return nil, errors.Newf(errors.ErrCodeExecution, "input %q has no value", name)
		}
		out[name] = v
	}
	return out, nil
}

// forEach calls fn for 0..n-1, concurrently when the engine allows it. It
// returns the first error; remaining calls see a cancelled context.
func (e *Engine) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if e.maxParallel < 2 || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// inPartition records the index of the failing partition on a copy of err.
// The innermost partition wins when partitioned nodes nest.
func inPartition(i int, err error) error {
	app, ok := errors.AsAppError(err)
	if !ok {
		return errors.New(errors.ErrCodeExecution, "partition failed").WithCause(err).WithDetail("partition", i)
	}
	if _, set := app.Details["partition"]; set {
		return err
	}
	wrapped := *app
	wrapped.Details = map[string]any{"partition": i}
	for k, v := range app.Details {
		wrapped.Details[k] = v
	}
	return &wrapped
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
