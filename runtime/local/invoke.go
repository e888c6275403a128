package local

import (
	"context"
	"path"

	"github.com/google/uuid"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/storage/memory"
	"github.com/kbukum/dagflow/util"
)

// Invoke runs node on plain values. Params are serialized with the
// serializer of the input they feed, the run happens against an in-memory
// store, and the outputs are deserialized again; partitioned outputs come
// back as []any. Options may replace the store.
func Invoke(ctx context.Context, node dag.Node, params map[string]any, opts ...Option) (map[string]any, error) {
	runID := uuid.NewString()
	opts = append([]Option{WithStorage(memory.New())}, opts...)
	opts = append(opts, WithRunID(runID))
	e := NewEngine(opts...)

	inputs := node.Inputs()
	dir := path.Join(e.RunPath(runID), "_inputs")
	handles := make(map[string]Value, len(params))
	for _, name := range util.SortedKeys(params) {
		var codec serializer.Serializer = serializer.Default
		if in, ok := inputs[name]; ok {
			codec = in.Serializer()
		}
		f, _, err := writeFile(ctx, e.store, path.Join(dir, name+"."+codec.Extension()), codec, params[name])
		if err != nil {
			return nil, e.fail(ctx, err)
		}
		handles[name] = f
	}

	outputs, err := e.Run(ctx, node, handles)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(outputs))
	for name, v := range outputs {
		loaded, err := Load(ctx, e.store, v)
		if err != nil {
			return nil, e.fail(ctx, err)
		}
		values[name] = loaded
	}
	return values, nil
}
