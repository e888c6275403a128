// Package local executes DAGs in the current process.
//
// The engine walks a DAG's execution order, resolves every node's inputs,
// fans partitioned nodes out once per element of their partitioning input
// and persists every output through its serializer to a storage.Storage.
// Outputs travel between nodes as handles (File, Partitioned) and are only
// deserialized by the task that consumes them.
//
//	engine := local.NewEngine(local.WithStorage(store), local.WithMaxParallel(4))
//	outputs, err := engine.Run(ctx, d, map[string]local.Value{
//	    "multiplier": local.File{Path: "inputs/multiplier.json"},
//	})
//
// Invoke is an in-memory shortcut for tests and scripts:
//
//	out, err := local.Invoke(ctx, d, map[string]any{"multiplier": 3})
//	// out["sum"] == 18.0
//
// # Storage Layout
//
// A run writes below <prefix>/<run-id>. Every node owns the directory named
// after its path; partition i of a partitioned node owns
// <node>/_partitions/<i>. A task writes output o to <node>/<o>.<ext>, or,
// when o is partitioned, to <node>/<o>/<i>.<ext> next to a manifest.json
// listing the element files in order. Names starting with "_" are never
// valid node or output names, so engine directories cannot collide with them.
package local
