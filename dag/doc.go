// Package dag is the data model of dagflow: tasks, DAGs of named nodes, and
// the validator that guards their construction.
//
// A Node is either a *Task, which wraps a Go function, or a *DAG, which
// wraps a set of named child nodes. Both declare inputs (package input) and
// outputs (package output). NewDAG checks names, references, serializers and
// partitioning rules, then derives the execution order with TopologicalSort.
// A DAG that was constructed successfully is valid and cannot be changed.
//
//	double, _ := dag.NewTask(dag.TaskConfig{
//	    Func:    func(ctx context.Context, args dag.Args) (any, error) { return 2 * args.Float("x"), nil },
//	    Inputs:  map[string]input.Input{"x": input.Param("x")},
//	    Outputs: map[string]output.Extractor{"x": output.ReturnValue()},
//	})
//	d, err := dag.NewDAG(dag.DAGConfig{
//	    Nodes:   map[string]dag.Node{"double": double},
//	    Inputs:  map[string]input.Input{"x": input.Param("x")},
//	    Outputs: map[string]output.FromNodeOutput{"y": output.NodeOutput("double", "x")},
//	})
//
// Executing a DAG is the job of package runtime/local.
package dag
