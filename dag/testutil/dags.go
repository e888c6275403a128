package testutil

import (
	"context"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
)

// SquareOfDouble returns a DAG computing (2x)^2 from input "x" as output
// "result". Invoking it with x=4 yields 64.
func SquareOfDouble() (*dag.DAG, map[string]*MockFunc) {
	calls := map[string]*MockFunc{
		"double": NewMockFuncWith(func(_ context.Context, args dag.Args) (any, error) {
			return 2 * args.Float("x"), nil
		}),
		"square": NewMockFuncWith(func(_ context.Context, args dag.Args) (any, error) {
			x := args.Float("x")
			return x * x, nil
		}),
	}
	d := dag.MustDAG(dag.DAGConfig{
		Nodes: map[string]dag.Node{
			"double": dag.MustTask(dag.TaskConfig{
				Func:    calls["double"].Func(),
				Inputs:  map[string]input.Input{"x": input.Param("x")},
				Outputs: map[string]output.Extractor{"x": output.ReturnValue()},
			}),
			"square": dag.MustTask(dag.TaskConfig{
				Func:    calls["square"].Func(),
				Inputs:  map[string]input.Input{"x": input.NodeOutput("double", "x")},
				Outputs: map[string]output.Extractor{"x": output.ReturnValue()},
			}),
		},
		Inputs:  map[string]input.Input{"x": input.Param("x")},
		Outputs: map[string]output.FromNodeOutput{"result": output.NodeOutput("square", "x")},
	})
	return d, calls
}

// MapReduce returns a DAG that fans out [1, 2, 3], multiplies every element
// by input "multiplier" in its own partition and sums the products as output
// "sum". Invoking it with multiplier=3 yields 18.
func MapReduce() (*dag.DAG, map[string]*MockFunc) {
	calls := map[string]*MockFunc{
		"fan-out": NewMockFunc([]int{1, 2, 3}, nil),
		"multiply-by": NewMockFuncWith(func(_ context.Context, args dag.Args) (any, error) {
			return args.Float("multiplier") * args.Float("n"), nil
		}),
		"sum": NewMockFuncWith(func(_ context.Context, args dag.Args) (any, error) {
			total := 0.0
			for _, v := range args.Slice("values") {
				total += dag.Args{"v": v}.Float("v")
			}
			return total, nil
		}),
	}
	d := dag.MustDAG(dag.DAGConfig{
		Nodes: map[string]dag.Node{
			"fan-out": dag.MustTask(dag.TaskConfig{
				Func:    calls["fan-out"].Func(),
				Outputs: map[string]output.Extractor{"numbers": output.FromReturnValue{Partitioned: true}},
			}),
			"multiply-by": dag.MustTask(dag.TaskConfig{
				Func: calls["multiply-by"].Func(),
				Inputs: map[string]input.Input{
					"multiplier": input.Param("multiplier"),
					"n":          input.NodeOutput("fan-out", "numbers"),
				},
				Outputs:          map[string]output.Extractor{"product": output.ReturnValue()},
				PartitionByInput: "n",
			}),
			"sum": dag.MustTask(dag.TaskConfig{
				Func:    calls["sum"].Func(),
				Inputs:  map[string]input.Input{"values": input.NodeOutput("multiply-by", "product")},
				Outputs: map[string]output.Extractor{"total": output.ReturnValue()},
			}),
		},
		Inputs:  map[string]input.Input{"multiplier": input.Param("multiplier")},
		Outputs: map[string]output.FromNodeOutput{"sum": output.NodeOutput("sum", "total")},
	})
	return d, calls
}
