// Command mapreduce fans a fixed list of numbers out into partitions,
// multiplies each by the "multiplier" input and sums the products.
//
//	echo 3 > m.json
//	mapreduce run --input multiplier=m.json --output sum=sum.json
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
	"github.com/kbukum/dagflow/runtime/cli"
)

func fanOut(context.Context, dag.Args) (any, error) {
	return []int{1, 2, 3}, nil
}

func multiplyBy(_ context.Context, args dag.Args) (any, error) {
	return args.Float("multiplier") * args.Float("n"), nil
}

func sum(_ context.Context, args dag.Args) (any, error) {
	total := 0.0
	for _, v := range args.Slice("values") {
		total += dag.Args{"v": v}.Float("v")
	}
	return total, nil
}

func newDAG() (*dag.DAG, error) {
	tasks := map[string]dag.TaskConfig{
		"fan-out": {
			Func:    fanOut,
			Outputs: map[string]output.Extractor{"numbers": output.FromReturnValue{Partitioned: true}},
		},
		"multiply-by": {
			Func: multiplyBy,
			Inputs: map[string]input.Input{
				"multiplier": input.Param("multiplier"),
				"n":          input.NodeOutput("fan-out", "numbers"),
			},
			Outputs:          map[string]output.Extractor{"product": output.ReturnValue()},
			PartitionByInput: "n",
		},
		"sum": {
			Func:    sum,
			Inputs:  map[string]input.Input{"values": input.NodeOutput("multiply-by", "product")},
			Outputs: map[string]output.Extractor{"total": output.ReturnValue()},
		},
	}

	nodes := make(map[string]dag.Node, len(tasks))
	for name, cfg := range tasks {
		t, err := dag.NewTask(cfg)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}
		nodes[name] = t
	}
	return dag.NewDAG(dag.DAGConfig{
		Nodes:   nodes,
		Inputs:  map[string]input.Input{"multiplier": input.Param("multiplier")},
		Outputs: map[string]output.FromNodeOutput{"sum": output.NodeOutput("sum", "total")},
	})
}

func main() {
	d, err := newDAG()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.NewCommand("mapreduce", d).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
