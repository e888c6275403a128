package dag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/input"
	"github.com/kbukum/dagflow/output"
	"github.com/kbukum/dagflow/serializer"
)

func testRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{"numbers", "multiply", "sum", "split"} {
		r.Register(name, identity)
	}
	return r
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const mapReduceYAML = `
inputs:
  multiplier:
    default: 2
nodes:
  fan-out:
    task: numbers
    outputs:
      items: {partitioned: true}
  multiply-by:
    task: multiply
    inputs:
      multiplier: {param: multiplier}
      n: {node: fan-out, output: items}
    outputs:
      product: {}
    partition_by: n
    runtime_options:
      memory: 512Mi
  sum:
    task: sum
    inputs:
      values: {node: multiply-by, output: product}
    outputs:
      total: {serializer: yaml}
outputs:
  sum: {node: sum, output: total, serializer: yaml}
`

func TestLoadDefinition_FromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "map-reduce.yaml", mapReduceYAML)

	d, err := LoadDefinition(path, testRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.NodeNames(); len(got) != 3 {
		t.Fatalf("expected 3 nodes, got %v", got)
	}

	in, _ := d.Input("multiplier")
	p, ok := in.(input.FromParam)
	if !ok || !p.HasDefault || p.Default != 2 {
		t.Errorf("expected param with default 2, got %#v", in)
	}

	node, _ := d.Node("multiply-by")
	task := node.(*Task)
	if task.PartitionByInput() != "n" {
		t.Errorf("expected partitioning by n, got %q", task.PartitionByInput())
	}
	if task.RuntimeOptions()["memory"] != "512Mi" {
		t.Errorf("expected runtime options, got %v", task.RuntimeOptions())
	}

	ref, _ := d.OutputRef("sum")
	if !serializer.Equal(ref.Serializer(), serializer.YAML{}) {
		t.Errorf("expected yaml serializer, got %s", serializer.Name(ref.Serializer()))
	}
}

func TestParseDefinition_OutputKinds(t *testing.T) {
	d, err := ParseDefinition([]byte(`
inputs:
  x: {}
nodes:
  split:
    task: split
    inputs:
      x: {}
    outputs:
      whole: {}
      first: {key: first}
      size: {property: Len}
`), testRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	node, _ := d.Node("split")
	task := node.(*Task)
	if o, _ := task.Extractor("whole"); o != (output.FromReturnValue{Codec: serializer.JSON{}}) {
		t.Errorf("whole: got %#v", o)
	}
	if o, _ := task.Extractor("first"); o != (output.FromKey{Key: "first", Codec: serializer.JSON{}}) {
		t.Errorf("first: got %#v", o)
	}
	if o, _ := task.Extractor("size"); o != (output.FromProperty{Name: "Len", Codec: serializer.JSON{}}) {
		t.Errorf("size: got %#v", o)
	}
}

func TestLoadDefinition_NestedAndInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inner.yaml", `
inputs:
  v: {node: source, output: out}
nodes:
  step:
    task: multiply
    inputs:
      v: {}
    outputs:
      out: {}
outputs:
  out: {node: step, output: out}
`)
	path := writeFile(t, dir, "outer.yaml", `
nodes:
  source:
    task: numbers
    outputs:
      out: {}
  included:
    include: inner.yaml
  inline:
    dag:
      inputs:
        v: {node: included, output: out}
      nodes:
        step:
          task: sum
          inputs:
            v: {}
          outputs:
            out: {}
      outputs:
        out: {node: step, output: out}
outputs:
  result: {node: inline, output: out}
`)
	d, err := LoadDefinition(path, testRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := d.ExecutionOrder()
	if len(order) != 3 || order[0][0] != "source" || order[1][0] != "included" || order[2][0] != "inline" {
		t.Errorf("unexpected order %v", order)
	}
	if _, err := Select(d, "included.step"); err != nil {
		t.Errorf("expected included DAG to be addressable: %v", err)
	}
}

func TestLoadDefinition_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "self.yaml", `
nodes:
  again:
    include: self.yaml
`)
	tests := []struct {
		name string
		path string
		yaml string
		code errors.ErrorCode
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yaml"), code: errors.ErrCodeInvalidConfig},
		{name: "circular include", path: filepath.Join(dir, "self.yaml"), code: errors.ErrCodeInvalidConfig},
		{name: "bad yaml", yaml: "nodes: [", code: errors.ErrCodeInvalidConfig},
		{name: "unknown task", yaml: "nodes:\n  a:\n    task: ghost\n", code: errors.ErrCodeInvalidReference},
		{name: "unknown serializer", yaml: "nodes:\n  a:\n    task: sum\n    outputs:\n      o: {serializer: xml}\n", code: errors.ErrCodeInvalidReference},
		{name: "no node kind", yaml: "nodes:\n  a: {}\n", code: errors.ErrCodeInvalidConfig},
		{name: "empty", yaml: "nodes: {}\n", code: errors.ErrCodeInvalidDAG},
		{name: "cycle", yaml: `
nodes:
  a:
    task: sum
    inputs: {v: {node: b, output: o}}
    outputs: {o: {}}
  b:
    task: sum
    inputs: {v: {node: a, output: o}}
    outputs: {o: {}}
`, code: errors.ErrCodeCyclicDependency},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.path != "" {
				_, err = LoadDefinition(tc.path, testRegistry())
			} else {
				_, err = ParseDefinition([]byte(tc.yaml), testRegistry())
			}
			expectCode(t, err, tc.code)
		})
	}
}

func TestLoadDefinition_ErrorsCarryNodePath(t *testing.T) {
	_, err := ParseDefinition([]byte(`
nodes:
  outer:
    dag:
      nodes:
        inner:
          task: ghost
`), testRegistry())
	app := expectCode(t, err, errors.ErrCodeInvalidReference)
	if app.Node != "outer.inner" {
		t.Errorf("expected node path outer.inner, got %q", app.Node)
	}
}

func TestLoadedTaskRunsRegisteredFunc(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", func(context.Context, Args) (any, error) { return 42, nil })
	d, err := ParseDefinition([]byte("nodes:\n  a:\n    task: answer\n    outputs:\n      o: {}\n"), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	node, _ := d.Node("a")
	got, err := node.(*Task).Call(context.Background(), nil)
	if err != nil || got != 42 {
		t.Errorf("expected 42, got %v, %v", got, err)
	}
}
