package dag

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/kbukum/dagflow/errors"
)

func TestTopologicalSort_Layers(t *testing.T) {
	levels, err := TopologicalSort(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("got %v, want %v", levels, want)
	}
}

func TestTopologicalSort_Independent(t *testing.T) {
	levels, err := TopologicalSort(map[string][]string{"z": nil, "m": nil, "a": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(levels, [][]string{{"a", "m", "z"}}) {
		t.Errorf("expected one sorted layer, got %v", levels)
	}
}

func TestTopologicalSort_DuplicateDependency(t *testing.T) {
	levels, err := TopologicalSort(map[string][]string{"a": nil, "b": {"a", "a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 {
		t.Errorf("expected two layers, got %v", levels)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	_, err := TopologicalSort(map[string][]string{
		"root": nil,
		"a":    {"root", "c"},
		"b":    {"a"},
		"c":    {"b"},
		"tail": {"c"},
	})
	app := expectCode(t, err, errors.ErrCodeCyclicDependency)
	nodes := app.Details["nodes"].([]string)
	if !reflect.DeepEqual(nodes, []string{"a", "b", "c", "tail"}) {
		t.Errorf("expected residual set including blocked nodes, got %v", nodes)
	}
}

func TestTopologicalSort_UnknownDependency(t *testing.T) {
	_, err := TopologicalSort(map[string][]string{"a": {"ghost"}})
	expectCode(t, err, errors.ErrCodeInvalidReference)
}

func TestTopologicalSort_Empty(t *testing.T) {
	levels, err := TopologicalSort(nil)
	if err != nil || len(levels) != 0 {
		t.Errorf("expected no layers, got %v, %v", levels, err)
	}
}

// randomAcyclic builds a dependency map where node i only depends on lower indices.
func randomAcyclic(r *rand.Rand, n int) map[string][]string {
	deps := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("n%02d", i)
		deps[name] = nil
		for j := 0; j < i; j++ {
			if r.Intn(4) == 0 {
				deps[name] = append(deps[name], fmt.Sprintf("n%02d", j))
			}
		}
	}
	return deps
}

func TestTopologicalSort_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		deps := randomAcyclic(r, 1+r.Intn(25))
		levels, err := TopologicalSort(deps)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}

		layerOf := make(map[string]int)
		for i, layer := range levels {
			for _, name := range layer {
				if _, seen := layerOf[name]; seen {
					t.Fatalf("run %d: %s scheduled twice", run, name)
				}
				layerOf[name] = i
			}
		}
		if len(layerOf) != len(deps) {
			t.Fatalf("run %d: scheduled %d of %d nodes", run, len(layerOf), len(deps))
		}
		for name, on := range deps {
			for _, dep := range on {
				if layerOf[dep] >= layerOf[name] {
					t.Fatalf("run %d: %s (layer %d) must come after %s (layer %d)",
						run, name, layerOf[name], dep, layerOf[dep])
				}
			}
		}

		again, _ := TopologicalSort(deps)
		if !reflect.DeepEqual(levels, again) {
			t.Fatalf("run %d: layers differ between runs", run)
		}
	}
}
