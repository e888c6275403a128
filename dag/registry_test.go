package dag

import (
	"context"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b", identity)
	r.Register("a", func(context.Context, Args) (any, error) { return 1, nil })

	if _, ok := r.Get("a"); !ok {
		t.Error("expected a to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing to be absent")
	}
	if got := r.List(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected sorted names, got %v", got)
	}
}
