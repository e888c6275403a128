// Package testutil provides recording task functions and ready-made DAGs for
// tests of packages that execute DAGs.
//
//	func TestRun(t *testing.T) {
//	    d, calls := testutil.MapReduce()
//	    out, err := local.Invoke(ctx, d, map[string]any{"multiplier": 3})
//	    // out["sum"] == 18, calls["multiply-by"].Calls() == 3
//	}
package testutil
