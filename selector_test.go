package mutant

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
)

func pairMutator() Mutator {
	return MutatorWithDefault(
		func() any { return map[string]any{"x": 0, "y": 0} },
		func(state any, action Action) {
			m := state.(map[string]any)
			switch action.Type {
			case "x/bump":
				m["x"] = m["x"].(int) + 1
			case "y/bump":
				m["y"] = m["y"].(int) + 1
			}
		},
	)
}

func TestUseSelectorMemoizes(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	var computations int32
	x := UseSelector(store, func(s State) any {
		atomic.AddInt32(&computations, 1)
		return s.Get("x")
	})

	if got := x(); got != 0 {
		t.Errorf("x = %v, want 0", got)
	}
	x()
	x()
	if n := atomic.LoadInt32(&computations); n != 1 {
		t.Errorf("computations = %d, want 1 (cached)", n)
	}

	store.Dispatch(Action{Type: "x/bump"})
	if got := x(); got != 1 {
		t.Errorf("x = %v, want 1", got)
	}
	if n := atomic.LoadInt32(&computations); n != 2 {
		t.Errorf("computations = %d, want 2", n)
	}
}

func TestUseSelectorIgnoresUnrelatedChanges(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	var computations int32
	x := UseSelector(store, func(s State) any {
		atomic.AddInt32(&computations, 1)
		return s.Get("x")
	})
	x()

	store.Dispatch(Action{Type: "y/bump"})
	x()
	if n := atomic.LoadInt32(&computations); n != 1 {
		t.Errorf("computations = %d, want 1 (y change must not invalidate x)", n)
	}
}

func TestUseSelectorEqualitySuppression(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	parity := UseSelector(store, func(s State) any {
		return s.Get("x").(int) % 2
	})

	var combinations int32
	derived := UseSelector(store, func(s State) any {
		atomic.AddInt32(&combinations, 1)
		return parity()
	})
	derived()

	// 0 -> 2 keeps parity 0; the downstream selector must not rerun.
	store.Dispatch(Sequence{Action{Type: "x/bump"}, Action{Type: "x/bump"}})
	derived()
	if n := atomic.LoadInt32(&combinations); n != 1 {
		t.Errorf("combinations = %d, want 1 (equal value suppressed)", n)
	}

	store.Dispatch(Action{Type: "x/bump"})
	if got := derived(); got != 1 {
		t.Errorf("parity = %v, want 1", got)
	}
	if n := atomic.LoadInt32(&combinations); n != 2 {
		t.Errorf("combinations = %d, want 2", n)
	}
}

func TestUseSelectorCustomEquality(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	// halves produces a fresh slice on every recomputation; under the
	// default identity equality each one would count as a change.
	var downstream int32
	halves := UseSelector(store, func(s State) any {
		return []any{s.Get("x").(int) / 2}
	}, WithEqual(func(a, b any) bool {
		return reflect.DeepEqual(a, b)
	}))
	derived := UseSelector(store, func(s State) any {
		atomic.AddInt32(&downstream, 1)
		return halves()
	})
	derived()

	// x: 0 -> 1 recomputes halves to a new but deep-equal slice; the
	// change must not propagate downstream.
	store.Dispatch(Action{Type: "x/bump"})
	derived()
	if n := atomic.LoadInt32(&downstream); n != 1 {
		t.Errorf("downstream = %d, want 1", n)
	}

	// x: 1 -> 2 changes the half; now it propagates.
	store.Dispatch(Action{Type: "x/bump"})
	if got := derived(); !reflect.DeepEqual(got, []any{1}) {
		t.Errorf("derived = %v, want [1]", got)
	}
	if n := atomic.LoadInt32(&downstream); n != 2 {
		t.Errorf("downstream = %d, want 2", n)
	}
}

func TestStructuredSelectorIndependence(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	var xRuns, yRuns int32
	sel := CreateStructuredSelector(
		SelectorField{Key: "x", Selector: func(s State) any {
			atomic.AddInt32(&xRuns, 1)
			return s.Get("x")
		}},
		SelectorField{Key: "y", Selector: func(s State) any {
			atomic.AddInt32(&yRuns, 1)
			return s.Get("y")
		}},
	)

	result := sel(store.State()).(map[string]Accessor)
	if got := result["x"](); got != 0 {
		t.Errorf("x = %v", got)
	}
	if got := result["y"](); got != 0 {
		t.Errorf("y = %v", got)
	}

	store.Dispatch(Action{Type: "x/bump"})

	if got := result["x"](); got != 1 {
		t.Errorf("x = %v, want 1", got)
	}
	if got := result["y"](); got != 0 {
		t.Errorf("y = %v", got)
	}
	if n := atomic.LoadInt32(&xRuns); n != 2 {
		t.Errorf("x recomputations = %d, want 2", n)
	}
	if n := atomic.LoadInt32(&yRuns); n != 1 {
		t.Errorf("y recomputations = %d, want 1 (cached)", n)
	}
}

func TestStructuredSelectorReusedAcrossInvocations(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	var runs int32
	sel := CreateStructuredSelector(
		SelectorField{Key: "x", Selector: func(s State) any {
			atomic.AddInt32(&runs, 1)
			return s.Get("x")
		}},
	)

	first := sel(store.State()).(map[string]Accessor)
	second := sel(store.State()).(map[string]Accessor)
	first["x"]()
	second["x"]()
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Errorf("runs = %d, want 1 (compiled accessors reused)", n)
	}
}

func TestUseStructuredSelector(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	result := UseStructuredSelector(store,
		SelectorField{Key: "x", Selector: func(s State) any { return s.Get("x") }},
		SelectorField{Key: "y", Selector: func(s State) any { return s.Get("y") }},
	)
	store.Dispatch(Action{Type: "y/bump"})

	if got := result["x"](); got != 0 {
		t.Errorf("x = %v", got)
	}
	if got := result["y"](); got != 1 {
		t.Errorf("y = %v, want 1", got)
	}
}

func TestCollectSelectors(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	sel := CollectSelectors(
		func(s State) any { return s.Get("x") },
		func(s State) any { return s.Get("y") },
	)
	store.Dispatch(Action{Type: "x/bump"})

	accessors := sel(store.State()).([]Accessor)
	if len(accessors) != 2 {
		t.Fatalf("got %d accessors, want 2", len(accessors))
	}
	if got := accessors[0](); got != 1 {
		t.Errorf("first = %v, want 1", got)
	}
	if got := accessors[1](); got != 0 {
		t.Errorf("second = %v, want 0", got)
	}
}

func TestComposeSelectorsTwoLevelMemoization(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)

	var combinations int32
	sum := ComposeSelectors(
		[]Selector{
			func(s State) any { return s.Get("x") },
			func(s State) any { return s.Get("y") },
		},
		func(values []any) any {
			atomic.AddInt32(&combinations, 1)
			return values[0].(int) + values[1].(int)
		},
	)

	if got := sum(store.State()); got != 0 {
		t.Errorf("sum = %v, want 0", got)
	}
	sum(store.State())
	if n := atomic.LoadInt32(&combinations); n != 1 {
		t.Errorf("combinations = %d, want 1 (memoized)", n)
	}

	store.Dispatch(Action{Type: "x/bump"})
	if got := sum(store.State()); got != 1 {
		t.Errorf("sum = %v, want 1", got)
	}
	if n := atomic.LoadInt32(&combinations); n != 2 {
		t.Errorf("combinations = %d, want 2", n)
	}
}

func TestSubViews(t *testing.T) {
	nested := MutatorWithDefault(
		func() any {
			return map[string]any{
				"user": map[string]any{"name": "alice", "age": 30},
			}
		},
		func(state any, action Action) {
			m := state.(map[string]any)
			if action.Type == "user/rename" {
				m["user"].(map[string]any)["name"] = action.Payload
			}
		},
	)
	store := mustNew(t, nested, nil)

	var runs int32
	name := UseSelector(store, func(s State) any {
		atomic.AddInt32(&runs, 1)
		return s.Sub("user").Get("name")
	})
	if got := name(); got != "alice" {
		t.Errorf("name = %v", got)
	}

	store.Dispatch(Action{Type: "user/rename", Payload: "bob"})
	if got := name(); got != "bob" {
		t.Errorf("name = %v, want bob", got)
	}
	if n := atomic.LoadInt32(&runs); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
}

func TestAccessResolvesNestedAccessors(t *testing.T) {
	store := mustNew(t, pairMutator(), nil)
	store.Dispatch(Action{Type: "x/bump"})

	structured := UseStructuredSelector(store,
		SelectorField{Key: "x", Selector: func(s State) any { return s.Get("x") }},
		SelectorField{Key: "y", Selector: func(s State) any { return s.Get("y") }},
	)
	value := map[string]any{
		"pair":  structured,
		"list":  []any{UseSelector(store, func(s State) any { return s.Get("x") })},
		"plain": 42,
	}

	resolved, err := Access(value)
	if err != nil {
		t.Fatalf("Access failed: %v", err)
	}
	want := map[string]any{
		"pair":  map[string]any{"x": 1, "y": 0},
		"list":  []any{1},
		"plain": 42,
	}
	if !reflect.DeepEqual(resolved, want) {
		t.Errorf("resolved = %v, want %v", resolved, want)
	}
}

func TestAccessRejectsUnboundedStructures(t *testing.T) {
	var loop Accessor
	loop = func() any { return loop }

	_, err := Access(loop)
	if !errors.Is(err, ErrAccessDepth) {
		t.Errorf("error = %v, want ErrAccessDepth", err)
	}

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	if _, err := Access(cyclic); !errors.Is(err, ErrAccessDepth) {
		t.Errorf("error = %v, want ErrAccessDepth", err)
	}
}
