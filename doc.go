// Package mutant is a reactive, mutation-based application-state container.
//
// State transitions are written as direct, imperative mutations instead of
// pure functions returning new immutable state, while the store still
// provides the referential stability and fine-grained change tracking a
// reactive consumer needs to skip needless recomputation.
//
// # Mutators
//
// A mutator describes how a sub-state changes in response to an action:
//
//	counter := mutant.MutatorWithDefault(
//	    func() any { return map[string]any{"value": 0} },
//	    func(state any, action mutant.Action) {
//	        m := state.(map[string]any)
//	        switch action.Type {
//	        case "increment":
//	            m["value"] = m["value"].(int) + 1
//	        case "decrement":
//	            m["value"] = m["value"].(int) - 1
//	        }
//	    },
//	)
//
// Combinators build larger mutators out of smaller ones:
//
//	root := mutant.CombineMutators(
//	    mutant.Field{Key: "counter", Mutator: counter},
//	    mutant.Field{Key: "users", Mutator: users},
//	)
//
// CombineMutatorsFiltered routes by naming convention: with string action
// types, a field's mutator only runs when the type starts with the field's
// key (so "users/add" reaches "users" but not "cartItems").
//
// # Store and dispatch
//
//	store, err := mutant.New(root, map[string]any{})
//	if err != nil { ... }
//
//	store.Dispatch(mutant.Action{Type: "increment"})
//	store.Dispatch(mutant.Sequence{
//	    mutant.Action{Type: "increment"},
//	    mutant.Action{Type: "decrement"},
//	})
//
// Dispatch accepts plain actions, thunks, sequences and deferreds; see
// Dispatchable. Each plain action runs the installed mutator inside an
// atomic transaction and then the installed effect, which observes the
// committed state and may dispatch follow-ups. Dispatching from inside a
// mutator fails with ErrDispatchDuringMutation.
//
// # Selectors
//
//	value := mutant.UseSelector(store, func(s mutant.State) any {
//	    return s.Get("counter", "value")
//	})
//	_ = value() // recomputes only when counter/value changed
//
// CreateStructuredSelector, CollectSelectors and ComposeSelectors build
// memoized derivation trees; Access resolves a selector-produced structure
// back into a plain value.
//
// # Observability
//
// The otel subpackage implements the Observability hooks with
// OpenTelemetry metrics and traces:
//
//	obs, _ := otel.New()
//	store, _ := mutant.New(root, nil, mutant.WithObservability(obs))
package mutant
