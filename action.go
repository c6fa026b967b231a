package mutant

import "fmt"

// Dispatchable is the closed set of values a Store can dispatch: a plain
// Action, a Thunk, a Sequence of dispatchables, or a Deferred. Dispatching
// nil (or a nil-valued variant) is a no-op.
type Dispatchable interface {
	isDispatchable()
}

// Dispatcher is the dispatch function handed to thunks and effects.
type Dispatcher func(Dispatchable) error

// InitType is the reserved action type dispatched once when a store is
// created and again after each ReplaceMutator, so composite mutators can
// backfill missing sub-states. Mutators reacting to it should be idempotent.
const InitType = "@@INIT"

var initAction = Action{Type: InitType}

// Action is a plain state-transition description: a discriminant Type plus
// an arbitrary payload. Actions are value objects and are never mutated
// after creation.
type Action struct {
	Type    any
	Payload any
}

func (Action) isDispatchable() {}

// TypeName renders the action's type for logs and metrics.
func (a Action) TypeName() string {
	if s, ok := a.Type.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", a.Type)
}

// valid reports whether the action carries a truthy type. Actions without
// one are ignored by dispatch.
func (a Action) valid() bool {
	switch t := a.Type.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	return true
}

// Thunk receives the dispatcher and a plain snapshot of the current state.
// It may dispatch zero or more times, synchronously or later; a later call
// begins a fresh top-level dispatch.
type Thunk func(dispatch Dispatcher, state any)

func (Thunk) isDispatchable() {}

// Sequence dispatches its elements in order, left to right. Each element
// observes the state committed by the previous one.
type Sequence []Dispatchable

func (Sequence) isDispatchable() {}

// Deferred is the asynchronous variant: dispatching it returns immediately
// and whatever arrives on the channel is re-dispatched as a fresh top-level
// dispatch. A closed-without-send or nil Deferred dispatches nothing.
type Deferred <-chan Dispatchable

func (Deferred) isDispatchable() {}

// Resolve builds an already-settled Deferred carrying v.
func Resolve(v Dispatchable) Deferred {
	ch := make(chan Dispatchable, 1)
	ch <- v
	close(ch)
	return ch
}
