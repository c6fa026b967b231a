package mutant

import (
	"errors"
	"fmt"
)

// ErrDispatchDuringMutation is returned when dispatch is called while a
// mutation transaction is in progress. Mutators must not dispatch; follow-up
// actions belong in an Effect, which runs after the transaction commits.
var ErrDispatchDuringMutation = errors.New("mutant: dispatch called during mutation")

// ErrAccessDepth is returned by Access for cyclic or unboundedly deep
// structures, which it does not support.
var ErrAccessDepth = errors.New("mutant: access depth exceeded (cyclic or unbounded structure)")

// MutatorFault reports a panic recovered inside a mutator. The transaction
// was rolled back; the store remains usable.
type MutatorFault struct {
	ActionType string
	Recovered  any
}

func (f *MutatorFault) Error() string {
	return fmt.Sprintf("mutant: mutator panicked on %q: %v", f.ActionType, f.Recovered)
}

// EffectFault reports a panic recovered inside an effect. The mutation it
// followed had already committed; state is unaffected.
type EffectFault struct {
	ActionType string
	Recovered  any
}

func (f *EffectFault) Error() string {
	return fmt.Sprintf("mutant: effect panicked on %q: %v", f.ActionType, f.Recovered)
}
