package mutant

import "strings"

// Mutator describes how a sub-state changes in response to an action.
// Mutate updates state in place and returns nil, except when invoked with
// a nil sub-state: then it may synthesize a fresh value and return it for
// the caller to install. Mutators must not dispatch (the store rejects
// dispatches issued during a mutation) and should perform no I/O.
type Mutator interface {
	Mutate(state any, action Action) any
}

// MutatorFunc adapts a plain function to the Mutator interface.
type MutatorFunc func(state any, action Action) any

func (f MutatorFunc) Mutate(state any, action Action) any {
	return f(state, action)
}

// Defaulter is implemented by mutators that can synthesize their empty
// sub-state, letting parent combinators build nested defaults without
// dispatching a sentinel action.
type Defaulter interface {
	Default() any
}

type defaultMutator struct {
	makeDefault func() any
	body        func(state any, action Action)
}

// MutatorWithDefault builds a Mutator with a dual calling convention: given
// an existing sub-state it runs body against it in place and returns nil;
// given a nil sub-state it synthesizes one via makeDefault, runs body
// against the fresh value and returns it. The result implements Defaulter.
func MutatorWithDefault(makeDefault func() any, body func(state any, action Action)) Mutator {
	return &defaultMutator{makeDefault: makeDefault, body: body}
}

func (m *defaultMutator) Mutate(state any, action Action) any {
	if state == nil {
		fresh := m.makeDefault()
		m.body(fresh, action)
		return fresh
	}
	m.body(state, action)
	return nil
}

func (m *defaultMutator) Default() any {
	return m.makeDefault()
}

// Field binds a parent-object key to the mutator governing it. Fields are
// variadic rather than a map so combinators iterate them in a fixed order.
type Field struct {
	Key     string
	Mutator Mutator
}

// CombineMutators builds one Mutator over a map[string]any parent object
// from per-field mutators. Every field mutator observes every action; a
// non-nil return (a synthesized sub-state) is installed at its key. The
// combined mutator bootstraps an empty parent when none exists, prefilled
// with the defaults of any field mutator implementing Defaulter.
func CombineMutators(fields ...Field) Mutator {
	return combine(fields, nil)
}

// CombineMutatorsFiltered is CombineMutators with routing by naming
// convention: for string action types, a field mutator runs only when the
// type starts with the field's key. Non-string types disable filtering.
// A key that happens to prefix an unrelated action type will still match;
// that is inherent to prefix routing.
func CombineMutatorsFiltered(fields ...Field) Mutator {
	return combine(fields, func(f Field, action Action) bool {
		t, ok := action.Type.(string)
		if !ok {
			return true
		}
		return strings.HasPrefix(t, f.Key)
	})
}

func combine(fields []Field, match func(Field, Action) bool) Mutator {
	makeDefault := func() any {
		parent := make(map[string]any, len(fields))
		for _, f := range fields {
			if d, ok := f.Mutator.(Defaulter); ok {
				parent[f.Key] = d.Default()
			}
		}
		return parent
	}
	return MutatorWithDefault(makeDefault, func(state any, action Action) {
		parent := state.(map[string]any)
		for _, f := range fields {
			if match != nil && !match(f, action) {
				continue
			}
			if fresh := f.Mutator.Mutate(parent[f.Key], action); fresh != nil {
				parent[f.Key] = fresh
			}
		}
	})
}
