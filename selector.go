package mutant

import (
	"github.com/jilio/mutant/reactive"
)

// State is the read-tracked view handed to selectors. Reads through Get
// register a dependency on exactly the path read, so a selector recomputes
// only when that part of the tree changes.
type State struct {
	rs   *reactive.Store
	path []string
}

// Get reads the value at keys, relative to this view's path. An empty keys
// list reads the view's whole subtree.
func (st State) Get(keys ...string) any {
	return st.rs.Read(st.join(keys)...)
}

// Sub returns a view descended into keys without reading anything.
func (st State) Sub(keys ...string) State {
	return State{rs: st.rs, path: st.join(keys)}
}

// Value is a tracked read of the view's whole subtree.
func (st State) Value() any {
	return st.Get()
}

func (st State) join(keys []string) []string {
	if len(st.path) == 0 {
		return keys
	}
	return append(st.path[:len(st.path):len(st.path)], keys...)
}

// Selector derives a value from store state. Selectors must be pure: no
// mutation, no dispatch.
type Selector func(State) any

// Accessor is a memoized zero-argument getter for a derived value.
type Accessor func() any

// SelectorOption configures a selector wrapper.
type SelectorOption func(*selectorConfig)

type selectorConfig struct {
	equal func(a, b any) bool
}

// WithEqual sets the equality used to decide whether a recomputed derived
// value counts as changed. When it reports equal, consumers of the accessor
// are not invalidated. Default is reference/identity equality.
func WithEqual(eq func(a, b any) bool) SelectorOption {
	return func(c *selectorConfig) {
		c.equal = eq
	}
}

// UseSelector wraps sel in a memo over the store's state: the returned
// accessor recomputes lazily, only when a dependency touched during the
// last computation has changed.
func UseSelector(s *Store, sel Selector, opts ...SelectorOption) Accessor {
	return memoize(s.rs, sel, opts...)
}

func memoize(rs *reactive.Store, sel Selector, opts ...SelectorOption) Accessor {
	cfg := &selectorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var mopts []reactive.MemoOption
	if cfg.equal != nil {
		mopts = append(mopts, reactive.WithEqual(cfg.equal))
	}
	m := rs.NewMemo(func() any {
		return sel(State{rs: rs})
	}, mopts...)
	return m.Get
}

// SelectorField binds a result key to the selector producing it. Fields
// are variadic so compiled structured selectors keep a fixed order.
type SelectorField struct {
	Key      string
	Selector Selector
}

// CreateStructuredSelector compiles fields into a single Selector producing
// a map of independently memoized accessors, one per key. Reading one key's
// accessor never forces recomputation of a sibling. The accessors are
// created once per backing store and reused across invocations; the cache
// is unsynchronized and retained for the selector's lifetime, following
// the cooperative single-threaded read model selectors run under.
func CreateStructuredSelector(fields ...SelectorField) Selector {
	compiled := make(map[*reactive.Store]map[string]Accessor)
	return func(st State) any {
		acc, ok := compiled[st.rs]
		if !ok {
			acc = structured(st.rs, fields)
			compiled[st.rs] = acc
		}
		return acc
	}
}

// UseStructuredSelector compiles fields against the store directly for
// immediate consumption, without returning a reusable Selector.
func UseStructuredSelector(s *Store, fields ...SelectorField) map[string]Accessor {
	return structured(s.rs, fields)
}

func structured(rs *reactive.Store, fields []SelectorField) map[string]Accessor {
	acc := make(map[string]Accessor, len(fields))
	for _, f := range fields {
		acc[f.Key] = memoize(rs, f.Selector)
	}
	return acc
}

// CollectSelectors returns a Selector evaluating to an ordered slice of
// independently memoized accessors, one per given selector. The compiled
// accessors are cached per backing store under the same single-threaded
// contract as CreateStructuredSelector.
func CollectSelectors(sels ...Selector) Selector {
	compiled := make(map[*reactive.Store][]Accessor)
	return func(st State) any {
		acc, ok := compiled[st.rs]
		if !ok {
			acc = make([]Accessor, len(sels))
			for i, sel := range sels {
				acc[i] = memoize(st.rs, sel)
			}
			compiled[st.rs] = acc
		}
		return acc
	}
}

// ComposeSelectors returns a Selector that feeds the results of sels
// positionally into combiner. Memoization is two-level: each input selector
// is memoized independently, and the combiner's output is memoized on top,
// so the combiner reruns only when one of its inputs actually changed.
// The compiled memos are cached per backing store under the same
// single-threaded contract as CreateStructuredSelector.
func ComposeSelectors(sels []Selector, combiner func(values []any) any) Selector {
	compiled := make(map[*reactive.Store]*reactive.Memo)
	return func(st State) any {
		m, ok := compiled[st.rs]
		if !ok {
			inputs := make([]Accessor, len(sels))
			for i, sel := range sels {
				inputs[i] = memoize(st.rs, sel)
			}
			m = st.rs.NewMemo(func() any {
				values := make([]any, len(inputs))
				for i, in := range inputs {
					values[i] = in()
				}
				return combiner(values)
			})
			compiled[st.rs] = m
		}
		return m.Get()
	}
}

// accessDepthLimit bounds Access recursion. Selector results are assumed
// acyclic; hitting the limit reports ErrAccessDepth instead of overflowing.
const accessDepthLimit = 512

// Access recursively resolves a selector-produced structure into a plain
// value: accessors are invoked, maps and slices are walked, everything else
// is returned as is. Use it to exit the lazy-selector world when an
// ordinary value is needed outside the reactive scope.
func Access(v any) (any, error) {
	return access(v, 0)
}

func access(v any, depth int) (any, error) {
	if depth > accessDepthLimit {
		return nil, ErrAccessDepth
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case Accessor:
		return access(t(), depth+1)
	case func() any:
		return access(t(), depth+1)
	case map[string]Accessor:
		out := make(map[string]any, len(t))
		for k, a := range t {
			r, err := access(a, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			r, err := access(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []Accessor:
		out := make([]any, len(t))
		for i, a := range t {
			r, err := access(a, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := access(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}
