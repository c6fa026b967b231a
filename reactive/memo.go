package reactive

import "reflect"

// MemoOption configures a memo.
type MemoOption func(*memoConfig)

type memoConfig struct {
	equal func(a, b any) bool
}

// WithEqual sets the equality function used to decide whether a recomputed
// value replaces the previous one. When it reports equal, the memo keeps
// its old value and downstream consumers are not invalidated.
func WithEqual(eq func(a, b any) bool) MemoOption {
	return func(c *memoConfig) {
		c.equal = eq
	}
}

// Memo is a lazily recomputed derived value. It recomputes only when a
// dependency read during its last computation has changed, and it is itself
// a dependency of any memo computation that calls Get.
type Memo struct {
	store   *Store
	compute func() any
	equal   func(a, b any) bool

	deps  []dep
	value any
	ready bool
	self  cell
}

// NewMemo wraps compute in a memo bound to this store.
func (s *Store) NewMemo(compute func() any, opts ...MemoOption) *Memo {
	cfg := &memoConfig{equal: identical}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Memo{store: s, compute: compute, equal: cfg.equal}
}

// Get returns the memo's value, recomputing it first if stale.
func (m *Memo) Get() any {
	m.refresh()
	if m.store.obs != nil {
		m.store.obs.record(m)
	}
	return m.value
}

func (m *Memo) refresh() {
	if m.ready && !m.stale() {
		return
	}

	prev := m.store.obs
	t := &tracker{seen: make(map[source]struct{})}
	m.store.obs = t
	value := func() any {
		defer func() { m.store.obs = prev }()
		return m.compute()
	}()
	m.deps = t.deps

	if m.ready && m.equal(m.value, value) {
		return
	}
	m.value = value
	m.ready = true
	m.self.version++
}

func (m *Memo) stale() bool {
	for _, d := range m.deps {
		d.src.refresh()
		if d.src.currentVersion() != d.version {
			return true
		}
	}
	return false
}

func (m *Memo) currentVersion() uint64 { return m.self.version }

// identical is the default equality: reference identity for maps, slices,
// pointers and friends, == for comparable values, never equal otherwise.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}
