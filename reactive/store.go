package reactive

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// PanicError wraps a panic recovered inside a Mutate callback.
// The mutation it interrupted has been rolled back.
type PanicError struct {
	Recovered any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("reactive: mutation panicked: %v", e.Recovered)
}

// cell is a version counter for one tracked path.
type cell struct {
	version uint64
}

func (c *cell) refresh()                {}
func (c *cell) currentVersion() uint64 { return c.version }

// source is anything a memo can depend on: a path cell or another memo.
type source interface {
	refresh()
	currentVersion() uint64
}

type dep struct {
	src     source
	version uint64
}

// tracker collects the dependencies touched during one memo computation.
type tracker struct {
	deps []dep
	seen map[source]struct{}
}

func (t *tracker) record(src source) {
	if _, ok := t.seen[src]; ok {
		return
	}
	t.seen[src] = struct{}{}
	t.deps = append(t.deps, dep{src: src, version: src.currentVersion()})
}

// Store owns a value tree and tracks changes to it at path granularity.
//
// Mutations are serialized internally. Reads, memo evaluation and
// subscriptions follow the cooperative single-threaded model of the
// surrounding store: they must not run concurrently with a mutation.
type Store struct {
	mu    sync.Mutex
	value any
	cells map[string]*cell

	obs        *tracker
	batchDepth int
	dirty      bool

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

// New creates a store owning the given initial value tree.
func New(initial any) *Store {
	return &Store{
		value: initial,
		cells: make(map[string]*cell),
		subs:  make(map[int]func()),
	}
}

// Mutate gives fn exclusive access to the live value tree. fn mutates the
// tree in place; returning a non-nil value replaces the tree wholesale
// (used when no state existed and fn synthesized it).
//
// A deep-copy snapshot is taken before fn runs. If fn panics the snapshot
// is restored and the recovered value is returned as a *PanicError, so a
// failed mutation is never partially visible. On success the snapshot is
// diffed against the mutated tree and every changed path's version cell is
// bumped.
func (s *Store) Mutate(fn func(current any) any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := deepClone(s.value)
	var fault error
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.value = snapshot
				fault = &PanicError{Recovered: r}
			}
		}()
		if next := fn(s.value); next != nil {
			s.value = next
		}
	}()
	if fault != nil {
		return fault
	}

	changed := diffPaths(snapshot, s.value, "", nil)
	if len(changed) > 0 {
		s.bump(changed)
		s.markDirty()
	}
	return nil
}

// Read returns the value at the given path, registering it as a dependency
// of the memo computation in progress, if any. An empty path reads the
// whole tree.
func (s *Store) Read(path ...string) any {
	if s.obs != nil {
		s.obs.record(s.cellAt(joinPath(path)))
	}
	return valueAt(s.value, path)
}

// Untrack runs fn without registering dependencies for any reads inside it.
func (s *Store) Untrack(fn func()) {
	prev := s.obs
	s.obs = nil
	defer func() { s.obs = prev }()
	fn()
}

// Batch coalesces subscriber notifications: however many mutations run
// inside fn (including nested batches), subscribers are notified at most
// once, after the outermost batch ends.
func (s *Store) Batch(fn func()) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth == 0 && s.dirty {
			s.dirty = false
			s.notify()
		}
	}()
	fn()
}

// Subscribe registers fn to run after each batch that changed the tree,
// on the goroutine that performed the mutation. fn must not mutate the
// store synchronously. The returned closure removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns a deep copy of the current tree.
func (s *Store) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepClone(s.value)
}

func (s *Store) markDirty() {
	if s.batchDepth > 0 {
		s.dirty = true
		return
	}
	s.notify()
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) cellAt(key string) *cell {
	c, ok := s.cells[key]
	if !ok {
		c = &cell{}
		s.cells[key] = c
	}
	return c
}

// bump increments every existing cell related to a changed path: the path
// itself, its ancestors, and any cell underneath it.
func (s *Store) bump(changed []string) {
	touched := make(map[*cell]struct{})
	for _, p := range changed {
		for key, c := range s.cells {
			if pathRelated(key, p) {
				touched[c] = struct{}{}
			}
		}
	}
	for c := range touched {
		c.version++
	}
}

const pathSep = "/"

func joinPath(path []string) string {
	return strings.Join(path, pathSep)
}

func childPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + pathSep + key
}

func pathRelated(a, b string) bool {
	if a == b || a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(b, a+pathSep) || strings.HasPrefix(a, b+pathSep)
}

func valueAt(v any, path []string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// deepClone copies map[string]any and []any recursively; everything else
// is copied by assignment. State trees are expected to be built from maps,
// slices and scalars.
func deepClone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepClone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepClone(e)
		}
		return out
	default:
		return v
	}
}

// diffPaths collects the deepest paths at which old and new differ.
func diffPaths(old, new any, prefix string, out []string) []string {
	om, oldIsMap := old.(map[string]any)
	nm, newIsMap := new.(map[string]any)
	if oldIsMap && newIsMap {
		for k, ov := range om {
			p := childPath(prefix, k)
			nv, ok := nm[k]
			if !ok {
				out = append(out, p)
				continue
			}
			out = diffPaths(ov, nv, p, out)
		}
		for k := range nm {
			if _, ok := om[k]; !ok {
				out = append(out, childPath(prefix, k))
			}
		}
		return out
	}
	if !reflect.DeepEqual(old, new) {
		out = append(out, prefix)
	}
	return out
}
