// Package reactive provides the fine-grained change-tracking primitives the
// mutant store is built on: a value-tree store with transactional mutation,
// per-path version cells, pull-based memos, batching and untracked reads.
//
// # Store and Mutate
//
// A Store owns a value tree of maps, slices and scalars. All writes happen
// inside Mutate, which hands the caller exclusive access to the live tree:
//
//	rs := reactive.New(map[string]any{"count": 0})
//	rs.Mutate(func(current any) any {
//	    current.(map[string]any)["count"] = 1
//	    return nil
//	})
//
// Before the callback runs the store takes a deep-copy snapshot. Afterwards
// it diffs the snapshot against the mutated tree and bumps a version cell
// for every path that changed. If the callback panics, the snapshot is
// restored and the fault is returned, so a failed mutation is never
// partially visible.
//
// Returning a non-nil value from the callback replaces the whole tree. This
// supports mutators that synthesize state when none existed yet.
//
// # Memos
//
// NewMemo wraps a computation in a lazily recomputed cell. Reads performed
// through Store.Read during the computation are recorded as dependencies;
// the memo recomputes only when one of those paths has changed since:
//
//	count := rs.NewMemo(func() any {
//	    return rs.Read("count")
//	})
//	_ = count.Get()
//
// Memos are themselves dependencies: a memo that calls another memo's Get
// during its computation recomputes only when that memo's value changes.
// WithEqual suppresses downstream invalidation when a recomputed value is
// equal to the previous one.
//
// # Batching and untracked reads
//
// Batch coalesces subscriber notifications: no matter how many mutations
// run inside the callback (including nested Batch calls), subscribers are
// notified at most once, after the outermost batch ends. Untrack runs a
// callback without registering dependencies on any reads it performs.
package reactive
