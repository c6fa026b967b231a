package mutant

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jilio/mutant/reactive"
)

// Logger is an interface for logging pipeline faults. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEffect installs the initial effect. It observes the init action too.
func WithEffect(effect Effect) StoreOption {
	return func(s *Store) {
		s.effect = effect
	}
}

// WithLogger sets the logger used for pipeline faults.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithErrorHandler sets the handler for faults on asynchronous dispatch
// paths (Deferred re-dispatch), which have no caller to return an error to.
// Without one, such faults are logged.
func WithErrorHandler(handler func(error)) StoreOption {
	return func(s *Store) {
		s.onError = handler
	}
}

// WithObservability installs dispatch pipeline hooks.
func WithObservability(obs Observability) StoreOption {
	return func(s *Store) {
		s.obs = obs
	}
}

// Store owns the application state tree, the installed mutator and effect,
// and the dispatch entry point. State is read through State, Get or
// Snapshot and changed only by dispatching.
//
// Top-level dispatches are serialized. The Dispatcher handed to thunks and
// effects must be called either synchronously within the dispatch that
// provided it or after that dispatch returned (a fresh top-level dispatch);
// not concurrently with it.
type Store struct {
	rs *reactive.Store

	mu      sync.Mutex
	mutator Mutator
	effect  Effect

	// mutatingG is the id of the goroutine running the current mutation,
	// zero when none. Dispatch from that goroutine is re-entrant and is
	// rejected; dispatch from any other goroutine just waits on mu.
	mutatingG atomic.Int64

	logger  Logger
	onError func(error)
	obs     Observability
}

// New builds a store from initial state, installs the mutator and options,
// and dispatches the reserved init action once through the full pipeline so
// composite mutators backfill any sub-states initial omitted and an
// installed effect observes the initialized state exactly once.
func New(mutator Mutator, initial any, opts ...StoreOption) (*Store, error) {
	if mutator == nil {
		return nil, errors.New("mutant: mutator is required")
	}
	s := &Store{
		rs:      reactive.New(initial),
		mutator: mutator,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Dispatch(initAction); err != nil {
		return nil, err
	}
	return s, nil
}

// Dispatch resolves v by variant: nil is a no-op; an Action runs the
// mutate-then-effect pipeline once; a Thunk is invoked with the dispatcher
// and a state snapshot; a Sequence dispatches each element in order; a
// Deferred re-dispatches asynchronously whatever arrives on the channel.
// Everything synchronous runs inside one coalescing batch, so subscribers
// see at most one notification per top-level dispatch.
func (s *Store) Dispatch(v Dispatchable) error {
	if s.inMutation() {
		return ErrDispatchDuringMutation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(v)
}

// run processes one top-level dispatch. Callers hold s.mu.
func (s *Store) run(v Dispatchable) error {
	active := new(atomic.Bool)
	active.Store(true)
	defer active.Store(false)

	var dsp Dispatcher
	dsp = func(d Dispatchable) error {
		if active.Load() {
			if s.inMutation() {
				return ErrDispatchDuringMutation
			}
			return s.dispatch(d, dsp)
		}
		return s.Dispatch(d)
	}

	var err error
	s.rs.Batch(func() {
		s.rs.Untrack(func() {
			err = s.dispatch(v, dsp)
		})
	})
	return err
}

func (s *Store) dispatch(v Dispatchable, dsp Dispatcher) error {
	switch d := v.(type) {
	case nil:
		return nil
	case Action:
		if !d.valid() {
			return nil
		}
		return s.apply(d, dsp)
	case Thunk:
		if d == nil {
			return nil
		}
		d(dsp, s.rs.Snapshot())
		return nil
	case Sequence:
		for _, item := range d {
			if item == nil {
				continue
			}
			if err := s.dispatch(item, dsp); err != nil {
				return err
			}
		}
		return nil
	case Deferred:
		if d == nil {
			return nil
		}
		go s.await(d)
		return nil
	default:
		return fmt.Errorf("mutant: cannot dispatch %T", v)
	}
}

func (s *Store) await(d Deferred) {
	v, ok := <-d
	if !ok || v == nil {
		return
	}
	if err := s.Dispatch(v); err != nil {
		s.reportAsync(err)
	}
}

// apply runs the mutate-then-effect pipeline for one plain action.
func (s *Store) apply(a Action, dsp Dispatcher) error {
	name := a.TypeName()
	ctx := context.Background()
	if s.obs != nil {
		ctx = s.obs.OnDispatchStart(ctx, name)
		defer s.obs.OnDispatchComplete(ctx, name)
	}

	start := time.Now()
	s.mutatingG.Store(goroutineID())
	err := s.rs.Mutate(func(current any) any {
		return s.mutator.Mutate(current, a)
	})
	s.mutatingG.Store(0)

	var pe *reactive.PanicError
	if errors.As(err, &pe) {
		err = &MutatorFault{ActionType: name, Recovered: pe.Recovered}
	}
	if s.obs != nil {
		s.obs.OnMutationComplete(ctx, name, time.Since(start), err)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Error("mutator fault", "action", name, "error", err)
		}
		return err
	}

	if eff := s.effect; eff != nil {
		start = time.Now()
		err = runEffect(eff, s.rs.Snapshot(), a, dsp, name)
		if s.obs != nil {
			s.obs.OnEffectComplete(ctx, name, time.Since(start), err)
		}
		if err != nil {
			if s.logger != nil {
				s.logger.Error("effect fault", "action", name, "error", err)
			}
			return err
		}
	}
	return nil
}

// inMutation reports whether the calling goroutine is inside a mutation
// transaction on this store.
func (s *Store) inMutation() bool {
	g := s.mutatingG.Load()
	return g != 0 && g == goroutineID()
}

// goroutineID parses the current goroutine's id out of its stack header.
// Goroutine ids start at 1, so zero is free as the no-mutation sentinel.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(header, ' '); i > 0 {
		if id, err := strconv.ParseInt(header[:i], 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func runEffect(eff Effect, state any, a Action, dsp Dispatcher, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EffectFault{ActionType: name, Recovered: r}
		}
	}()
	eff(state, a, dsp)
	return nil
}

func (s *Store) reportAsync(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	logger := s.logger
	if logger == nil {
		logger = StdLogger()
	}
	logger.Error("async dispatch fault", "error", err)
}

// ReplaceMutator atomically swaps the installed mutator, then re-runs the
// init action through the new pipeline so state the new mutator expects but
// the old one never built gets backfilled. Present state is preserved;
// combinators only fill in missing fields.
func (s *Store) ReplaceMutator(m Mutator) error {
	if m == nil {
		return errors.New("mutant: mutator is required")
	}
	if s.inMutation() {
		return ErrDispatchDuringMutation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutator = m
	return s.run(initAction)
}

// ReplaceEffect atomically swaps the installed effect, or removes it when
// given nil. Takes effect from the next dispatched action; no extra
// dispatch is triggered.
func (s *Store) ReplaceEffect(e Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effect = e
}

// State returns the read-tracked view selectors operate on.
func (s *Store) State() State {
	return State{rs: s.rs}
}

// Snapshot returns a plain deep copy of the current state tree.
func (s *Store) Snapshot() any {
	return s.rs.Snapshot()
}

// Get reads the value at the given path without registering a reactive
// dependency. An empty path returns the whole live tree.
func (s *Store) Get(keys ...string) any {
	var v any
	s.rs.Untrack(func() {
		v = s.rs.Read(keys...)
	})
	return v
}

// Subscribe registers fn to run after every dispatch that changed state,
// coalesced to once per top-level dispatch. Subscriptions survive
// ReplaceMutator and ReplaceEffect. The returned closure unsubscribes.
//
// fn runs on the dispatching goroutine while the dispatch lock is still
// held: it must not call Dispatch synchronously (that deadlocks). Follow-up
// dispatches from a subscriber belong in an Effect, or on a fresh
// goroutine.
func (s *Store) Subscribe(fn func()) func() {
	return s.rs.Subscribe(fn)
}
