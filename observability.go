package mutant

import (
	"context"
	"time"
)

// Observability receives hooks around the dispatch pipeline. The otel
// subpackage provides an OpenTelemetry implementation; install one with
// WithObservability.
type Observability interface {
	// OnDispatchStart is called when a plain action enters the pipeline.
	// The returned context is threaded through the remaining hooks.
	OnDispatchStart(ctx context.Context, actionType string) context.Context
	// OnDispatchComplete is called after the action's mutation and effect
	// have both finished.
	OnDispatchComplete(ctx context.Context, actionType string)
	// OnMutationComplete is called after the mutation transaction, with a
	// non-nil err if the mutator faulted (and the transaction rolled back).
	OnMutationComplete(ctx context.Context, actionType string, duration time.Duration, err error)
	// OnEffectComplete is called after the installed effect ran, with a
	// non-nil err if it faulted. Not called when no effect is installed.
	OnEffectComplete(ctx context.Context, actionType string, duration time.Duration, err error)
}
