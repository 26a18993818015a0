package ordering

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher persists a patch. The API client implements it.
type Dispatcher interface {
	ReorderCards(ctx context.Context, patch Patch) error
}

// Reconciler turns drops into patches. The local state is updated before
// Drop returns; persisting the patch happens in the background and is never
// retried or rolled back.
type Reconciler struct {
	mu    sync.Mutex
	state State
	wg    sync.WaitGroup

	dispatcher Dispatcher
	logger     zerolog.Logger

	// OnDispatchError, when set, receives every failed dispatch.
	OnDispatchError func(patch Patch, err error)
}

func NewReconciler(logger zerolog.Logger, state State, dispatcher Dispatcher) *Reconciler {
	return &Reconciler{
		state:      state,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Drop applies the move and dispatches the full order of both touched
// containers. The returned patch is what was sent.
func (r *Reconciler) Drop(ctx context.Context, m Move) (Patch, error) {
	r.mu.Lock()
	next, err := ApplyLocalMove(r.state, m)
	if err != nil {
		r.mu.Unlock()
		r.logger.Error().
			Err(err).
			Int64("item_id", m.ItemID).
			Int64("from", m.From).
			Msg("failed to apply local move")
		return nil, err
	}
	r.state = next
	r.mu.Unlock()

	patch := ComputeOrderPatch(next, m.From, m.To)
	if len(patch) == 0 {
		return patch, nil
	}

	r.logger.Debug().
		Int64("item_id", m.ItemID).
		Int64("from", m.From).
		Int64("to", m.To).
		Int("to_index", m.ToIndex).
		Int("size", len(patch)).
		Msg("applied local move")

	// the request outlives the caller's cancellation
	dispatchCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dispatch(dispatchCtx, patch)
	}()
	return patch, nil
}

func (r *Reconciler) dispatch(ctx context.Context, patch Patch) {
	if err := r.dispatcher.ReorderCards(ctx, patch); err != nil {
		r.logger.Error().
			Err(err).
			Int("size", len(patch)).
			Msg("failed to persist order")
		if r.OnDispatchError != nil {
			r.OnDispatchError(patch, err)
		}
		return
	}
	r.logger.Debug().
		Int("size", len(patch)).
		Msg("persisted order")
}

// Wait blocks until every dispatch started so far has finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}
