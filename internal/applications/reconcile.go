package applications

import (
	"context"
	"errors"
	"sync"
)

// ErrApplicationGone is returned by Reconciler.Commit when the confirmed
// application no longer exists in the store.
var ErrApplicationGone = errors.New("applications: application no longer exists")

// Persister stores a fully computed application state.
type Persister interface {
	Persist(ctx context.Context, next Application) (Application, bool, error)
}

// Reconciler tracks the last confirmed state of one application alongside an
// optimistic local state. Stage exposes the next state immediately; Commit
// confirms it through the Persister or restores the confirmed state on failure.
// Nothing is retried.
type Reconciler struct {
	mu        sync.Mutex
	persister Persister
	confirmed Application
	current   Application
}

// NewReconciler starts reconciliation from a confirmed snapshot.
func NewReconciler(confirmed Application, persister Persister) *Reconciler {
	snapshot := confirmed.Clone()
	return &Reconciler{
		persister: persister,
		confirmed: snapshot,
		current:   snapshot.Clone(),
	}
}

// Current returns the state callers should render, optimistic or confirmed.
func (r *Reconciler) Current() Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

// Confirmed returns the last state acknowledged by the store.
func (r *Reconciler) Confirmed() Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed.Clone()
}

// Stage records next as the optimistic state without persisting it.
func (r *Reconciler) Stage(next Application) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = next.Clone()
}

// Commit persists the staged state. On success the stored state becomes both
// confirmed and current; on any failure current falls back to confirmed.
func (r *Reconciler) Commit(ctx context.Context) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, found, err := r.persister.Persist(ctx, r.current)
	if err != nil {
		r.current = r.confirmed.Clone()
		return Application{}, err
	}
	if !found {
		r.current = r.confirmed.Clone()
		return Application{}, ErrApplicationGone
	}
	r.confirmed = stored.Clone()
	r.current = stored.Clone()
	return stored, nil
}

// Apply stages next and commits it.
func (r *Reconciler) Apply(ctx context.Context, next Application) (Application, error) {
	r.Stage(next)
	return r.Commit(ctx)
}
