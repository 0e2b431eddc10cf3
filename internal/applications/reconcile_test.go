package applications

import (
	"context"
	"errors"
	"testing"
)

func TestReconcilerCommitConfirmsStagedState(t *testing.T) {
	h := newTestHarness(t)
	created := mustCreate(t, h, acmeFields())

	reconciler := NewReconciler(created, h.gateway)
	next := h.engine.AppendNote(created, "Great call")
	reconciler.Stage(next)

	if got := reconciler.Current(); len(got.NotesHistory) != 1 {
		t.Fatalf("expected optimistic note to be visible, got %#v", got.NotesHistory)
	}
	if got := reconciler.Confirmed(); len(got.NotesHistory) != 0 {
		t.Fatalf("confirmed state must not change before commit")
	}

	stored, err := reconciler.Commit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored.NotesHistory) != 1 || len(reconciler.Confirmed().NotesHistory) != 1 {
		t.Fatalf("expected commit to confirm the note")
	}
}

func TestReconcilerRollsBackOnStorageFailure(t *testing.T) {
	h := newTestHarness(t)
	created := mustCreate(t, h, acmeFields())
	before := storedDocument(t, h)

	reconciler := NewReconciler(created, h.gateway)
	next, _, err := h.engine.ApplyStatusChange(created, StatusApplied, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.store.failWrites = true
	if _, err := reconciler.Apply(context.Background(), next); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	current := reconciler.Current()
	if current.Status != StatusSaved || len(current.StatusHistory) != 0 {
		t.Fatalf("expected rollback to confirmed state, got %#v", current)
	}
	if after := storedDocument(t, h); after != before {
		t.Fatalf("stored document changed after failed commit")
	}
}

func TestReconcilerReportsDeletedApplication(t *testing.T) {
	h := newTestHarness(t)
	created := mustCreate(t, h, acmeFields())
	if _, err := h.service.DeleteApplication(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	reconciler := NewReconciler(created, h.gateway)
	_, err := reconciler.Apply(context.Background(), h.engine.AppendNote(created, "orphan"))
	if !errors.Is(err, ErrApplicationGone) {
		t.Fatalf("expected ErrApplicationGone, got %v", err)
	}
	if len(reconciler.Current().NotesHistory) != 0 {
		t.Fatalf("expected rollback after missing application")
	}
}
