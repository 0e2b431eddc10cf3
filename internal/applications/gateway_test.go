package applications

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/masari-app/masari/backend/internal/storage"
)

func TestGatewayGetAllReturnsEmptyWithoutDocument(t *testing.T) {
	h := newTestHarness(t)

	list, err := h.gateway.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
	if h.store.writes != 0 {
		t.Fatalf("reading must not write, got %d writes", h.store.writes)
	}
}

func TestGatewayCreateInitializesEmptyHistories(t *testing.T) {
	h := newTestHarness(t)

	created, err := h.gateway.Create(context.Background(), acmeFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "app-1" {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected createdAt == updatedAt, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}
	if created.StatusHistory == nil || len(created.StatusHistory) != 0 {
		t.Fatalf("expected empty status history, got %#v", created.StatusHistory)
	}
	if created.NotesHistory == nil || len(created.NotesHistory) != 0 {
		t.Fatalf("expected empty notes history, got %#v", created.NotesHistory)
	}
	if created.CalendarEvents == nil || len(created.CalendarEvents) != 0 {
		t.Fatalf("expected empty calendar events, got %#v", created.CalendarEvents)
	}
}

func TestGatewayCreateThenGetByIDRoundTrips(t *testing.T) {
	h := newTestHarness(t)

	created, err := h.gateway.Create(context.Background(), acmeFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, found, err := h.gateway.GetByID(context.Background(), ApplicationID(created.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected application to be found")
	}
	if !reflect.DeepEqual(created, loaded) {
		t.Fatalf("round trip mismatch:\ncreated %#v\nloaded  %#v", created, loaded)
	}
}

func TestGatewayUpdateMergesPatchAndRefreshesUpdatedAt(t *testing.T) {
	h := newTestHarness(t)
	created, err := h.gateway.Create(context.Background(), acmeFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	location := "Berlin"
	history := []NoteHistoryItem{{Note: "precomputed", Date: created.CreatedAt}}
	updated, found, err := h.gateway.Update(context.Background(), ApplicationID(created.ID), ApplicationPatch{
		Location:     &location,
		NotesHistory: &history,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected application to be found")
	}
	if updated.Location != "Berlin" || updated.Company != "Acme" {
		t.Fatalf("unexpected merge result: %#v", updated)
	}
	if len(updated.NotesHistory) != 1 || updated.NotesHistory[0].Note != "precomputed" {
		t.Fatalf("expected notes history to be replaced, got %#v", updated.NotesHistory)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance, got %v after %v", updated.UpdatedAt, created.UpdatedAt)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("identity fields must not change")
	}
}

func TestGatewayUpdateNeverMovesUpdatedAtBeforeCreatedAt(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	gateway, err := NewGateway(GatewayConfig{Store: store, Clock: clock, IDProvider: &sequenceIDGenerator{}})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	created, err := gateway.Create(context.Background(), acmeFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(-time.Hour)
	source := "Referral"
	updated, _, err := gateway.Update(context.Background(), ApplicationID(created.ID), ApplicationPatch{Source: &source})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updatedAt %v precedes createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestGatewayUpdateMissingIDReportsNotFound(t *testing.T) {
	h := newTestHarness(t)

	company := "Nobody"
	_, found, err := h.gateway.Update(context.Background(), ApplicationID("missing"), ApplicationPatch{Company: &company})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
	if h.store.writes != 0 {
		t.Fatalf("expected no writes, got %d", h.store.writes)
	}
}

func TestGatewayDeleteReportsWhetherRemoved(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	removed, err := h.gateway.Delete(ctx, ApplicationID("app-1"))
	if err != nil || removed {
		t.Fatalf("expected no removal on empty store, got %v, %v", removed, err)
	}

	first, _ := h.gateway.Create(ctx, acmeFields())
	second, _ := h.gateway.Create(ctx, acmeFields())

	removed, err = h.gateway.Delete(ctx, ApplicationID(first.ID))
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}
	if _, found, _ := h.gateway.GetByID(ctx, ApplicationID(first.ID)); found {
		t.Fatalf("deleted application still present")
	}
	if _, found, _ := h.gateway.GetByID(ctx, ApplicationID(second.ID)); !found {
		t.Fatalf("unrelated application was removed")
	}

	removed, err = h.gateway.Delete(ctx, ApplicationID(first.ID))
	if err != nil || removed {
		t.Fatalf("second delete should report false, got %v, %v", removed, err)
	}
}

func TestGatewayFailedWriteLeavesDocumentIntact(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	created, err := h.gateway.Create(ctx, acmeFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := storedDocument(t, h)

	h.store.failWrites = true
	company := "Changed"
	_, _, err = h.gateway.Update(ctx, ApplicationID(created.ID), ApplicationPatch{Company: &company})
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "applications.gateway.store.write_failed" {
		t.Fatalf("unexpected error code: %v", err)
	}
	if _, err := h.gateway.Create(ctx, acmeFields()); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected create to fail, got %v", err)
	}
	if _, err := h.gateway.Delete(ctx, ApplicationID(created.ID)); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected delete to fail, got %v", err)
	}

	if after := storedDocument(t, h); after != before {
		t.Fatalf("document changed after failed writes:\nbefore %s\nafter  %s", before, after)
	}

	h.store.failWrites = false
	loaded, found, err := h.gateway.GetByID(ctx, ApplicationID(created.ID))
	if err != nil || !found {
		t.Fatalf("expected confirmed application, got found=%v err=%v", found, err)
	}
	if loaded.Company != "Acme" {
		t.Fatalf("expected confirmed company, got %q", loaded.Company)
	}
}

func TestGatewayCorruptDocumentIsStorageFailure(t *testing.T) {
	h := newTestHarness(t)
	if err := h.store.inner.Set(context.Background(), "test_applications", []byte("{not json")); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	_, err := h.gateway.GetAll(context.Background())
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "applications.gateway.load.decode_failed" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGatewayPersistKeepsIdentityFields(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	created, _ := h.gateway.Create(ctx, acmeFields())

	next := created.Clone()
	next.CreatedAt = created.CreatedAt.Add(-24 * time.Hour)
	next.Position = "Staff Engineer"
	next.UpdatedAt = created.CreatedAt.Add(time.Hour)

	stored, found, err := h.gateway.Persist(ctx, next)
	if err != nil || !found {
		t.Fatalf("unexpected persist result: found=%v err=%v", found, err)
	}
	if !stored.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt must be preserved, got %v", stored.CreatedAt)
	}
	if stored.Position != "Staff Engineer" {
		t.Fatalf("expected position to be persisted, got %q", stored.Position)
	}

	next.ID = "missing"
	if _, found, err := h.gateway.Persist(ctx, next); err != nil || found {
		t.Fatalf("expected not found for unknown id, got found=%v err=%v", found, err)
	}
}

func TestGatewaySeedIfAbsentOnlyWritesOnce(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	seeded, err := h.gateway.SeedIfAbsent(ctx, DemoApplications())
	if err != nil || !seeded {
		t.Fatalf("expected first seed to write, got %v, %v", seeded, err)
	}
	seeded, err = h.gateway.SeedIfAbsent(ctx, DemoApplications())
	if err != nil || seeded {
		t.Fatalf("expected second seed to be skipped, got %v, %v", seeded, err)
	}
	list, err := h.gateway.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 demo applications, got %d", len(list))
	}
}

func TestNewGatewayRequiresDependencies(t *testing.T) {
	if _, err := NewGateway(GatewayConfig{IDProvider: &sequenceIDGenerator{}}); err == nil {
		t.Fatalf("expected missing store error")
	}
	if _, err := NewGateway(GatewayConfig{Store: storage.NewMemoryStore()}); err == nil {
		t.Fatalf("expected missing id provider error")
	}
	gateway, err := NewGateway(GatewayConfig{Store: storage.NewMemoryStore(), IDProvider: &sequenceIDGenerator{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.Key() != DefaultDocumentKey {
		t.Fatalf("expected default key, got %q", gateway.Key())
	}
}
