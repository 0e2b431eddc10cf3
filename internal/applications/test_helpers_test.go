package applications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/masari-app/masari/backend/internal/storage"
	"golang.org/x/text/language"
)

var errInjectedWrite = errors.New("injected write failure")

type sequenceIDGenerator struct {
	prefix string
	next   int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s%d", g.prefix, g.next), nil
}

type failingIDGenerator struct{}

func (failingIDGenerator) NewID() (string, error) {
	return "", errors.New("exhausted ids")
}

// steppingClock returns start, start+step, start+2*step, ...
type steppingClock struct {
	current time.Time
	step    time.Duration
}

func newSteppingClock(start time.Time, step time.Duration) *steppingClock {
	return &steppingClock{current: start, step: step}
}

func (c *steppingClock) Now() time.Time {
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

type flakyStore struct {
	inner      *storage.MemoryStore
	failWrites bool
	failReads  bool
	writes     int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: storage.NewMemoryStore()}
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failReads {
		return nil, false, errors.New("injected read failure")
	}
	return s.inner.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failWrites {
		return errInjectedWrite
	}
	s.writes++
	return s.inner.Set(ctx, key, value)
}

type testHarness struct {
	service *Service
	gateway *Gateway
	engine  *Engine
	store   *flakyStore
	clock   *steppingClock
}

func newTestHarness(t *testing.T) testHarness {
	t.Helper()

	store := newFlakyStore()
	clock := newSteppingClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Minute)

	gateway, err := NewGateway(GatewayConfig{
		Store:      store,
		Key:        "test_applications",
		Clock:      clock.Now,
		IDProvider: &sequenceIDGenerator{prefix: "app-"},
	})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}

	engine, err := NewEngine(EngineConfig{
		Clock:      clock.Now,
		IDProvider: &sequenceIDGenerator{prefix: "id-"},
		Language:   language.English,
	})
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}

	service, err := NewService(ServiceConfig{Gateway: gateway, Engine: engine})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}

	return testHarness{service: service, gateway: gateway, engine: engine, store: store, clock: clock}
}

func acmeFields() ApplicationFields {
	return ApplicationFields{
		Company:     "Acme",
		Position:    "Engineer",
		Status:      StatusSaved,
		DateApplied: "2024-01-01",
	}
}

func mustCreate(t *testing.T, h testHarness, fields ApplicationFields) Application {
	t.Helper()
	created, err := h.service.CreateApplication(context.Background(), fields)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return created
}

func mustInstant(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("invalid instant %q: %v", value, err)
	}
	return parsed
}

func storedDocument(t *testing.T, h testHarness) string {
	t.Helper()
	raw, _, err := h.store.inner.Get(context.Background(), "test_applications")
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	return string(raw)
}
