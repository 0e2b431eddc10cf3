package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/masari-app/masari/backend/internal/applications"
	"github.com/masari-app/masari/backend/internal/storage"
	"golang.org/x/text/language"
)

type sequenceIDGenerator struct {
	prefix string
	next   int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s%d", g.prefix, g.next), nil
}

type stepClock struct {
	current time.Time
}

func (c *stepClock) Now() time.Time {
	now := c.current
	c.current = c.current.Add(time.Minute)
	return now
}

func newTestApplicationsService(t *testing.T) *applications.Service {
	t.Helper()
	clock := &stepClock{current: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	gateway, err := applications.NewGateway(applications.GatewayConfig{
		Store:      storage.NewMemoryStore(),
		Clock:      clock.Now,
		IDProvider: &sequenceIDGenerator{prefix: "app-"},
	})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	engine, err := applications.NewEngine(applications.EngineConfig{
		Clock:      clock.Now,
		IDProvider: &sequenceIDGenerator{prefix: "id-"},
		Language:   language.English,
	})
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}
	service, err := applications.NewService(applications.ServiceConfig{Gateway: gateway, Engine: engine})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func newTestRouter(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if deps.Applications == nil {
		deps.Applications = newTestApplicationsService(t)
	}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}
	return handler
}

func performJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &payload)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var decoded T
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}
