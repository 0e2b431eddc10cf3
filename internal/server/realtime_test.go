package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/masari-app/masari/backend/internal/applications"
)

func TestRealtimeDispatcherPublishesToEverySubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, cleanupFirst := dispatcher.Subscribe(ctx)
	defer cleanupFirst()
	second, cleanupSecond := dispatcher.Subscribe(ctx)
	defer cleanupSecond()

	dispatcher.Publish(RealtimeMessage{
		EventType:     RealtimeEventApplicationChanged,
		ApplicationID: "app-1",
		Status:        applications.StatusInterview,
	})

	for index, stream := range []<-chan RealtimeMessage{first, second} {
		select {
		case received := <-stream:
			if received.ApplicationID != "app-1" || received.Timestamp.IsZero() {
				t.Fatalf("unexpected message on subscriber %d: %#v", index, received)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("expected realtime message on subscriber %d", index)
		}
	}
}

func TestRealtimeDispatcherDropsIncompleteMessages(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	stream, cleanup := dispatcher.Subscribe(context.Background())
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{EventType: RealtimeEventApplicationChanged})
	dispatcher.Publish(RealtimeMessage{ApplicationID: "app-1"})

	select {
	case message := <-stream:
		t.Fatalf("did not expect message %#v", message)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRealtimeDispatcherUnsubscribesOnContextDone(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	_, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	if dispatcher.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber was not removed after cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventStreamAnnouncesMutations(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	handler := newTestRouter(t, Dependencies{Realtime: dispatcher, HeartbeatInterval: time.Hour})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	streamResp, err := http.Get(server.URL + "/events")
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if contentType := streamResp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "text/event-stream") {
		t.Fatalf("unexpected content type %q", contentType)
	}

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream did not subscribe")
		}
		time.Sleep(10 * time.Millisecond)
	}

	created := createAcme(t, handler)

	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult, 16)
	go func() {
		reader := bufio.NewReader(streamResp.Body)
		for {
			line, err := reader.ReadString('\n')
			lines <- readResult{line: line, err: err}
			if err != nil {
				return
			}
		}
	}()

	currentEventType := ""
	timeout := time.After(5 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for realtime event")
		case result := <-lines:
			if result.err != nil {
				t.Fatalf("failed to read stream: %v", result.err)
			}
			line := strings.TrimSpace(result.line)
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != RealtimeEventApplicationChanged {
				continue
			}
			var payload realtimeEventPayload
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &payload); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if payload.ApplicationID != created.ID || payload.Source != realtimeSourceBackend {
				t.Fatalf("unexpected payload: %#v", payload)
			}
			return
		}
	}
}
