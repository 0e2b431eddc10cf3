package server

import (
	"context"
	"sync"
	"time"

	"github.com/masari-app/masari/backend/internal/applications"
)

const (
	RealtimeEventApplicationChanged = "application-changed"
	RealtimeEventApplicationDeleted = "application-deleted"
	realtimeEventHeartbeat          = "heartbeat"
	realtimeSourceBackend           = "masari-backend"
	defaultHeartbeatInterval        = 25 * time.Second
	defaultRealtimeBufferSize       = 16
)

// RealtimeMessage announces a committed mutation of one application.
type RealtimeMessage struct {
	EventType     string
	ApplicationID string
	Status        applications.Status
	Timestamp     time.Time
}

// RealtimeDispatcher fans committed mutations out to every open event stream.
// Slow subscribers drop messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  defaultRealtimeBufferSize,
	}
}

// Subscribe registers a stream that lives until ctx is done or cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{stream: make(chan RealtimeMessage, d.bufferSize)}

	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EventType == "" || message.ApplicationID == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the number of open subscriptions.
func (d *RealtimeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

type realtimeEventPayload struct {
	ApplicationID string              `json:"applicationId,omitempty"`
	Status        applications.Status `json:"status,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	Source        string              `json:"source"`
}

func newRealtimeEventPayload(message RealtimeMessage) realtimeEventPayload {
	return realtimeEventPayload{
		ApplicationID: message.ApplicationID,
		Status:        message.Status,
		Timestamp:     message.Timestamp.UTC(),
		Source:        realtimeSourceBackend,
	}
}
