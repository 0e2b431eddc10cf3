package applications

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/masari-app/masari/backend/internal/storage"
	"go.uber.org/zap"
)

// DefaultDocumentKey is the store key holding the serialized application list.
const DefaultDocumentKey = "masari_applications"

// GatewayConfig describes the dependencies of a Gateway.
type GatewayConfig struct {
	Store      storage.DocumentStore
	Key        string
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Gateway provides CRUD over the application collection stored as one JSON
// document. Each mutation reads the whole collection, changes one entry and
// rewrites the whole collection. Mutations within a process are serialized;
// writers in other processes race with last-write-wins semantics.
type Gateway struct {
	mu         sync.Mutex
	store      storage.DocumentStore
	key        string
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewGateway validates the configuration and returns a Gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opGatewayNew, "missing_store", errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opGatewayNew, "missing_id_provider", errMissingIDProvider)
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultDocumentKey
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Gateway{
		store:      cfg.Store,
		key:        key,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Key returns the document key the gateway reads and writes.
func (g *Gateway) Key() string {
	return g.key
}

// GetAll returns the whole collection. A missing document yields an empty list.
func (g *Gateway) GetAll(ctx context.Context) ([]Application, error) {
	list, _, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetByID returns the application with id, or found=false when absent.
func (g *Gateway) GetByID(ctx context.Context, id ApplicationID) (Application, bool, error) {
	list, _, err := g.load(ctx)
	if err != nil {
		return Application{}, false, err
	}
	index := indexOf(list, id)
	if index < 0 {
		return Application{}, false, nil
	}
	return list[index], true, nil
}

// Create assigns an id and timestamps, appends the application and persists the collection.
// fields are expected to be normalized by the caller.
func (g *Gateway) Create(ctx context.Context, fields ApplicationFields) (Application, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list, _, err := g.load(ctx)
	if err != nil {
		return Application{}, err
	}

	id, err := g.idProvider.NewID()
	if err != nil {
		logServiceError(g.logger, opGatewayStore, reasonIDFailed, err)
		return Application{}, newServiceError(opGatewayStore, reasonIDFailed, err)
	}

	now := g.clock().UTC()
	created := Application{
		ID:             id,
		Company:        fields.Company,
		Position:       fields.Position,
		DateApplied:    fields.DateApplied,
		Location:       fields.Location,
		Source:         fields.Source,
		Status:         fields.Status,
		JobType:        fields.JobType,
		JobURL:         fields.JobURL,
		Notes:          fields.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
		CalendarEvents: []CalendarEvent{},
		StatusHistory:  []StatusHistoryItem{},
		NotesHistory:   []NoteHistoryItem{},
	}

	if err := g.save(ctx, append(list, created)); err != nil {
		return Application{}, err
	}
	return created.Clone(), nil
}

// Update merges patch onto the stored application, refreshes updatedAt and persists.
func (g *Gateway) Update(ctx context.Context, id ApplicationID, patch ApplicationPatch) (Application, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list, _, err := g.load(ctx)
	if err != nil {
		return Application{}, false, err
	}
	index := indexOf(list, id)
	if index < 0 {
		return Application{}, false, nil
	}

	updated := patch.apply(list[index])
	updated.UpdatedAt = g.touch(updated.CreatedAt)
	list[index] = updated.Clone()

	if err := g.save(ctx, list); err != nil {
		return Application{}, false, err
	}
	return updated.Clone(), true, nil
}

// Persist replaces the stored application with a fully computed next state.
// The stored id and createdAt always win over the supplied values.
func (g *Gateway) Persist(ctx context.Context, next Application) (Application, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list, _, err := g.load(ctx)
	if err != nil {
		return Application{}, false, err
	}
	index := indexOf(list, ApplicationID(next.ID))
	if index < 0 {
		return Application{}, false, nil
	}

	stored := next.Clone()
	stored.ID = list[index].ID
	stored.CreatedAt = list[index].CreatedAt
	if stored.UpdatedAt.Before(stored.CreatedAt) {
		stored.UpdatedAt = stored.CreatedAt
	}
	list[index] = stored

	if err := g.save(ctx, list); err != nil {
		return Application{}, false, err
	}
	return stored.Clone(), true, nil
}

// Delete removes the application and reports whether anything was removed.
func (g *Gateway) Delete(ctx context.Context, id ApplicationID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list, exists, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	index := indexOf(list, id)
	if index < 0 {
		return false, nil
	}

	remaining := append(list[:index:index], list[index+1:]...)
	if err := g.save(ctx, remaining); err != nil {
		return false, err
	}
	return true, nil
}

// SeedIfAbsent writes the provided collection only when no document exists yet.
func (g *Gateway) SeedIfAbsent(ctx context.Context, seed []Application) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, exists, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := g.save(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Gateway) touch(createdAt time.Time) time.Time {
	now := g.clock().UTC()
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

func (g *Gateway) load(ctx context.Context) ([]Application, bool, error) {
	raw, exists, err := g.store.Get(ctx, g.key)
	if err != nil {
		logServiceError(g.logger, opGatewayLoad, reasonReadFailed, err, zap.String("key", g.key))
		return nil, false, storageFailure(opGatewayLoad, reasonReadFailed, err)
	}
	if !exists || len(raw) == 0 {
		return []Application{}, exists, nil
	}

	var list []Application
	if err := json.Unmarshal(raw, &list); err != nil {
		logServiceError(g.logger, opGatewayLoad, reasonDecode, err, zap.String("key", g.key))
		return nil, true, storageFailure(opGatewayLoad, reasonDecode, err)
	}
	for index := range list {
		list[index] = list[index].Clone()
	}
	return list, true, nil
}

func (g *Gateway) save(ctx context.Context, list []Application) error {
	normalized := make([]Application, 0, len(list))
	for _, app := range list {
		normalized = append(normalized, app.Clone())
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		logServiceError(g.logger, opGatewayStore, reasonEncode, err, zap.String("key", g.key))
		return storageFailure(opGatewayStore, reasonEncode, err)
	}
	if err := g.store.Set(ctx, g.key, raw); err != nil {
		logServiceError(g.logger, opGatewayStore, reasonWrite, err, zap.String("key", g.key))
		return storageFailure(opGatewayStore, reasonWrite, err)
	}
	return nil
}

func indexOf(list []Application, id ApplicationID) int {
	for index := range list {
		if list[index].ID == id.String() {
			return index
		}
	}
	return -1
}
