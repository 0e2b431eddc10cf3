package applications

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ServiceConfig describes the dependencies of the boundary Service.
type ServiceConfig struct {
	Gateway *Gateway
	Engine  *Engine
	Logger  *zap.Logger
}

// Service exposes the lifecycle operations to transports and the CLI.
// Not-found conditions are reported through boolean results; only validation
// and storage failures are returned as errors.
type Service struct {
	mu      sync.Mutex
	gateway *Gateway
	engine  *Engine
	logger  *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, newServiceError(opServiceNew, "missing_gateway", errMissingGateway)
	}
	if cfg.Engine == nil {
		return nil, newServiceError(opServiceNew, "missing_engine", errMissingEngine)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		gateway: cfg.Gateway,
		engine:  cfg.Engine,
		logger:  logger,
	}, nil
}

// ListFilter narrows ListApplications. Zero values match everything.
type ListFilter struct {
	Status     Status
	Source     string
	Search     string
	From       string
	To         string
	ActiveOnly bool
}

func (filter ListFilter) normalize() (ListFilter, error) {
	normalized := ListFilter{
		Source:     strings.TrimSpace(filter.Source),
		Search:     strings.ToLower(strings.TrimSpace(filter.Search)),
		ActiveOnly: filter.ActiveOnly,
	}
	if filter.Status != "" {
		status, err := ParseStatus(string(filter.Status))
		if err != nil {
			return ListFilter{}, err
		}
		normalized.Status = status
	}
	if strings.TrimSpace(filter.From) != "" {
		from, err := ParseCalendarDate(filter.From)
		if err != nil {
			return ListFilter{}, err
		}
		normalized.From = from
	}
	if strings.TrimSpace(filter.To) != "" {
		to, err := ParseCalendarDate(filter.To)
		if err != nil {
			return ListFilter{}, err
		}
		normalized.To = to
	}
	return normalized, nil
}

func (filter ListFilter) matches(app Application) bool {
	if filter.Status != "" && app.Status != filter.Status {
		return false
	}
	if filter.ActiveOnly && !app.Status.IsActive() {
		return false
	}
	if filter.Source != "" && !strings.EqualFold(app.Source, filter.Source) {
		return false
	}
	if filter.From != "" && app.DateApplied < filter.From {
		return false
	}
	if filter.To != "" && app.DateApplied > filter.To {
		return false
	}
	if filter.Search != "" {
		haystack := strings.ToLower(app.Company + " " + app.Position)
		if !strings.Contains(haystack, filter.Search) {
			return false
		}
	}
	return true
}

// ListApplications returns the stored applications matching filter, in storage order.
func (s *Service) ListApplications(ctx context.Context, filter ListFilter) ([]Application, error) {
	normalized, err := filter.normalize()
	if err != nil {
		return nil, s.invalid(opList, err)
	}
	all, err := s.gateway.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]Application, 0, len(all))
	for _, app := range all {
		if normalized.matches(app) {
			matched = append(matched, app)
		}
	}
	return matched, nil
}

// GetApplication returns the application with rawID, or found=false.
func (s *Service) GetApplication(ctx context.Context, rawID string) (Application, bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return Application{}, false, s.invalid(opGet, err)
	}
	return s.gateway.GetByID(ctx, id)
}

// CreateApplication validates fields and stores a new application.
func (s *Service) CreateApplication(ctx context.Context, fields ApplicationFields) (Application, error) {
	normalized, err := fields.Normalize()
	if err != nil {
		return Application{}, s.invalid(opCreate, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.gateway.Create(ctx, normalized)
	if err != nil {
		return Application{}, err
	}
	s.logger.Debug("application created",
		zap.String("application_id", created.ID),
		zap.String("status", string(created.Status)))
	return created, nil
}

// UpdateApplication applies a field edit. A status change inside the patch is
// recorded in the status history like ChangeStatus, without interview details.
func (s *Service) UpdateApplication(ctx context.Context, rawID string, patch ApplicationPatch) (Application, bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return Application{}, false, s.invalid(opUpdate, err)
	}
	normalized, err := patch.Normalize()
	if err != nil {
		return Application{}, false, s.invalid(opUpdate, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.gateway.GetByID(ctx, id)
	if err != nil || !found {
		return Application{}, false, err
	}

	if normalized.Status == nil || *normalized.Status == current.Status {
		normalized.Status = nil
		return s.gateway.Update(ctx, id, normalized)
	}

	next, err := s.engine.ApplyEdit(current, normalized)
	if err != nil {
		logServiceError(s.logger, opUpdate, reasonIDFailed, err, zap.String("application_id", id.String()))
		return Application{}, false, err
	}
	return s.commit(ctx, opUpdate, current, next)
}

// DeleteApplication removes the application and all of its history.
func (s *Service) DeleteApplication(ctx context.Context, rawID string) (bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return false, s.invalid(opDelete, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.gateway.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Debug("application deleted", zap.String("application_id", id.String()))
	}
	return removed, nil
}

// AddNote appends a note to the application's note history.
func (s *Service) AddNote(ctx context.Context, rawID string, text string) (Application, bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return Application{}, false, s.invalid(opAddNote, err)
	}
	if strings.TrimSpace(text) == "" {
		return Application{}, false, s.invalid(opAddNote, ErrEmptyNote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.gateway.GetByID(ctx, id)
	if err != nil || !found {
		return Application{}, false, err
	}
	return s.commit(ctx, opAddNote, current, s.engine.AppendNote(current, text))
}

// ChangeStatus moves the application to newStatus. Changing to the current
// status is a no-op that performs no write.
func (s *Service) ChangeStatus(ctx context.Context, rawID string, newStatus Status, details *InterviewDetails) (Application, bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return Application{}, false, s.invalid(opChangeStatus, err)
	}
	status, err := ParseStatus(string(newStatus))
	if err != nil {
		return Application{}, false, s.invalid(opChangeStatus, err)
	}
	if details != nil && details.DateTime.IsZero() {
		return Application{}, false, s.invalid(opChangeStatus, ErrMissingDateTime)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found, err := s.gateway.GetByID(ctx, id)
	if err != nil || !found {
		return Application{}, false, err
	}

	next, changed, err := s.engine.ApplyStatusChange(current, status, details)
	if err != nil {
		logServiceError(s.logger, opChangeStatus, reasonIDFailed, err, zap.String("application_id", id.String()))
		return Application{}, false, err
	}
	if !changed {
		return current, true, nil
	}
	return s.commit(ctx, opChangeStatus, current, next)
}

// Timeline builds the timeline of the application with rawID.
func (s *Service) Timeline(ctx context.Context, rawID string) (Timeline, bool, error) {
	id, err := NewApplicationID(rawID)
	if err != nil {
		return nil, false, s.invalid(opTimeline, err)
	}
	app, found, err := s.gateway.GetByID(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	return BuildTimeline(app), true, nil
}

// CalendarEvents returns every calendar event across applications, ordered by
// scheduled date. A zero from or to leaves that side of the range open.
func (s *Service) CalendarEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, s.invalid(opCalendar, ErrInvalidDate)
	}
	all, err := s.gateway.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]CalendarEvent, 0)
	for _, app := range all {
		for _, event := range app.CalendarEvents {
			if !from.IsZero() && event.Date.Before(from) {
				continue
			}
			if !to.IsZero() && event.Date.After(to) {
				continue
			}
			events = append(events, event)
		}
	}
	slices.SortStableFunc(events, func(left, right CalendarEvent) int {
		return left.Date.Compare(right.Date)
	})
	return events, nil
}

// Seed installs seed only when no applications document exists yet.
func (s *Service) Seed(ctx context.Context, seed []Application) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded, err := s.gateway.SeedIfAbsent(ctx, seed)
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("applications document seeded",
			zap.String("key", s.gateway.Key()),
			zap.Int("count", len(seed)))
	}
	return seeded, nil
}

func (s *Service) commit(ctx context.Context, operation string, confirmed, next Application) (Application, bool, error) {
	reconciler := NewReconciler(confirmed, s.gateway)
	stored, err := reconciler.Apply(ctx, next)
	if errors.Is(err, ErrApplicationGone) {
		return Application{}, false, nil
	}
	if err != nil {
		s.logger.Warn("optimistic update rolled back",
			zap.String("operation", operation),
			zap.String("application_id", confirmed.ID),
			zap.Error(err))
		return Application{}, false, err
	}
	return stored, true, nil
}

func (s *Service) invalid(operation string, cause error) error {
	return newServiceError(operation, reasonInvalid, cause)
}
