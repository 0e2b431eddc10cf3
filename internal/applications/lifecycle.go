package applications

import (
	"time"

	"golang.org/x/text/language"
)

const calendarEventIDPrefix = "evt-"

// EngineConfig describes the dependencies of the lifecycle Engine.
type EngineConfig struct {
	Clock      func() time.Time
	IDProvider IDProvider
	Language   language.Tag
}

// Engine computes the next state of an application for lifecycle intents.
// It never touches storage; callers persist the result.
//
// Any status may follow any other. Whether a stricter transition graph is
// wanted is an open product question, so none is enforced here.
type Engine struct {
	clock      func() time.Time
	idProvider IDProvider
	language   language.Tag
}

// NewEngine validates the configuration and returns an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.IDProvider == nil {
		return nil, newServiceError(opEngineNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	tag := cfg.Language
	if tag == language.Und {
		tag = language.English
	}
	return &Engine{
		clock:      clock,
		idProvider: cfg.IDProvider,
		language:   tag,
	}, nil
}

// ApplyStatusChange returns app moved to newStatus with the transition recorded.
// changed is false, and app is returned untouched, when newStatus equals the
// current status. Interview details are kept only for scheduling statuses, and
// each kept set also yields one calendar event.
func (e *Engine) ApplyStatusChange(app Application, newStatus Status, details *InterviewDetails) (Application, bool, error) {
	if newStatus == app.Status {
		return app, false, nil
	}

	now := e.clock().UTC()
	next := app.Clone()

	var recorded *InterviewDetails
	if details != nil && newStatus.RequiresScheduling() {
		copied := *details
		copied.DateTime = copied.DateTime.UTC()
		recorded = &copied
	}

	next.StatusHistory = append(next.StatusHistory, StatusHistoryItem{
		Status:           newStatus,
		Date:             now,
		InterviewDetails: recorded,
	})

	if recorded != nil {
		eventID, err := e.idProvider.NewID()
		if err != nil {
			return app, false, newServiceError(opChangeStatus, reasonIDFailed, err)
		}
		next.CalendarEvents = append(next.CalendarEvents, CalendarEvent{
			ID:            calendarEventIDPrefix + eventID,
			ApplicationID: app.ID,
			Title:         newStatus.Label(e.language),
			Date:          recorded.DateTime,
			Type:          newStatus,
			Location:      recorded.Location,
			Notes:         recorded.Notes,
		})
	}

	next.Status = newStatus
	next.UpdatedAt = laterOf(now, next.CreatedAt)
	return next, true, nil
}

// AppendNote returns app with text appended to its note history.
// Blank text is rejected by the service before this point.
func (e *Engine) AppendNote(app Application, text string) Application {
	now := e.clock().UTC()
	next := app.Clone()
	next.NotesHistory = append(next.NotesHistory, NoteHistoryItem{Note: text, Date: now})
	next.UpdatedAt = laterOf(now, next.CreatedAt)
	return next
}

// ApplyEdit returns app with patch merged and updatedAt refreshed. A status
// change in the patch goes through ApplyStatusChange first so the history
// stays complete; collections supplied in the patch still replace wholesale.
func (e *Engine) ApplyEdit(app Application, patch ApplicationPatch) (Application, error) {
	next := app.Clone()
	if patch.Status != nil && *patch.Status != app.Status {
		transitioned, _, err := e.ApplyStatusChange(app, *patch.Status, nil)
		if err != nil {
			return app, err
		}
		next = transitioned
	}

	remaining := patch
	remaining.Status = nil
	next = remaining.apply(next).Clone()
	next.UpdatedAt = laterOf(e.clock().UTC(), next.CreatedAt)
	return next, nil
}

func laterOf(candidate, floor time.Time) time.Time {
	if candidate.Before(floor) {
		return floor
	}
	return candidate
}
