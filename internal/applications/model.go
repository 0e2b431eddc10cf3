package applications

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// JobType enumerates the engagement kinds an application can target.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeRemote     JobType = "remote"
	JobTypeHybrid     JobType = "hybrid"
	JobTypeOnsite     JobType = "onsite"
)

// DateLayout is the calendar-date layout used for dateApplied.
const DateLayout = "2006-01-02"

const maxIdentifierLength = 190

var (
	// ErrValidation is the root of every caller-input rejection.
	ErrValidation = errors.New("applications: validation failed")
	// ErrStorageFailure marks failures of the underlying document store.
	ErrStorageFailure = errors.New("applications: storage failure")

	ErrInvalidApplicationID = fmt.Errorf("%w: invalid application id", ErrValidation)
	ErrInvalidStatus        = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidJobType       = fmt.Errorf("%w: invalid job type", ErrValidation)
	ErrInvalidDate          = fmt.Errorf("%w: invalid calendar date", ErrValidation)
	ErrMissingCompany       = fmt.Errorf("%w: company is required", ErrValidation)
	ErrMissingPosition      = fmt.Errorf("%w: position is required", ErrValidation)
	ErrEmptyNote            = fmt.Errorf("%w: note text is empty", ErrValidation)
	ErrMissingDateTime      = fmt.Errorf("%w: interview date and time is required", ErrValidation)
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// ApplicationID represents a validated application identifier.
type ApplicationID string

// NewApplicationID validates raw input and returns an ApplicationID.
func NewApplicationID(rawInput string) (ApplicationID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidApplicationID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidApplicationID, maxIdentifierLength)
	}
	return ApplicationID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ApplicationID) String() string {
	return string(id)
}

// ParseJobType validates a job type. An empty value is allowed and means unset.
func ParseJobType(rawInput string) (JobType, error) {
	value := JobType(strings.ToLower(strings.TrimSpace(rawInput)))
	switch value {
	case "", JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship,
		JobTypeRemote, JobTypeHybrid, JobTypeOnsite:
		return value, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidJobType, rawInput)
	}
}

// ParseCalendarDate validates a YYYY-MM-DD date and returns it unchanged.
func ParseCalendarDate(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if _, err := time.Parse(DateLayout, trimmed); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, rawInput)
	}
	return trimmed, nil
}

// NormalizeJobURL trims the URL and prepends https:// when no http(s) scheme is present.
func NormalizeJobURL(rawInput string) string {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return ""
	}
	if schemePattern.MatchString(trimmed) {
		return trimmed
	}
	return "https://" + trimmed
}

// InterviewDetails carries the scheduling facts captured with an interview-like transition.
type InterviewDetails struct {
	DateTime time.Time `json:"dateTime"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// StatusHistoryItem records one applied status transition.
type StatusHistoryItem struct {
	Status           Status            `json:"status"`
	Date             time.Time         `json:"date"`
	InterviewDetails *InterviewDetails `json:"interviewDetails,omitempty"`
}

// NoteHistoryItem records one free-form note.
type NoteHistoryItem struct {
	Note string    `json:"note"`
	Date time.Time `json:"date"`
}

// CalendarEvent is the calendar projection of a scheduling transition.
type CalendarEvent struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Type          Status    `json:"type"`
	Location      string    `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Application is the root entity persisted in the applications document.
type Application struct {
	ID             string              `json:"id"`
	Company        string              `json:"company"`
	Position       string              `json:"position"`
	DateApplied    string              `json:"dateApplied"`
	Location       string              `json:"location"`
	Source         string              `json:"source"`
	Status         Status              `json:"status"`
	JobType        JobType             `json:"jobType,omitempty"`
	JobURL         string              `json:"jobUrl,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	CalendarEvents []CalendarEvent     `json:"calendarEvents"`
	StatusHistory  []StatusHistoryItem `json:"statusHistory"`
	NotesHistory   []NoteHistoryItem   `json:"notesHistory"`
}

// Clone returns a copy that shares no slice or pointer storage with the receiver.
func (app Application) Clone() Application {
	cloned := app
	cloned.CalendarEvents = cloneOrEmpty(app.CalendarEvents)
	cloned.NotesHistory = cloneOrEmpty(app.NotesHistory)
	cloned.StatusHistory = make([]StatusHistoryItem, len(app.StatusHistory))
	for index, item := range app.StatusHistory {
		if item.InterviewDetails != nil {
			details := *item.InterviewDetails
			item.InterviewDetails = &details
		}
		cloned.StatusHistory[index] = item
	}
	return cloned
}

func cloneOrEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return slices.Clone(items)
}

// ApplicationFields is the caller-supplied payload for creating an application.
type ApplicationFields struct {
	Company     string
	Position    string
	DateApplied string
	Location    string
	Source      string
	Status      Status
	JobType     JobType
	JobURL      string
	Notes       string
}

// Normalize validates the fields and returns a trimmed copy with defaults applied.
func (fields ApplicationFields) Normalize() (ApplicationFields, error) {
	normalized := ApplicationFields{
		Company:  strings.TrimSpace(fields.Company),
		Position: strings.TrimSpace(fields.Position),
		Location: strings.TrimSpace(fields.Location),
		Source:   strings.TrimSpace(fields.Source),
		JobURL:   NormalizeJobURL(fields.JobURL),
		Notes:    fields.Notes,
	}
	if normalized.Company == "" {
		return ApplicationFields{}, ErrMissingCompany
	}
	if normalized.Position == "" {
		return ApplicationFields{}, ErrMissingPosition
	}

	status := fields.Status
	if status == "" {
		status = StatusSaved
	}
	parsedStatus, err := ParseStatus(string(status))
	if err != nil {
		return ApplicationFields{}, err
	}
	normalized.Status = parsedStatus

	jobType, err := ParseJobType(string(fields.JobType))
	if err != nil {
		return ApplicationFields{}, err
	}
	normalized.JobType = jobType

	dateApplied, err := ParseCalendarDate(fields.DateApplied)
	if err != nil {
		return ApplicationFields{}, err
	}
	normalized.DateApplied = dateApplied

	return normalized, nil
}

// ApplicationPatch describes a shallow update. Nil fields are left untouched and
// non-nil collections replace the stored ones wholesale.
type ApplicationPatch struct {
	Company        *string
	Position       *string
	DateApplied    *string
	Location       *string
	Source         *string
	Status         *Status
	JobType        *JobType
	JobURL         *string
	Notes          *string
	StatusHistory  *[]StatusHistoryItem
	NotesHistory   *[]NoteHistoryItem
	CalendarEvents *[]CalendarEvent
}

// Normalize validates the descriptive fields present in the patch.
func (patch ApplicationPatch) Normalize() (ApplicationPatch, error) {
	normalized := patch
	if patch.Company != nil {
		company := strings.TrimSpace(*patch.Company)
		if company == "" {
			return ApplicationPatch{}, ErrMissingCompany
		}
		normalized.Company = &company
	}
	if patch.Position != nil {
		position := strings.TrimSpace(*patch.Position)
		if position == "" {
			return ApplicationPatch{}, ErrMissingPosition
		}
		normalized.Position = &position
	}
	if patch.DateApplied != nil {
		dateApplied, err := ParseCalendarDate(*patch.DateApplied)
		if err != nil {
			return ApplicationPatch{}, err
		}
		normalized.DateApplied = &dateApplied
	}
	if patch.Status != nil {
		status, err := ParseStatus(string(*patch.Status))
		if err != nil {
			return ApplicationPatch{}, err
		}
		normalized.Status = &status
	}
	if patch.JobType != nil {
		jobType, err := ParseJobType(string(*patch.JobType))
		if err != nil {
			return ApplicationPatch{}, err
		}
		normalized.JobType = &jobType
	}
	if patch.JobURL != nil {
		jobURL := NormalizeJobURL(*patch.JobURL)
		normalized.JobURL = &jobURL
	}
	return normalized, nil
}

// apply merges the patch onto app without touching timestamps.
func (patch ApplicationPatch) apply(app Application) Application {
	if patch.Company != nil {
		app.Company = *patch.Company
	}
	if patch.Position != nil {
		app.Position = *patch.Position
	}
	if patch.DateApplied != nil {
		app.DateApplied = *patch.DateApplied
	}
	if patch.Location != nil {
		app.Location = *patch.Location
	}
	if patch.Source != nil {
		app.Source = *patch.Source
	}
	if patch.Status != nil {
		app.Status = *patch.Status
	}
	if patch.JobType != nil {
		app.JobType = *patch.JobType
	}
	if patch.JobURL != nil {
		app.JobURL = *patch.JobURL
	}
	if patch.Notes != nil {
		app.Notes = *patch.Notes
	}
	if patch.StatusHistory != nil {
		app.StatusHistory = slices.Clone(*patch.StatusHistory)
	}
	if patch.NotesHistory != nil {
		app.NotesHistory = slices.Clone(*patch.NotesHistory)
	}
	if patch.CalendarEvents != nil {
		app.CalendarEvents = slices.Clone(*patch.CalendarEvents)
	}
	return app
}
