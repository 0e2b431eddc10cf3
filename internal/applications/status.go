package applications

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Status enumerates the lifecycle stages of an application.
type Status string

const (
	StatusSaved       Status = "saved"
	StatusApplied     Status = "applied"
	StatusPhoneScreen Status = "phone_screen"
	StatusInterview   Status = "interview"
	StatusAssessment  Status = "assessment"
	StatusFinalRound  Status = "final_round"
	StatusOffer       Status = "offer"
	StatusNegotiating Status = "negotiating"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusDeclined    Status = "declined"
)

const statusCount = 11

type statusDescriptor struct {
	status     Status
	labelEN    string
	labelAR    string
	color      string
	scheduling bool
	terminal   bool
	active     bool
}

// statusTable is the single source of per-status facts. The typed assertion
// below fails to compile when an entry is added or removed without updating
// statusCount.
var statusTable = [...]statusDescriptor{
	{status: StatusSaved, labelEN: "Saved", labelAR: "محفوظ", color: "default"},
	{status: StatusApplied, labelEN: "Applied", labelAR: "تم التقديم", color: "blue", active: true},
	{status: StatusPhoneScreen, labelEN: "Phone Screen", labelAR: "مكالمة هاتفية", color: "cyan", scheduling: true, active: true},
	{status: StatusInterview, labelEN: "Interview", labelAR: "مقابلة", color: "orange", scheduling: true, active: true},
	{status: StatusAssessment, labelEN: "Assessment", labelAR: "تقييم", color: "purple", scheduling: true, active: true},
	{status: StatusFinalRound, labelEN: "Final Round", labelAR: "المقابلة النهائية", color: "geekblue", scheduling: true, active: true},
	{status: StatusOffer, labelEN: "Offer", labelAR: "عرض عمل", color: "green", active: true},
	{status: StatusNegotiating, labelEN: "Negotiating", labelAR: "تفاوض", color: "gold", active: true},
	{status: StatusAccepted, labelEN: "Accepted", labelAR: "مقبول", color: "success", terminal: true},
	{status: StatusRejected, labelEN: "Rejected", labelAR: "مرفوض", color: "red", terminal: true},
	{status: StatusDeclined, labelEN: "Declined", labelAR: "تم الاعتذار", color: "volcano", terminal: true},
}

var _ [statusCount]statusDescriptor = statusTable

var labelMatcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	statuses := make([]Status, 0, len(statusTable))
	for _, descriptor := range statusTable {
		statuses = append(statuses, descriptor.status)
	}
	return statuses
}

// ParseStatus validates raw input against the fixed status set.
func ParseStatus(rawInput string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(rawInput)))
	if _, ok := candidate.descriptor(); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
	return candidate, nil
}

func (s Status) descriptor() (statusDescriptor, bool) {
	for _, descriptor := range statusTable {
		if descriptor.status == s {
			return descriptor, true
		}
	}
	return statusDescriptor{}, false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := s.descriptor()
	return ok
}

// RequiresScheduling reports whether transitions into s carry interview details.
func (s Status) RequiresScheduling() bool {
	descriptor, _ := s.descriptor()
	return descriptor.scheduling
}

// IsTerminal reports whether s ends the process for display purposes.
// The lifecycle engine does not restrict transitions out of terminal statuses.
func (s Status) IsTerminal() bool {
	descriptor, _ := s.descriptor()
	return descriptor.terminal
}

// IsActive reports whether s counts as an in-flight application.
func (s Status) IsActive() bool {
	descriptor, _ := s.descriptor()
	return descriptor.active
}

// Color returns the display color token for s.
func (s Status) Color() string {
	descriptor, ok := s.descriptor()
	if !ok {
		return "default"
	}
	return descriptor.color
}

// Label returns the status label in the closest supported language.
func (s Status) Label(tag language.Tag) string {
	descriptor, ok := s.descriptor()
	if !ok {
		return string(s)
	}
	_, index, _ := labelMatcher.Match(tag)
	if index == 1 {
		return descriptor.labelAR
	}
	return descriptor.labelEN
}

// ParseLanguage parses a BCP 47 tag used for status labels.
func ParseLanguage(rawInput string) (language.Tag, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return language.English, nil
	}
	return language.Parse(trimmed)
}
