package applications

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// TimelineEventKind distinguishes the sources merged into a timeline.
type TimelineEventKind string

const (
	TimelineEventCreated      TimelineEventKind = "created"
	TimelineEventStatusChange TimelineEventKind = "status_change"
	TimelineEventNote         TimelineEventKind = "note"
)

// TimelineEvent is one entry of the read-side timeline.
type TimelineEvent struct {
	ID               string            `json:"id"`
	Kind             TimelineEventKind `json:"type"`
	Date             time.Time         `json:"date"`
	Status           Status            `json:"status,omitempty"`
	InterviewDetails *InterviewDetails `json:"interviewDetails,omitempty"`
	Note             string            `json:"note,omitempty"`
}

// Timeline is an ascending, stable-ordered sequence of events.
type Timeline []TimelineEvent

// DayGroup holds the events that fall on one calendar day.
type DayGroup struct {
	Day    string          `json:"day"`
	Events []TimelineEvent `json:"events"`
}

// BuildTimeline merges creation, status history and note history into one
// sequence sorted by date. Equal dates keep input order: creation first, then
// status history, then notes.
func BuildTimeline(app Application) Timeline {
	events := make(Timeline, 0, 1+len(app.StatusHistory)+len(app.NotesHistory))
	events = append(events, TimelineEvent{
		ID:   string(TimelineEventCreated),
		Kind: TimelineEventCreated,
		Date: app.CreatedAt,
	})

	for index, item := range app.StatusHistory {
		var details *InterviewDetails
		if item.InterviewDetails != nil {
			copied := *item.InterviewDetails
			details = &copied
		}
		events = append(events, TimelineEvent{
			ID:               fmt.Sprintf("status-%s-%d", item.Status, index),
			Kind:             TimelineEventStatusChange,
			Date:             item.Date,
			Status:           item.Status,
			InterviewDetails: details,
		})
	}

	for index, item := range app.NotesHistory {
		events = append(events, TimelineEvent{
			ID:   fmt.Sprintf("note-%d", index),
			Kind: TimelineEventNote,
			Date: item.Date,
			Note: item.Note,
		})
	}

	slices.SortStableFunc(events, func(left, right TimelineEvent) int {
		return left.Date.Compare(right.Date)
	})
	return events
}

// All yields the events in order. The sequence can be ranged over repeatedly.
func (t Timeline) All() iter.Seq2[int, TimelineEvent] {
	return func(yield func(int, TimelineEvent) bool) {
		for index, event := range t {
			if !yield(index, event) {
				return
			}
		}
	}
}

// GroupByDay partitions the events by calendar day in loc, days ascending.
func (t Timeline) GroupByDay(loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[string][]TimelineEvent)
	days := make([]string, 0)
	for _, event := range t.All() {
		day := event.Date.In(loc).Format(DateLayout)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], event)
	}
	slices.Sort(days)

	groups := make([]DayGroup, 0, len(days))
	for _, day := range days {
		groups = append(groups, DayGroup{Day: day, Events: byDay[day]})
	}
	return groups
}
