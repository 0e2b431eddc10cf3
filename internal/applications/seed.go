package applications

import "time"

// DemoApplications returns the sample collection installed by the seed command.
func DemoApplications() []Application {
	return []Application{
		demoApplication("1", "Google", "Front-end Developer", "2023-05-10", "Remote", "LinkedIn", StatusInterview,
			"Had initial call with recruiter, technical interview scheduled.",
			"2023-05-10T10:00:00Z", "2023-05-15T14:30:00Z"),
		demoApplication("2", "Microsoft", "UI/UX Designer", "2023-04-22", "Dubai, UAE", "Company Website", StatusApplied,
			"Applied through career portal.",
			"2023-04-22T09:15:00Z", "2023-04-22T09:15:00Z"),
		demoApplication("3", "Amazon", "React Developer", "2023-06-01", "Riyadh, KSA", "Indeed", StatusRejected,
			"Received rejection email after 2 weeks.",
			"2023-06-01T11:30:00Z", "2023-06-15T16:45:00Z"),
		demoApplication("4", "Meta", "Software Engineer", "2023-05-15", "Remote", "Referral", StatusOffer,
			"Received offer after final interview. Need to review compensation package.",
			"2023-05-15T13:20:00Z", "2023-06-10T17:00:00Z"),
	}
}

func demoApplication(id, company, position, dateApplied, location, source string, status Status, notes, createdAt, updatedAt string) Application {
	return Application{
		ID:             id,
		Company:        company,
		Position:       position,
		DateApplied:    dateApplied,
		Location:       location,
		Source:         source,
		Status:         status,
		Notes:          notes,
		CreatedAt:      mustParseInstant(createdAt),
		UpdatedAt:      mustParseInstant(updatedAt),
		CalendarEvents: []CalendarEvent{},
		StatusHistory:  []StatusHistoryItem{},
		NotesHistory:   []NoteHistoryItem{},
	}
}

func mustParseInstant(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return parsed
}
