package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/masari-app/masari/backend/internal/applications"
	"golang.org/x/text/language"
)

type listApplicationsQuery struct {
	Status string `form:"status"`
	Source string `form:"source"`
	Search string `form:"search"`
	From   string `form:"from"`
	To     string `form:"to"`
	Active bool   `form:"active"`
}

type createApplicationRequest struct {
	Company     string `json:"company" binding:"required"`
	Position    string `json:"position" binding:"required"`
	DateApplied string `json:"dateApplied" binding:"required"`
	Location    string `json:"location"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	JobType     string `json:"jobType"`
	JobURL      string `json:"jobUrl"`
	Notes       string `json:"notes"`
}

type updateApplicationRequest struct {
	Company     *string `json:"company"`
	Position    *string `json:"position"`
	DateApplied *string `json:"dateApplied"`
	Location    *string `json:"location"`
	Source      *string `json:"source"`
	Status      *string `json:"status"`
	JobType     *string `json:"jobType"`
	JobURL      *string `json:"jobUrl"`
	Notes       *string `json:"notes"`
}

type addNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

type interviewDetailsPayload struct {
	DateTime time.Time `json:"dateTime"`
	Location string    `json:"location"`
	Notes    string    `json:"notes"`
}

type changeStatusRequest struct {
	Status           string                   `json:"status" binding:"required"`
	InterviewDetails *interviewDetailsPayload `json:"interviewDetails"`
}

type timelineResponse struct {
	ApplicationID string                  `json:"applicationId"`
	Events        applications.Timeline   `json:"events"`
	Days          []applications.DayGroup `json:"days"`
}

type statusPayload struct {
	Status             applications.Status `json:"status"`
	Label              string              `json:"label"`
	Color              string              `json:"color"`
	Active             bool                `json:"active"`
	Terminal           bool                `json:"terminal"`
	RequiresScheduling bool                `json:"requiresScheduling"`
}

func (h *httpHandler) handleListStatuses(c *gin.Context) {
	tag := h.requestLanguage(c)
	statuses := applications.AllStatuses()
	payload := make([]statusPayload, 0, len(statuses))
	for _, status := range statuses {
		payload = append(payload, statusPayload{
			Status:             status,
			Label:              status.Label(tag),
			Color:              status.Color(),
			Active:             status.IsActive(),
			Terminal:           status.IsTerminal(),
			RequiresScheduling: status.RequiresScheduling(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"statuses": payload})
}

func (h *httpHandler) handleListApplications(c *gin.Context) {
	var query listApplicationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	list, err := h.applications.ListApplications(c.Request.Context(), applications.ListFilter{
		Status:     applications.Status(query.Status),
		Source:     query.Source,
		Search:     query.Search,
		From:       query.From,
		To:         query.To,
		ActiveOnly: query.Active,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": list})
}

func (h *httpHandler) handleCreateApplication(c *gin.Context) {
	var request createApplicationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	created, err := h.applications.CreateApplication(c.Request.Context(), applications.ApplicationFields{
		Company:     request.Company,
		Position:    request.Position,
		DateApplied: request.DateApplied,
		Location:    request.Location,
		Source:      request.Source,
		Status:      applications.Status(request.Status),
		JobType:     applications.JobType(request.JobType),
		JobURL:      request.JobURL,
		Notes:       request.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChanged(created)
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleGetApplication(c *gin.Context) {
	app, found, err := h.applications.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		respondNotFound(c)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *httpHandler) handleUpdateApplication(c *gin.Context) {
	var request updateApplicationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	patch := applications.ApplicationPatch{
		Company:     request.Company,
		Position:    request.Position,
		DateApplied: request.DateApplied,
		Location:    request.Location,
		Source:      request.Source,
		JobURL:      request.JobURL,
		Notes:       request.Notes,
	}
	if request.Status != nil {
		status := applications.Status(*request.Status)
		patch.Status = &status
	}
	if request.JobType != nil {
		jobType := applications.JobType(*request.JobType)
		patch.JobType = &jobType
	}

	updated, found, err := h.applications.UpdateApplication(c.Request.Context(), c.Param("id"), patch)
	h.respondMutation(c, updated, found, err)
}

func (h *httpHandler) handleDeleteApplication(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.applications.DeleteApplication(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !removed {
		respondNotFound(c)
		return
	}
	h.realtime.Publish(RealtimeMessage{
		EventType:     RealtimeEventApplicationDeleted,
		ApplicationID: strings.TrimSpace(id),
	})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddNote(c *gin.Context) {
	var request addNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	updated, found, err := h.applications.AddNote(c.Request.Context(), c.Param("id"), request.Note)
	h.respondMutation(c, updated, found, err)
}

func (h *httpHandler) handleChangeStatus(c *gin.Context) {
	var request changeStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c, err)
		return
	}
	var details *applications.InterviewDetails
	if request.InterviewDetails != nil {
		details = &applications.InterviewDetails{
			DateTime: request.InterviewDetails.DateTime,
			Location: strings.TrimSpace(request.InterviewDetails.Location),
			Notes:    strings.TrimSpace(request.InterviewDetails.Notes),
		}
	}
	updated, found, err := h.applications.ChangeStatus(c.Request.Context(), c.Param("id"), applications.Status(request.Status), details)
	h.respondMutation(c, updated, found, err)
}

func (h *httpHandler) handleTimeline(c *gin.Context) {
	id := c.Param("id")
	timeline, found, err := h.applications.Timeline(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		respondNotFound(c)
		return
	}
	c.JSON(http.StatusOK, timelineResponse{
		ApplicationID: strings.TrimSpace(id),
		Events:        timeline,
		Days:          timeline.GroupByDay(h.timelineLocation),
	})
}

func (h *httpHandler) handleCalendar(c *gin.Context) {
	from, err := parseRangeBound(c.Query("from"), false, h.timelineLocation)
	if err != nil {
		respondInvalidRequest(c, err)
		return
	}
	to, err := parseRangeBound(c.Query("to"), true, h.timelineLocation)
	if err != nil {
		respondInvalidRequest(c, err)
		return
	}
	events, err := h.applications.CalendarEvents(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *httpHandler) respondMutation(c *gin.Context, app applications.Application, found bool, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		respondNotFound(c)
		return
	}
	h.publishChanged(app)
	c.JSON(http.StatusOK, app)
}

func (h *httpHandler) publishChanged(app applications.Application) {
	h.realtime.Publish(RealtimeMessage{
		EventType:     RealtimeEventApplicationChanged,
		ApplicationID: app.ID,
		Status:        app.Status,
		Timestamp:     app.UpdatedAt,
	})
}

func (h *httpHandler) requestLanguage(c *gin.Context) language.Tag {
	if raw := c.Query("lang"); raw != "" {
		if tag, err := language.Parse(raw); err == nil {
			return tag
		}
	}
	if header := c.GetHeader("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			return tags[0]
		}
	}
	return h.labelLanguage
}

// parseRangeBound accepts an RFC 3339 instant or a YYYY-MM-DD date. A date used
// as an upper bound covers the whole day.
func parseRangeBound(raw string, upper bool, location *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	if instant, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return instant, nil
	}
	day, err := time.ParseInLocation(applications.DateLayout, trimmed, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid range bound %q", raw)
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
