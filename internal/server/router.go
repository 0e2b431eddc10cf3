package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/masari-app/masari/backend/internal/applications"
	"github.com/masari-app/masari/backend/internal/auth"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const sessionSubjectContextKey = "masari_session_subject"

var errMissingApplicationsService = errors.New("applications service dependency required")

// SessionValidator authenticates an incoming request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP transport. Sessions is optional; without it the
// API is open, which suits a single-user local deployment.
type Dependencies struct {
	Applications      *applications.Service
	Sessions          SessionValidator
	Realtime          *RealtimeDispatcher
	Logger            *zap.Logger
	TimelineLocation  *time.Location
	LabelLanguage     language.Tag
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Applications == nil {
		return nil, errMissingApplicationsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	location := deps.TimelineLocation
	if location == nil {
		location = time.UTC
	}
	labelLanguage := deps.LabelLanguage
	if labelLanguage == language.Und {
		labelLanguage = language.English
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		applications:      deps.Applications,
		sessions:          deps.Sessions,
		realtime:          realtime,
		logger:            logger,
		timelineLocation:  location,
		labelLanguage:     labelLanguage,
		heartbeatInterval: heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	if deps.Sessions != nil {
		protected.Use(handler.authorizeRequest)
	}
	protected.GET("/statuses", handler.handleListStatuses)
	protected.GET("/applications", handler.handleListApplications)
	protected.POST("/applications", handler.handleCreateApplication)
	protected.GET("/applications/:id", handler.handleGetApplication)
	protected.PATCH("/applications/:id", handler.handleUpdateApplication)
	protected.DELETE("/applications/:id", handler.handleDeleteApplication)
	protected.POST("/applications/:id/notes", handler.handleAddNote)
	protected.POST("/applications/:id/status", handler.handleChangeStatus)
	protected.GET("/applications/:id/timeline", handler.handleTimeline)
	protected.GET("/calendar", handler.handleCalendar)
	protected.GET("/events", handler.handleEvents)

	return router, nil
}

type httpHandler struct {
	applications      *applications.Service
	sessions          SessionValidator
	realtime          *RealtimeDispatcher
	logger            *zap.Logger
	timelineLocation  *time.Location
	labelLanguage     language.Tag
	heartbeatInterval time.Duration
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept-Language", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	wildcard := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
		}
	}
	if wildcard {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("session validation failed", zap.Error(err))
		} else {
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(sessionSubjectContextKey, claims.Subject)
	c.Next()
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message := <-stream:
			c.SSEvent(message.EventType, newRealtimeEventPayload(message))
			return true
		case now := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, realtimeEventPayload{Timestamp: now.UTC(), Source: realtimeSourceBackend})
			return true
		}
	})
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	code := ""
	var serviceErr *applications.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	switch {
	case errors.Is(err, applications.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "code": code, "message": err.Error()})
	case errors.Is(err, applications.ErrStorageFailure):
		h.logger.Error("storage failure", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failure", "code": code})
	default:
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": code})
	}
}

func respondNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
}

func respondInvalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
}
