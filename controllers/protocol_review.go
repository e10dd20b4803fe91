package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"protocol-review-api/middleware"
	"protocol-review-api/models"
	"protocol-review-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProtocolWorkflow is the transition engine as seen by the HTTP layer.
type ProtocolWorkflow interface {
	CreateApplication(ctx context.Context, actor services.Actor, input services.NewProtocolInput) (*models.ProtocolApplication, error)
	GetApplication(ctx context.Context, actor services.Actor, id int) (*models.ProtocolApplication, error)
	ListApplications(ctx context.Context, actor services.Actor, filter services.ApplicationFilter) ([]models.ProtocolApplication, error)
	StatusHistory(ctx context.Context, actor services.Actor, id int) ([]models.ProtocolStatusHistory, error)
	SubmitTransition(ctx context.Context, applicationID int, actor services.Actor, req services.TransitionRequest) (*models.ProtocolApplication, error)
}

// ProtocolTimeline reconstructs protocol history.
type ProtocolTimeline interface {
	GetTimeline(ctx context.Context, actor services.Actor, applicationID int) ([]services.TimelineEntry, error)
}

// ProtocolReviewController serves the protocol review endpoints.
type ProtocolReviewController struct {
	workflow  ProtocolWorkflow
	timeline  ProtocolTimeline
	reviewers services.ReviewerDirectory
	log       *zap.SugaredLogger
}

// NewProtocolReviewController wires the handlers.
func NewProtocolReviewController(workflow ProtocolWorkflow, timeline ProtocolTimeline, reviewers services.ReviewerDirectory, log *zap.SugaredLogger) *ProtocolReviewController {
	return &ProtocolReviewController{workflow: workflow, timeline: timeline, reviewers: reviewers, log: log}
}

// CreateProtocol stores a new draft, or submits it right away when submit=true.
func (pc *ProtocolReviewController) CreateProtocol(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.NewProtocolInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "INVALID_INPUT"})
		return
	}

	app, err := pc.workflow.CreateApplication(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"protocol":        app,
		"allowed_actions": services.AvailableActions(app.Status),
	})
}

// ListProtocols lists protocols, optionally filtered by ?status=.
func (pc *ProtocolReviewController) ListProtocols(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := services.ApplicationFilter{
		Status: models.ProtocolStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit", "code": "INVALID_INPUT"})
			return
		}
		filter.Limit = limit
	}

	apps, err := pc.workflow.ListApplications(c.Request.Context(), actor, filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"protocols": apps,
		"total":     len(apps),
	})
}

// GetProtocol returns one protocol with the actions currently available on it.
func (pc *ProtocolReviewController) GetProtocol(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := protocolID(c)
	if !ok {
		return
	}

	app, err := pc.workflow.GetApplication(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"protocol":        app,
		"allowed_actions": services.AvailableActions(app.Status),
	})
}

// SubmitTransition applies a workflow action to a protocol.
func (pc *ProtocolReviewController) SubmitTransition(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := protocolID(c)
	if !ok {
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Action) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "INVALID_INPUT"})
		return
	}

	app, err := pc.workflow.SubmitTransition(c.Request.Context(), id, actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"protocol":        app,
		"allowed_actions": services.AvailableActions(app.Status),
	})
}

// GetTimeline returns the merged review history, most recent first.
func (pc *ProtocolReviewController) GetTimeline(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := protocolID(c)
	if !ok {
		return
	}

	entries, err := pc.timeline.GetTimeline(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"timeline": entries,
		"total":    len(entries),
	})
}

// GetStatusHistory returns the recorded status changes of a protocol.
func (pc *ProtocolReviewController) GetStatusHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := protocolID(c)
	if !ok {
		return
	}

	rows, err := pc.workflow.StatusHistory(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": rows,
	})
}

// ListReviewers returns the active reviewer pool. ?refresh=true bypasses the cache.
func (pc *ProtocolReviewController) ListReviewers(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	reviewers, err := pc.reviewers.ActiveReviewers(c.Request.Context(), refresh)
	if err != nil {
		pc.log.Errorw("failed to load reviewers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reviewers", "code": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"reviewers": reviewers,
	})
}

func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return services.Actor{}, false
	}
	return actor, true
}

func protocolID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid protocol ID", "code": "INVALID_INPUT"})
		return 0, false
	}
	return id, true
}
