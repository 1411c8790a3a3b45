package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicgrid/licensing-portal/internal/application/assignment"
	"github.com/civicgrid/licensing-portal/internal/application/gate"
	"github.com/civicgrid/licensing-portal/internal/application/port"
	"github.com/civicgrid/licensing-portal/internal/application/service"
	appwf "github.com/civicgrid/licensing-portal/internal/application/workflow"
	domainwf "github.com/civicgrid/licensing-portal/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	applicationService service.ApplicationService
	reportService      service.ReportService
	orchestrator       appwf.Orchestrator
	logger             Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	applicationService service.ApplicationService,
	reportService service.ReportService,
	orchestrator appwf.Orchestrator,
	logger Logger,
) *Handlers {
	return &Handlers{
		applicationService: applicationService,
		reportService:      reportService,
		orchestrator:       orchestrator,
		logger:             logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ExecuteActionRequest represents the body of an action request
type ExecuteActionRequest struct {
	Action           string     `json:"action" binding:"required"`
	ActorOfficerID   *int64     `json:"actor_officer_id"`
	Comment          string     `json:"comment"`
	ManualOfficerID  *int64     `json:"manual_officer_id"`
	StrategyOverride string     `json:"strategy_override"`
	AppointmentAt    *time.Time `json:"appointment_at"`
	DocumentRef      string     `json:"document_ref"`
}

// ListApplicationsRequest represents query parameters for listing applications
type ListApplicationsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ExportReportRequest represents the body of a report export request
type ExportReportRequest struct {
	Path string `json:"path" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateApplication handles POST /api/v1/applications
func (h *Handlers) CreateApplication(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	app, err := h.applicationService.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    app,
	})
}

// ListApplications handles GET /api/v1/applications
func (h *Handlers) ListApplications(c *gin.Context) {
	var req ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	apps, err := h.applicationService.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    apps,
	})
}

// GetApplication handles GET /api/v1/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.applicationService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    app,
	})
}

// GetApplicationHistory handles GET /api/v1/applications/:id/history
func (h *Handlers) GetApplicationHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	history, err := h.applicationService.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    history,
	})
}

// GetPermittedActions handles GET /api/v1/applications/:id/actions
func (h *Handlers) GetPermittedActions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	status, err := h.orchestrator.CurrentStatus(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	actions, err := h.orchestrator.PermittedActions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"current_status":    status,
			"permitted_actions": actions,
		},
	})
}

// ExecuteAction handles POST /api/v1/applications/:id/actions
func (h *Handlers) ExecuteAction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ExecuteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	result, err := h.applicationService.ExecuteAction(c.Request.Context(), appwf.ActionRequest{
		ApplicationID:    id,
		Action:           domainwf.Action(req.Action),
		ActorOfficerID:   req.ActorOfficerID,
		Comment:          req.Comment,
		ManualOfficerID:  req.ManualOfficerID,
		StrategyOverride: req.StrategyOverride,
		AppointmentAt:    req.AppointmentAt,
		DocumentRef:      req.DocumentRef,
	})
	if err != nil {
		h.respondActionError(c, result, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// GetWorkloadStats handles GET /api/v1/officers/workload
func (h *Handlers) GetWorkloadStats(c *gin.Context) {
	roles := c.QueryArray("role")

	stats, err := h.reportService.WorkloadStats(c.Request.Context(), roles)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// ExportAssignmentReport handles POST /api/v1/reports/assignments/export
func (h *Handlers) ExportAssignmentReport(c *gin.Context) {
	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	if err := h.reportService.ExportAssignmentReport(c.Request.Context(), req.Path); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"path": req.Path},
	})
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid application id",
		})
		return 0, false
	}
	return id, true
}

// respondActionError maps a failed action to a status code while still
// returning the orchestrator's structured result when one exists
func (h *Handlers) respondActionError(c *gin.Context, result *appwf.ActionResult, err error) {
	status := h.statusFor(err)

	if result != nil {
		c.JSON(status, Response{
			Success: false,
			Data:    result,
			Error:   err.Error(),
		})
		return
	}
	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := h.statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
	}
	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func (h *Handlers) statusFor(err error) int {
	var notSatisfied *gate.NotSatisfiedError
	switch {
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appwf.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, appwf.ErrConcurrentModification),
		errors.Is(err, port.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domainwf.ErrIllegalTransition),
		errors.Is(err, domainwf.ErrInvalidStatus):
		return http.StatusConflict
	case errors.As(err, &notSatisfied),
		errors.Is(err, gate.ErrGateNotSatisfied),
		errors.Is(err, assignment.ErrNoEligibleOfficer),
		errors.Is(err, assignment.ErrInvalidAssignmentTarget):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
