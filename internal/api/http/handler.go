package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anhhuy04/ai-lms-prd/internal/api/http/dto"
	"github.com/anhhuy04/ai-lms-prd/internal/auth"
	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/metrics"
	"github.com/anhhuy04/ai-lms-prd/internal/migration"
	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler handles HTTP API requests
type Handler struct {
	executor  *executor.Executor
	store     HealthChecker
	validator *auth.TokenValidator
	metrics   *metrics.Metrics
}

// NewHandler creates a new HTTP handler
func NewHandler(exec *executor.Executor, store HealthChecker, validator *auth.TokenValidator, m *metrics.Metrics) *Handler {
	return &Handler{
		executor:  exec,
		store:     store,
		validator: validator,
		metrics:   m,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		// Handle OPTIONS for all routes
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		api.POST("/seed", h.authenticate, h.seed)
		api.POST("/migrations/validate", h.authenticate, h.validateMigration)
		api.GET("/health", h.Health)
	}
}

// authenticate middleware validates API token
func (h *Handler) authenticate(c *gin.Context) {
	if err := h.validator.Authorize(c.GetHeader("Authorization")); err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})
		c.Abort()
		return
	}
	c.Next()
}

// setExecutionContext tags the request context for logs and queued jobs
func (h *Handler) setExecutionContext(c *gin.Context) context.Context {
	executedBy := c.GetHeader("X-Executed-By")
	if executedBy == "" {
		executedBy = "api_user"
	}
	return executor.SetExecutionContext(c.Request.Context(), executedBy, "api")
}

// seed handles seeding requests. A finished batch answers 200 when every
// record succeeded and 206 otherwise; a queued batch answers 202. Requests
// that can never run answer 400.
func (h *Handler) seed(c *gin.Context) {
	var req dto.SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if req.Dataset == "" && req.Records == nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "either records or dataset is required"})
		return
	}
	if req.Dataset != "" && len(req.Records) > 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "records and dataset are mutually exclusive"})
		return
	}
	if _, err := seeder.ParsePolicy(req.Policy); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := h.setExecutionContext(c)
	result, err := h.executor.Execute(ctx, &executor.Request{
		Table:      req.Table,
		Dataset:    req.Dataset,
		Records:    req.Records,
		Policy:     req.Policy,
		KeyColumns: req.KeyColumns,
	}, req.Async)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, executor.ErrInvalidRequest) {
			statusCode = http.StatusBadRequest
		}
		c.JSON(statusCode, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if result.Queued {
		c.JSON(http.StatusAccepted, dto.QueuedResponse{Queued: true, JobID: result.JobID})
		return
	}

	statusCode := http.StatusOK
	if result.Report.HasFailures() {
		statusCode = http.StatusPartialContent
	}
	c.JSON(statusCode, result.Report)
}

// validateMigration runs the advisory check on submitted SQL. Nothing is
// executed.
func (h *Handler) validateMigration(c *gin.Context) {
	var req dto.ValidateMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := migration.CheckSQL(req.SQL)
	if err != nil {
		if errors.Is(err, migration.ErrFileEmpty) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "migration SQL is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	messages := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		messages[i] = w.String()
		h.metrics.IncWarning(w.Keyword)
	}

	c.JSON(http.StatusOK, dto.ValidateMigrationResponse{
		Valid:      true,
		Characters: result.Characters,
		Warnings:   result.Warnings,
		Messages:   messages,
		Summary:    result.Summary,
	})
}

// Health reports store reachability
func (h *Handler) Health(c *gin.Context) {
	healthStatus := gin.H{
		"status": "healthy",
		"checks": gin.H{},
	}

	if err := h.store.HealthCheck(c.Request.Context()); err != nil {
		healthStatus["status"] = "unhealthy"
		healthStatus["checks"].(gin.H)["store"] = err.Error()
	} else {
		healthStatus["checks"].(gin.H)["store"] = "ok"
	}

	if h.executor.HasQueue() {
		healthStatus["checks"].(gin.H)["queue"] = "configured"
	}

	statusCode := http.StatusOK
	if healthStatus["status"] == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthStatus)
}
