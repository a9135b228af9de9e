package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/CETS-Org/cets-worker/internal/service"
	"github.com/CETS-Org/cets-worker/internal/worker"
	appErrors "github.com/CETS-Org/cets-worker/pkg/errors"
	"github.com/CETS-Org/cets-worker/pkg/response"
)

// OpsHandler exposes the operational surface of the worker: health probes,
// job status, manual triggers, metrics, and run summaries.
type OpsHandler struct {
	manager   *worker.Manager
	metrics   *worker.Metrics
	summaries *service.SummaryService
	db        *sqlx.DB
	validate  *validator.Validate
}

// NewOpsHandler constructs the handler. metrics and summaries may be nil.
func NewOpsHandler(manager *worker.Manager, metrics *worker.Metrics, summaries *service.SummaryService, db *sqlx.DB, validate *validator.Validate) *OpsHandler {
	return &OpsHandler{
		manager:   manager,
		metrics:   metrics,
		summaries: summaries,
		db:        db,
		validate:  validate,
	}
}

// Health responds with a generic OK payload for liveness usage.
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready verifies the database connection.
func (h *OpsHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			response.Error(c, appErrors.Wrap(err, "NOT_READY", http.StatusServiceUnavailable, "database unreachable"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Prometheus serves the worker metric registry.
func (h *OpsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// ListJobs returns every runner's schedule and counters.
func (h *OpsHandler) ListJobs(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.manager.Statuses())
}

// TriggerJob requests an immediate out-of-schedule run of one job.
func (h *OpsHandler) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	runner, ok := h.manager.Get(name)
	if !ok {
		response.Error(c, appErrors.ErrJobNotFound)
		return
	}
	if err := runner.TriggerNow(); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job": name, "triggered": true})
}

type summaryQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ListSummaries returns the run summaries recorded for a day (default today).
func (h *OpsHandler) ListSummaries(c *gin.Context) {
	if h.summaries == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "summary collection disabled"))
		return
	}

	var q summaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	if err := h.validate.Struct(q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	day := time.Now().UTC()
	if q.Date != "" {
		parsed, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	response.JSON(c, http.StatusOK, h.summaries.Snapshot(day), map[string]interface{}{
		"date": service.DateOnly(day).Format("2006-01-02"),
	})
}
