package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/worker"
)

// JobTable is the part of the job store the admin endpoints use.
type JobTable interface {
	Snapshot(ctx context.Context) error
	CountByStatus(ctx context.Context) map[domain.JobStatus]int
}

// PoolStats reports worker pool counters.
type PoolStats interface {
	Stats() worker.Stats
}

// AdminHandler handles admin operations.
type AdminHandler struct {
	jobs JobTable
	pool PoolStats
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - jobs: job table that can be snapshotted.
//   - pool: worker pool reporting its counters.
//
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(jobs JobTable, pool PoolStats) *AdminHandler {
	return &AdminHandler{jobs: jobs, pool: pool}
}

// SnapshotResponse represents the snapshot API response.
type SnapshotResponse struct {
	Message    string                   `json:"message"`
	Jobs       map[domain.JobStatus]int `json:"jobs"`
	DurationMs int64                    `json:"duration_ms"`
}

// WorkersResponse represents the worker status.
type WorkersResponse struct {
	Workers worker.Stats             `json:"workers"`
	Jobs    map[domain.JobStatus]int `json:"jobs"`
}

// TriggerSnapshot handles POST /api/admin/snapshot.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerSnapshot(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Received snapshot request: client_ip=%s", c.ClientIP())

	start := time.Now()
	err := h.jobs.Snapshot(ctx)
	duration := time.Since(start)
	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).Error(ctx, "Snapshot failed: error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	counts := h.jobs.CountByStatus(ctx)
	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
	}).Info(ctx, "Snapshot written: statuses=%d", len(counts))

	c.JSON(http.StatusOK, SnapshotResponse{
		Message:    "Snapshot written",
		Jobs:       counts,
		DurationMs: duration.Milliseconds(),
	})
}

// GetWorkers handles GET /api/admin/workers.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AdminHandler) GetWorkers(c *gin.Context) {
	ctx := c.Request.Context()
	stats := h.pool.Stats()
	logger.CtxDebug(ctx, "Worker status requested: client_ip=%s, active=%d", c.ClientIP(), stats.Active)

	c.JSON(http.StatusOK, WorkersResponse{
		Workers: stats,
		Jobs:    h.jobs.CountByStatus(ctx),
	})
}
