package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"riskcapital/internal/repository"
	"riskcapital/internal/service"
)

// JobsHandler exposes manual job triggers and the run log. Triggers run the
// job synchronously and return its stats; the same execution path the cron
// schedule uses, run log entry included.
type JobsHandler struct {
	Recorder    *service.JobRecorder
	Positions   *service.PositionsService
	Swaps       *service.SwapsService
	Exposure    *service.ExposureSnapshotService
	Margin      *service.MarginService
	PLSnapshot  *service.PLSnapshotService
	PLHistory   *service.PLHistoryService
	Replication *service.ReplicationService
	Repo        repository.Repository
	Logger      *zap.Logger
}

func (h *JobsHandler) Register(r *gin.Engine) {
	jobs := r.Group("/api/jobs")
	jobs.POST("/positions", h.runPositions)
	jobs.POST("/swaps", h.runSwaps)
	jobs.POST("/reconcile", h.runReconcile)
	jobs.POST("/margin", h.runMargin)
	jobs.POST("/pl-snapshot", h.runPLSnapshot)
	jobs.POST("/pl-history", h.runPLHistory)
	jobs.POST("/replication", h.runReplication)
	jobs.GET("/runs", h.listRuns)
}

func (h *JobsHandler) runPositions(c *gin.Context) {
	if h.Positions == nil {
		Error(c, http.StatusServiceUnavailable, "positions job not configured", nil)
		return
	}
	var stats service.PositionsStats
	err := h.Recorder.Run(c.Request.Context(), service.JobPositions, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.Positions.RunOnce(ctx)
		return stats, err
	})
	if errors.Is(err, service.ErrDiscoveryIncomplete) {
		Error(c, http.StatusConflict, err.Error(), map[string]any{"stats": stats})
		return
	}
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runSwaps(c *gin.Context) {
	if h.Swaps == nil {
		Error(c, http.StatusServiceUnavailable, "swaps job not configured", nil)
		return
	}
	var stats service.SwapsStats
	err := h.Recorder.Run(c.Request.Context(), service.JobSwaps, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.Swaps.RunOnce(ctx)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runReconcile(c *gin.Context) {
	if h.Exposure == nil {
		Error(c, http.StatusServiceUnavailable, "exposure snapshot job not configured", nil)
		return
	}
	var stats service.ExposureStats
	err := h.Recorder.Run(c.Request.Context(), service.JobExposure, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.Exposure.RunOnce(ctx)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runMargin(c *gin.Context) {
	if h.Margin == nil {
		Error(c, http.StatusServiceUnavailable, "margin job not configured", nil)
		return
	}
	var stats service.MarginStats
	err := h.Recorder.Run(c.Request.Context(), service.JobMargin, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.Margin.RunOnce(ctx)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runPLSnapshot(c *gin.Context) {
	if h.PLSnapshot == nil {
		Error(c, http.StatusServiceUnavailable, "pl snapshot job not configured", nil)
		return
	}
	var stats service.PLSnapshotStats
	err := h.Recorder.Run(c.Request.Context(), service.JobPLSnapshot, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.PLSnapshot.RunOnce(ctx)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runPLHistory(c *gin.Context) {
	if h.PLHistory == nil {
		Error(c, http.StatusServiceUnavailable, "pl history job not configured", nil)
		return
	}
	asOf := service.DefaultReferenceDate()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD", nil)
			return
		}
		asOf = parsed
	}
	var stats service.PLHistoryStats
	err := h.Recorder.Run(c.Request.Context(), service.JobPLHistory, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.PLHistory.RunOnce(ctx, asOf)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) runReplication(c *gin.Context) {
	if h.Replication == nil {
		Error(c, http.StatusServiceUnavailable, "replication target not configured", nil)
		return
	}
	var stats service.ReplicationStats
	err := h.Recorder.Run(c.Request.Context(), service.JobReplication, func(ctx context.Context) (any, error) {
		var err error
		stats, err = h.Replication.RunOnce(ctx)
		return stats, err
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *JobsHandler) listRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusServiceUnavailable, "run log not available", nil)
		return
	}
	params := repository.ListJobRunsParams{
		Limit:  parseIntDefault(c.Query("limit"), 100),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		params.Name = &name
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		params.Status = &status
	}
	runs, err := h.Repo.ListJobRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, runs, map[string]any{"count": len(runs)})
}

func parseIntDefault(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
