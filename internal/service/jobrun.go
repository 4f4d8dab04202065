package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// Job names as they appear in the run log.
const (
	JobPositions   = "positions"
	JobSwaps       = "swaps"
	JobExposure    = "exposure_snapshot"
	JobMargin      = "manager_margin"
	JobPLSnapshot  = "pl_snapshot"
	JobPLHistory   = "pl_history"
	JobReplication = "replication"
)

// JobRecorder wraps job executions with a persistent run log entry. A
// discovery abort is recorded as "aborted" rather than "error" since it is an
// expected integrity guard, not a failure.
type JobRecorder struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Run executes fn under the given job name and records start, outcome and
// stats. The job's error is passed through to the caller.
func (r *JobRecorder) Run(ctx context.Context, name string, fn func(context.Context) (any, error)) error {
	if r == nil || fn == nil {
		return nil
	}
	run := &models.JobRun{
		Name:      name,
		Status:    models.JobStatusRunning,
		StartedAt: time.Now().Truncate(time.Second),
	}
	if r.Repo != nil {
		if err := r.Repo.InsertJobRun(ctx, run); err != nil {
			r.logWarn("job run insert failed", err, zap.String("job", name))
		}
	}

	stats, err := fn(ctx)

	finished := time.Now().Truncate(time.Second)
	run.FinishedAt = &finished
	switch {
	case err == nil:
		run.Status = models.JobStatusOK
	case errors.Is(err, ErrDiscoveryIncomplete):
		run.Status = models.JobStatusAborted
		msg := err.Error()
		run.Error = &msg
	default:
		run.Status = models.JobStatusError
		msg := err.Error()
		run.Error = &msg
	}
	if stats != nil {
		if raw, e := json.Marshal(stats); e == nil {
			run.Stats = datatypes.JSON(raw)
		}
	}
	if r.Repo != nil {
		if e := r.Repo.UpdateJobRun(ctx, run); e != nil {
			r.logWarn("job run update failed", e, zap.String("job", name))
		}
	}
	if err != nil {
		r.logWarn("job finished with error", err, zap.String("job", name), zap.String("status", run.Status))
	} else if r.Logger != nil {
		r.Logger.Info("job finished", zap.String("job", name))
	}
	return err
}

func (r *JobRecorder) logWarn(msg string, err error, fields ...zap.Field) {
	if r == nil || r.Logger == nil {
		return
	}
	r.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
