package service

import (
	"context"

	"go.uber.org/zap"

	"riskcapital/internal/repository"
)

// ExposureSnapshotService rebuilds the risk exposure snapshot from the most
// recent positions batch. The rebuild is delete-then-insert scoped to one
// batch timestamp, so re-running it for the same batch converges to the same
// rows. Delete and insert are separate statements; a reader between the two
// sees the batch briefly absent.
type ExposureSnapshotService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type ExposureStats struct {
	Batch    string `json:"batch,omitempty"`
	Deleted  int64  `json:"deleted"`
	Inserted int    `json:"inserted"`
}

func (s *ExposureSnapshotService) RunOnce(ctx context.Context) (ExposureStats, error) {
	var stats ExposureStats
	if s == nil || s.Repo == nil {
		return stats, nil
	}

	batch, err := s.Repo.MaxPositionBatch(ctx)
	if err != nil {
		return stats, err
	}
	if batch == nil {
		return stats, nil
	}
	stats.Batch = batch.Format("2006-01-02 15:04:05")

	rows, err := s.Repo.DistinctExposuresForBatch(ctx, *batch)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		return stats, nil
	}

	deleted, err := s.Repo.DeleteExposureBatch(ctx, *batch)
	if err != nil {
		return stats, err
	}
	stats.Deleted = deleted

	if err := s.Repo.InsertExposures(ctx, rows); err != nil {
		return stats, err
	}
	stats.Inserted = len(rows)
	if s.Logger != nil {
		s.Logger.Info("exposure snapshot rebuilt",
			zap.String("batch", stats.Batch),
			zap.Int64("deleted", deleted),
			zap.Int("inserted", stats.Inserted))
	}
	return stats, nil
}
