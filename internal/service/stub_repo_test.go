package service

import (
	"context"
	"time"

	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// stubRepo records writes and serves canned reads for job tests.
type stubRepo struct {
	maxPLDate *time.Time
	fundDates []repository.FundReferenceDate
	maxBatch  *time.Time
	distinct  []models.RiskExposure
	swapRef   *time.Time

	latestDatesArgs [][]int64

	insertedPositions  [][]models.FundPosition
	insertPositionsErr error
	insertedExposures  [][]models.RiskExposure
	deletedBatches     []time.Time
	deleteReturn       int64
	insertedPLHistory  [][]models.PLHistory
	insertedMargins    [][]models.ManagerMargin
	insertedSnapshots  [][]models.PLSnapshot
	jobRuns            []*models.JobRun
}

func (s *stubRepo) MaxPLHistoryDate(ctx context.Context) (*time.Time, error) {
	return s.maxPLDate, nil
}

func (s *stubRepo) LatestDatesByFund(ctx context.Context, fundIDs []int64) ([]repository.FundReferenceDate, error) {
	s.latestDatesArgs = append(s.latestDatesArgs, fundIDs)
	return s.fundDates, nil
}

func (s *stubRepo) InsertPLHistory(ctx context.Context, items []models.PLHistory) error {
	s.insertedPLHistory = append(s.insertedPLHistory, items)
	return nil
}

func (s *stubRepo) InsertPositions(ctx context.Context, items []models.FundPosition) error {
	if s.insertPositionsErr != nil {
		return s.insertPositionsErr
	}
	s.insertedPositions = append(s.insertedPositions, items)
	return nil
}

func (s *stubRepo) MaxPositionBatch(ctx context.Context) (*time.Time, error) {
	return s.maxBatch, nil
}

func (s *stubRepo) DistinctExposuresForBatch(ctx context.Context, batch time.Time) ([]models.RiskExposure, error) {
	return s.distinct, nil
}

func (s *stubRepo) LatestSwapReferenceDate(ctx context.Context) (*time.Time, error) {
	return s.swapRef, nil
}

func (s *stubRepo) DeleteExposureBatch(ctx context.Context, batch time.Time) (int64, error) {
	s.deletedBatches = append(s.deletedBatches, batch)
	return s.deleteReturn, nil
}

func (s *stubRepo) InsertExposures(ctx context.Context, items []models.RiskExposure) error {
	s.insertedExposures = append(s.insertedExposures, items)
	return nil
}

func (s *stubRepo) InsertMarginSnapshots(ctx context.Context, items []models.ManagerMargin) error {
	s.insertedMargins = append(s.insertedMargins, items)
	return nil
}

func (s *stubRepo) InsertPLSnapshots(ctx context.Context, items []models.PLSnapshot) error {
	s.insertedSnapshots = append(s.insertedSnapshots, items)
	return nil
}

func (s *stubRepo) InsertJobRun(ctx context.Context, item *models.JobRun) error {
	item.ID = uint64(len(s.jobRuns) + 1)
	s.jobRuns = append(s.jobRuns, item)
	return nil
}

func (s *stubRepo) UpdateJobRun(ctx context.Context, item *models.JobRun) error {
	return nil
}

func (s *stubRepo) ListJobRuns(ctx context.Context, params repository.ListJobRunsParams) ([]models.JobRun, error) {
	return nil, nil
}
