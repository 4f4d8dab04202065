package repository

import (
	"context"
	"time"

	"riskcapital/internal/models"
)

// FundReferenceDate is the latest known portfolio valuation date for one
// fund, derived from the PL history fact table. Read-only input to the
// exposure pipeline.
type FundReferenceDate struct {
	FundID   int64     `gorm:"column:fund_id"`
	AsOfDate time.Time `gorm:"column:as_of_date"`
}

type ListJobRunsParams struct {
	Limit  int
	Offset int
	Name   *string
	Status *string
}

// Repository is the warehouse access surface used by the ETL jobs.
type Repository interface {
	// PL history (read side feeds exposure discovery and the swap job).
	MaxPLHistoryDate(ctx context.Context) (*time.Time, error)
	LatestDatesByFund(ctx context.Context, fundIDs []int64) ([]FundReferenceDate, error)
	InsertPLHistory(ctx context.Context, items []models.PLHistory) error

	// Positions.
	InsertPositions(ctx context.Context, items []models.FundPosition) error
	MaxPositionBatch(ctx context.Context) (*time.Time, error)
	DistinctExposuresForBatch(ctx context.Context, batch time.Time) ([]models.RiskExposure, error)
	LatestSwapReferenceDate(ctx context.Context) (*time.Time, error)

	// Risk exposure snapshot.
	DeleteExposureBatch(ctx context.Context, batch time.Time) (int64, error)
	InsertExposures(ctx context.Context, items []models.RiskExposure) error

	// Simple snapshots.
	InsertMarginSnapshots(ctx context.Context, items []models.ManagerMargin) error
	InsertPLSnapshots(ctx context.Context, items []models.PLSnapshot) error

	// Job run log.
	InsertJobRun(ctx context.Context, item *models.JobRun) error
	UpdateJobRun(ctx context.Context, item *models.JobRun) error
	ListJobRuns(ctx context.Context, params ListJobRunsParams) ([]models.JobRun, error)
}

// Replicator is the low-level surface the warehouse replication job needs on
// both ends: schema capture on the source, drop/recreate and bulk insert on
// the target.
type Replicator interface {
	ListTables(ctx context.Context) ([]string, error)
	ShowCreateTable(ctx context.Context, table string) (string, error)
	ReadAllRows(ctx context.Context, table string) ([]map[string]any, error)
	RecreateTable(ctx context.Context, table string, ddl string) error
	InsertRows(ctx context.Context, table string, rows []map[string]any) error
}
