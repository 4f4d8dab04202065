package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	JobStatusRunning = "running"
	JobStatusOK      = "ok"
	JobStatusAborted = "aborted"
	JobStatusError   = "error"
)

// JobRun records one execution of an ETL job, cron-scheduled or manual.
type JobRun struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Name       string         `gorm:"type:varchar(60);not null;index"`
	Status     string         `gorm:"type:varchar(20);not null;index"`
	StartedAt  time.Time      `gorm:"type:datetime;not null;index"`
	FinishedAt *time.Time     `gorm:"type:datetime"`
	Error      *string        `gorm:"type:text"`
	Stats      datatypes.JSON `gorm:"type:json"`
}

func (JobRun) TableName() string {
	return "job_runs"
}
