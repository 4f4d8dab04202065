package models

import "time"

// RiskExposure is the deduplicated (fund, classification origin) snapshot
// derived from the latest FundPosition batch. Unlike every other table this
// one is rebuilt per batch: rows for a batch timestamp are deleted and
// reinserted whenever the reconciler runs for that batch.
type RiskExposure struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	FundID  int64     `gorm:"column:CgePortfolio;not null;index"`
	Origin  *string   `gorm:"column:origem;type:varchar(120)"`
	BatchTS time.Time `gorm:"column:dt_carga;type:datetime;not null;index"`
}

func (RiskExposure) TableName() string {
	return "TB_ENQ_EXPOSI_RISCO_SNAPSHOT"
}
