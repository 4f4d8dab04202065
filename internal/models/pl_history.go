package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PLHistory is the historical fund AUM fact table. The exposure pipeline only
// reads it (global and per-fund reference dates); rows are appended by the PL
// history job.
type PLHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	FundID     int64            `gorm:"column:CgePortfolio;not null;index"`
	Date       time.Time        `gorm:"column:data;type:date;not null;index"`
	OpeningAUM *decimal.Decimal `gorm:"column:patrimonio_abertura;type:decimal(20,2)"`
	ClosingAUM *decimal.Decimal `gorm:"column:patrimonio_fechamento;type:decimal(20,2)"`
	LoadedAt   time.Time        `gorm:"column:dt_carga;type:datetime;not null"`
}

func (PLHistory) TableName() string {
	return "TB_ENQ_PL_HISTORICO"
}
