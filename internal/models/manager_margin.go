package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManagerMargin is one daily margin row per manager. Append-only snapshot.
type ManagerMargin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Manager        *string          `gorm:"column:Gestor;type:varchar(255)"`
	SentAt         *time.Time       `gorm:"column:DataEnvio;type:datetime"`
	LocalMargin    *decimal.Decimal `gorm:"column:MargemLocal;type:decimal(20,2)"`
	OffshoreMargin *decimal.Decimal `gorm:"column:MargemOffshore;type:decimal(20,2)"`
	LoadedAt       time.Time        `gorm:"column:dt_carga;type:datetime;not null"`
}

func (ManagerMargin) TableName() string {
	return "TB_ENQ_MARGEM_GESTOR_SNAPSHOT"
}
