package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundPosition is one exposed-fund position row. Rows are append-only and
// batch-tagged: every row written by one logical load carries the same
// BatchInsertedAt value, which is the grouping key for the risk exposure
// snapshot rebuild.
//
// Column names mirror the upstream dashboard payload so the warehouse layout
// stays byte-compatible with the historical loads.
type FundPosition struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Nickname       *string          `gorm:"column:Nickname;type:varchar(255)"`
	PortfolioDate  *time.Time       `gorm:"column:DataCarteira;type:datetime"`
	Notional       *decimal.Decimal `gorm:"column:notional;type:decimal(20,2)"`
	FundID         *int64           `gorm:"column:CgePortfolio;index"`
	MarkPrice      *decimal.Decimal `gorm:"column:ValorCotacao;type:decimal(20,8)"`
	Classification *string          `gorm:"column:NmClassificacao;type:varchar(120)"`
	Quantity       *decimal.Decimal `gorm:"column:qtyposicao;type:decimal(20,8)"`

	ClassificationID *decimal.Decimal `gorm:"column:IdClassificacao;type:decimal(20,4)"`
	FinancialValue   *decimal.Decimal `gorm:"column:valorfinanceiro;type:decimal(20,2)"`
	AssetID          *int64           `gorm:"column:CodAtivo"`
	ISIN             *string          `gorm:"column:NuIsin;type:varchar(30)"`
	AssetTypeID      *int64           `gorm:"column:CodTipoAtivo"`

	// ReferenceDate is the per-fund valuation date the upstream query was
	// scoped to; PortfolioDate is the date reported inside the payload.
	ReferenceDate   *time.Time `gorm:"column:dt_carteira;type:datetime"`
	BatchInsertedAt time.Time  `gorm:"column:dt_insercao;type:datetime;not null;index"`

	SwapAssetBalance     *decimal.Decimal `gorm:"column:ValorSaldoAtivoSwap;type:decimal(20,2)"`
	SwapLiabilityBalance *decimal.Decimal `gorm:"column:ValorSaldoPassivoSwap;type:decimal(20,2)"`
}

func (FundPosition) TableName() string {
	return "TB_ENQ_POSICOES_FUNDOS_EXPOSTOS"
}
