package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PLSnapshot is one fund-level PL and risk-metrics row from the funds
// platform, flattened from its nested payload. Append-only daily snapshot.
type PLSnapshot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Success *bool   `gorm:"column:sucesso"`
	Errors  *string `gorm:"column:erros;type:text"`

	FundID         *int64     `gorm:"column:cgePortfolio;index"`
	ProcessedAt    *time.Time `gorm:"column:dataProcessamento;type:datetime"`
	PositionDate   *time.Time `gorm:"column:dataPosicao;type:datetime"`
	FundName       *string    `gorm:"column:nomeFundo;type:varchar(255)"`
	CNPJ           *string    `gorm:"column:cnpj;type:varchar(20)"`
	ManagerID      *int64     `gorm:"column:cgeGestor"`
	ManagerName    *string    `gorm:"column:nomeGestor;type:varchar(255)"`
	TargetAudience *string    `gorm:"column:publicoAlvo;type:varchar(120)"`
	PortfolioType  *string    `gorm:"column:tipoPortfolio;type:varchar(120)"`
	AnbidClass     *string    `gorm:"column:classAnbidScp;type:varchar(120)"`
	ClosedFund     *string    `gorm:"column:fundoFechado;type:varchar(10)"`
	InvestRestrict *string    `gorm:"column:restricaoInvestimento;type:varchar(120)"`
	CVMClass       *string    `gorm:"column:classeCvm;type:varchar(60)"`
	CVMClassDesc   *string    `gorm:"column:descClasseCvm;type:varchar(255)"`

	AUM                *decimal.Decimal `gorm:"column:pl;type:decimal(20,2)"`
	MarginAUM          *decimal.Decimal `gorm:"column:margemPl;type:decimal(20,6)"`
	CheckingAccount    *decimal.Decimal `gorm:"column:contaCorrente;type:decimal(20,2)"`
	CheckingBalance    *decimal.Decimal `gorm:"column:saldoCc;type:decimal(20,2)"`
	Derivatives        *decimal.Decimal `gorm:"column:derivativos;type:decimal(20,2)"`
	DerivativesRisk    *decimal.Decimal `gorm:"column:derivativosRisco;type:decimal(20,2)"`
	DerivativesAUM     *decimal.Decimal `gorm:"column:derivativosPl;type:decimal(20,6)"`
	DerivativesRiskAUM *decimal.Decimal `gorm:"column:derivativosRiscoPl;type:decimal(20,6)"`
	LiquidityAUM       *decimal.Decimal `gorm:"column:liquidezPl;type:decimal(20,6)"`
	ReturnDay          *decimal.Decimal `gorm:"column:rentabilidadeDia;type:decimal(20,8)"`
	ReturnMonth        *decimal.Decimal `gorm:"column:rentabilidadeMes;type:decimal(20,8)"`
	ReturnYear         *decimal.Decimal `gorm:"column:rentabilidadeAno;type:decimal(20,8)"`
	Criticality        *string          `gorm:"column:criticidade;type:varchar(60)"`

	VaR95        *decimal.Decimal `gorm:"column:var95;type:decimal(20,6)"`
	VaR99        *decimal.Decimal `gorm:"column:var99;type:decimal(20,6)"`
	Bull         *decimal.Decimal `gorm:"column:bull;type:decimal(20,6)"`
	Bear         *decimal.Decimal `gorm:"column:bear;type:decimal(20,6)"`
	BullParis    *decimal.Decimal `gorm:"column:bullParis;type:decimal(20,6)"`
	BearParis    *decimal.Decimal `gorm:"column:bearParis;type:decimal(20,6)"`
	VaR95Paris3M *decimal.Decimal `gorm:"column:var95Paris3M;type:decimal(20,6)"`
	VaR95Paris1Y *decimal.Decimal `gorm:"column:var95Paris1Y;type:decimal(20,6)"`
	VaR95Paris2Y *decimal.Decimal `gorm:"column:var95Paris2Y;type:decimal(20,6)"`
	VaR99Paris3M *decimal.Decimal `gorm:"column:var99Paris3M;type:decimal(20,6)"`
	VaR99Paris1Y *decimal.Decimal `gorm:"column:var99Paris1Y;type:decimal(20,6)"`
	VaR99Paris2Y *decimal.Decimal `gorm:"column:var99Paris2Y;type:decimal(20,6)"`

	FIIFIQ   *string   `gorm:"column:fiiFiq;type:varchar(10)"`
	LoadedAt time.Time `gorm:"column:dt_carga;type:datetime;not null"`
}

func (PLSnapshot) TableName() string {
	return "TB_ENQ_PL_SNAPSHOT"
}
