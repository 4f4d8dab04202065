package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// PLFetcher is the funds platform surface the snapshot job needs.
type PLFetcher interface {
	FetchPL(ctx context.Context) ([]map[string]any, error)
}

// PLSnapshotService appends the daily fund-level PL and risk-metrics
// snapshot from the funds platform.
type PLSnapshotService struct {
	Repo   repository.Repository
	Funds  PLFetcher
	Logger *zap.Logger
}

type PLSnapshotStats struct {
	Inserted int `json:"inserted"`
}

func (s *PLSnapshotService) RunOnce(ctx context.Context) (PLSnapshotStats, error) {
	var stats PLSnapshotStats
	if s == nil || s.Repo == nil || s.Funds == nil {
		return stats, nil
	}

	rows, err := s.Funds.FetchPL(ctx)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		if s.Logger != nil {
			s.Logger.Info("pl snapshot returned no data")
		}
		return stats, nil
	}

	now := time.Now().Truncate(time.Second)
	items := make([]models.PLSnapshot, 0, len(rows))
	for _, row := range rows {
		items = append(items, buildPLSnapshot(row, now))
	}
	if err := s.Repo.InsertPLSnapshots(ctx, items); err != nil {
		return stats, err
	}
	stats.Inserted = len(items)
	if s.Logger != nil {
		s.Logger.Info("pl snapshot loaded", zap.Int("rows", stats.Inserted))
	}
	return stats, nil
}

func buildPLSnapshot(row map[string]any, loadedAt time.Time) models.PLSnapshot {
	return models.PLSnapshot{
		Success: asBool(row["sucesso"]),
		Errors:  asString(row["erros"]),

		FundID:         asInt64(row["cgePortfolio"]),
		ProcessedAt:    asDate(row["dataProcessamento"]),
		PositionDate:   asDate(row["dataPosicao"]),
		FundName:       asString(row["nomeFundo"]),
		CNPJ:           asString(row["cnpj"]),
		ManagerID:      asInt64(row["cgeGestor"]),
		ManagerName:    asString(row["nomeGestor"]),
		TargetAudience: asString(row["publicoAlvo"]),
		PortfolioType:  asString(row["tipoPortfolio"]),
		AnbidClass:     asString(row["classAnbidScp"]),
		ClosedFund:     asString(row["fundoFechado"]),
		InvestRestrict: asString(row["restricaoInvestimento"]),
		CVMClass:       asString(row["classeCvm"]),
		CVMClassDesc:   asString(row["descClasseCvm"]),

		AUM:                asDecimal(row["pl"]),
		MarginAUM:          asDecimal(row["margemPl"]),
		CheckingAccount:    asDecimal(row["contaCorrente"]),
		CheckingBalance:    asDecimal(row["saldoCc"]),
		Derivatives:        asDecimal(row["derivativos"]),
		DerivativesRisk:    asDecimal(row["derivativosRisco"]),
		DerivativesAUM:     asDecimal(row["derivativosPl"]),
		DerivativesRiskAUM: asDecimal(row["derivativosRiscoPl"]),
		LiquidityAUM:       asDecimal(row["liquidezPl"]),
		ReturnDay:          asDecimal(row["rentabilidadeDia"]),
		ReturnMonth:        asDecimal(row["rentabilidadeMes"]),
		ReturnYear:         asDecimal(row["rentabilidadeAno"]),
		Criticality:        asString(row["criticidade"]),

		VaR95:        asDecimal(row["var95"]),
		VaR99:        asDecimal(row["var99"]),
		Bull:         asDecimal(row["bull"]),
		Bear:         asDecimal(row["bear"]),
		BullParis:    asDecimal(row["bullParis"]),
		BearParis:    asDecimal(row["bearParis"]),
		VaR95Paris3M: asDecimal(row["var95Paris3M"]),
		VaR95Paris1Y: asDecimal(row["var95Paris1Y"]),
		VaR95Paris2Y: asDecimal(row["var95Paris2Y"]),
		VaR99Paris3M: asDecimal(row["var99Paris3M"]),
		VaR99Paris1Y: asDecimal(row["var99Paris1Y"]),
		VaR99Paris2Y: asDecimal(row["var99Paris2Y"]),

		FIIFIQ:   asString(row["fiiFiq"]),
		LoadedAt: loadedAt,
	}
}
