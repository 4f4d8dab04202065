package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riskcapital/internal/client/metabase"
	"riskcapital/internal/config"
	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// SwapsService appends swap positions to the positions table, remapped onto
// the canonical position layout, and then rebuilds the exposure snapshot.
// Swap rows reuse the latest positions batch timestamp so both loads land in
// the same snapshot batch.
type SwapsService struct {
	Repo     repository.Repository
	Cards    CardQuerier
	Config   config.JobsConfig
	Logger   *zap.Logger
	Exposure *ExposureSnapshotService
}

type SwapsStats struct {
	Batch     string         `json:"batch,omitempty"`
	Reference string         `json:"reference,omitempty"`
	Inserted  int            `json:"inserted"`
	Snapshot  *ExposureStats `json:"snapshot,omitempty"`
}

func (s *SwapsService) RunOnce(ctx context.Context) (SwapsStats, error) {
	var stats SwapsStats
	if s == nil || s.Repo == nil || s.Cards == nil {
		return stats, nil
	}

	batchPtr, err := s.Repo.MaxPositionBatch(ctx)
	if err != nil {
		return stats, err
	}
	batch := time.Now().Truncate(time.Second)
	if batchPtr != nil {
		batch = *batchPtr
	}
	stats.Batch = batch.Format("2006-01-02 15:04:05")

	refDate, err := s.Repo.LatestSwapReferenceDate(ctx)
	if err != nil {
		return stats, err
	}
	if refDate == nil {
		s.logInfo("no swap reference date available")
		return stats, nil
	}
	ref := *refDate
	stats.Reference = ref.Format(dateLayout)

	rows, err := s.Cards.QueryCard(ctx, s.Config.SwapCard,
		metabase.DateFilter("DtCarteira", ref.Format(dateLayout)))
	if err != nil {
		s.logWarn("swap card failed", err, zap.String("reference", stats.Reference))
		return stats, nil
	}
	if len(rows) == 0 {
		s.logInfo("no swaps returned", zap.String("reference", stats.Reference))
		return stats, nil
	}

	positions := make([]models.FundPosition, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, buildSwapPosition(row, ref, batch))
	}
	if err := s.Repo.InsertPositions(ctx, positions); err != nil {
		return stats, err
	}
	stats.Inserted = len(positions)
	s.logInfo("swaps loaded",
		zap.Int("rows", stats.Inserted),
		zap.String("reference", stats.Reference),
		zap.String("batch", stats.Batch))

	if s.Exposure != nil {
		snap, err := s.Exposure.RunOnce(ctx)
		if err != nil {
			return stats, err
		}
		stats.Snapshot = &snap
	}
	return stats, nil
}

// buildSwapPosition remaps one swap card row onto the position layout. The
// swap payload names differ from the positions card; columns the swap card
// has no equivalent for stay null.
func buildSwapPosition(row map[string]any, ref time.Time, batch time.Time) models.FundPosition {
	asOf := ref
	return models.FundPosition{
		Nickname:             asString(row["DsIndiceAtivo"]),
		PortfolioDate:        &asOf,
		Notional:             asDecimal(row["ValorNocionalSwap"]),
		FundID:               asInt64(row["CgePortfolio"]),
		Classification:       asString(row["origem"]),
		ISIN:                 asString(row["DsIndicePassivo"]),
		ReferenceDate:        &asOf,
		BatchInsertedAt:      batch,
		SwapAssetBalance:     asDecimal(row["ValorSaldoAtivoSwap"]),
		SwapLiabilityBalance: asDecimal(row["ValorSaldoPassivoSwap"]),
	}
}

func (s *SwapsService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.Logger.Warn(msg, fields...)
}

func (s *SwapsService) logInfo(msg string, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Info(msg, fields...)
}
