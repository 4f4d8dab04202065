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

// PLHistoryService appends fund AUM history for one valuation date from the
// public PL history card. Every other job keys off this table, so it runs
// ahead of the positions load in the daily schedule.
type PLHistoryService struct {
	Repo   repository.Repository
	Cards  CardQuerier
	Config config.JobsConfig
	Logger *zap.Logger
}

type PLHistoryStats struct {
	Date     string `json:"date"`
	Inserted int    `json:"inserted"`
}

// DefaultReferenceDate is the valuation date loaded when none is given: the
// previous calendar day.
func DefaultReferenceDate() time.Time {
	return time.Now().AddDate(0, 0, -1)
}

func (s *PLHistoryService) RunOnce(ctx context.Context, asOf time.Time) (PLHistoryStats, error) {
	stats := PLHistoryStats{Date: asOf.Format(dateLayout)}
	if s == nil || s.Repo == nil || s.Cards == nil {
		return stats, nil
	}

	rows, err := s.Cards.QueryPublicCard(ctx, s.Config.PLHistoryCard,
		metabase.DateFilter("DataCarteira", stats.Date))
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		if s.Logger != nil {
			s.Logger.Info("pl history card returned no data", zap.String("date", stats.Date))
		}
		return stats, nil
	}

	now := time.Now().Truncate(time.Second)
	items := make([]models.PLHistory, 0, len(rows))
	for _, row := range rows {
		fundID := asInt64(row["CgePortfolio"])
		if fundID == nil {
			continue
		}
		date := asDate(row["Data"])
		if date == nil {
			continue
		}
		items = append(items, models.PLHistory{
			FundID:     *fundID,
			Date:       *date,
			OpeningAUM: asDecimal(row["PatrimonioAbertura"]),
			ClosingAUM: asDecimal(row["PatrimonioFechamento"]),
			LoadedAt:   now,
		})
	}
	if err := s.Repo.InsertPLHistory(ctx, items); err != nil {
		return stats, err
	}
	stats.Inserted = len(items)
	if s.Logger != nil {
		s.Logger.Info("pl history loaded",
			zap.String("date", stats.Date),
			zap.Int("rows", stats.Inserted))
	}
	return stats, nil
}
