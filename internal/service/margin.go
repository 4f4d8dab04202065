package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riskcapital/internal/config"
	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// MarginService appends the daily per-manager margin snapshot from the
// public margin card.
type MarginService struct {
	Repo   repository.Repository
	Cards  CardQuerier
	Config config.JobsConfig
	Logger *zap.Logger
}

type MarginStats struct {
	Inserted int `json:"inserted"`
}

func (s *MarginService) RunOnce(ctx context.Context) (MarginStats, error) {
	var stats MarginStats
	if s == nil || s.Repo == nil || s.Cards == nil {
		return stats, nil
	}

	rows, err := s.Cards.QueryPublicCard(ctx, s.Config.MarginCard)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		if s.Logger != nil {
			s.Logger.Info("margin card returned no data")
		}
		return stats, nil
	}

	now := time.Now().Truncate(time.Second)
	items := make([]models.ManagerMargin, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.ManagerMargin{
			Manager:        asString(row["Gestor"]),
			SentAt:         asDate(row["DataEnvio"]),
			LocalMargin:    asDecimal(row["MargemLocal"]),
			OffshoreMargin: asDecimal(row["MargemOffshore"]),
			LoadedAt:       now,
		})
	}
	if err := s.Repo.InsertMarginSnapshots(ctx, items); err != nil {
		return stats, err
	}
	stats.Inserted = len(items)
	if s.Logger != nil {
		s.Logger.Info("manager margin loaded", zap.Int("rows", stats.Inserted))
	}
	return stats, nil
}
