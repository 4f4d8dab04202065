package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"riskcapital/internal/client/metabase"
	"riskcapital/internal/config"
	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

// CardQuerier is the dashboard surface the ETL jobs depend on.
type CardQuerier interface {
	QueryCard(ctx context.Context, cardID int, filters ...metabase.Filter) (metabase.Rows, error)
	QueryPublicCard(ctx context.Context, cardID int, filters ...metabase.Filter) (metabase.Rows, error)
}

// ErrDiscoveryIncomplete aborts a positions load when any of the three
// discovery cards came back empty. A partial fund universe would silently
// shrink the snapshot, so nothing is written.
var ErrDiscoveryIncomplete = errors.New("exposure discovery incomplete: one or more cards returned no funds")

const dateLayout = "2006-01-02"

// PositionsService loads the exposed-fund position snapshot: it discovers
// the exposed funds from the OTC, swap and offshore cards, then pulls each
// fund's positions at its latest known valuation date.
type PositionsService struct {
	Repo   repository.Repository
	Cards  CardQuerier
	Config config.JobsConfig
	Logger *zap.Logger
}

type PositionsStats struct {
	Funds    int    `json:"funds"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Failed   int    `json:"failed"`
	Batch    string `json:"batch,omitempty"`
}

func (s *PositionsService) RunOnce(ctx context.Context) (PositionsStats, error) {
	var stats PositionsStats
	if s == nil || s.Repo == nil || s.Cards == nil {
		return stats, nil
	}

	refDate, err := s.Repo.MaxPLHistoryDate(ctx)
	if err != nil {
		return stats, err
	}
	if refDate == nil {
		return stats, errors.New("no PL history loaded, cannot derive reference date")
	}
	ref := refDate.Format(dateLayout)

	otcRows := s.discoveryCard(ctx, s.Config.OTCCard, ref)
	swapRows := s.discoveryCard(ctx, s.Config.SwapCard, ref)
	offRows := s.discoveryCard(ctx, s.Config.OffshoreCard, ref)

	otcIDs := fundIDSet(otcRows)
	swapIDs := fundIDSet(swapRows)
	offIDs := fundIDSet(offRows)
	if len(otcIDs) == 0 || len(swapIDs) == 0 || len(offIDs) == 0 {
		s.logWarn("discovery card empty", nil,
			zap.Int("otc", len(otcIDs)),
			zap.Int("swap", len(swapIDs)),
			zap.Int("offshore", len(offIDs)))
		return stats, ErrDiscoveryIncomplete
	}

	union := unionFundIDs(otcIDs, swapIDs, offIDs)
	stats.Funds = len(union)

	otcNicknames := nicknameSet(otcRows)
	offshoreNicknames := nicknameSet(offRows)

	dates, err := s.Repo.LatestDatesByFund(ctx, union)
	if err != nil {
		return stats, err
	}

	// Truncated to seconds so the value round-trips through the DATETIME
	// column and still matches on equality in the snapshot rebuild.
	batch := time.Now().Truncate(time.Second)
	stats.Batch = batch.Format("2006-01-02 15:04:05")

	var positions []models.FundPosition
	for i, fd := range dates {
		if i > 0 {
			if err := pause(ctx, s.Config.RequestDelay); err != nil {
				return stats, err
			}
		}
		asOf := fd.AsOfDate
		rows, err := s.Cards.QueryPublicCard(ctx, s.Config.PositionsCard,
			metabase.DateFilter("Data", asOf.Format(dateLayout)),
			metabase.NumberFilter("CGE", strconv.FormatInt(fd.FundID, 10)),
		)
		if err != nil {
			stats.Failed++
			s.logWarn("positions fetch failed", err, zap.Int64("fund", fd.FundID))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		stats.Fetched += len(rows)
		for _, row := range rows {
			p := buildPosition(row, fd.FundID, asOf, batch)
			classify(&p, offshoreNicknames, otcNicknames)
			positions = append(positions, p)
		}
	}

	if len(positions) == 0 {
		s.logInfo("no positions returned")
		return stats, nil
	}
	if err := s.Repo.InsertPositions(ctx, positions); err != nil {
		return stats, err
	}
	stats.Inserted = len(positions)
	s.logInfo("positions loaded",
		zap.Int("funds", stats.Funds),
		zap.Int("rows", stats.Inserted),
		zap.String("batch", stats.Batch))
	return stats, nil
}

// discoveryCard runs one private discovery card. A failed card degrades to an
// empty result so the all-or-nothing guard downstream can abort the load.
func (s *PositionsService) discoveryCard(ctx context.Context, cardID int, ref string) metabase.Rows {
	rows, err := s.Cards.QueryCard(ctx, cardID, metabase.DateFilter("DtCarteira", ref))
	if err != nil {
		s.logWarn("discovery card failed", err, zap.Int("card", cardID))
		return nil
	}
	return rows
}

func fundIDSet(rows metabase.Rows) map[int64]struct{} {
	out := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if id := asInt64(row["CgePortfolio"]); id != nil {
			out[*id] = struct{}{}
		}
	}
	return out
}

func nicknameSet(rows metabase.Rows) map[string]struct{} {
	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if n := asString(row["Nickname"]); n != nil {
			out[*n] = struct{}{}
		}
	}
	return out
}

func unionFundIDs(sets ...map[int64]struct{}) []int64 {
	merged := map[int64]struct{}{}
	for _, set := range sets {
		for id := range set {
			merged[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(merged))
	for id := range merged {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (s *PositionsService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.Logger.Warn(msg, fields...)
}

func (s *PositionsService) logInfo(msg string, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Info(msg, fields...)
}
