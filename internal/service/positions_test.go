package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"riskcapital/internal/client/metabase"
	"riskcapital/internal/config"
	"riskcapital/internal/repository"
)

func jobsConfig() config.JobsConfig {
	return config.JobsConfig{
		OTCCard:       101,
		SwapCard:      102,
		OffshoreCard:  103,
		PositionsCard: 200,
	}
}

func dayPtr(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func cgeFilter(filters []metabase.Filter) string {
	for _, f := range filters {
		if f.Type == "number/=" {
			if vals, ok := f.Value.([]string); ok && len(vals) > 0 {
				return vals[0]
			}
		}
	}
	return ""
}

func TestPositionsAbortsWhenDiscoveryCardEmpty(t *testing.T) {
	repo := &stubRepo{maxPLDate: dayPtr("2024-05-31")}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			switch cardID {
			case 101:
				return metabase.Rows{{"CgePortfolio": float64(1)}}, nil
			case 102:
				return metabase.Rows{{"CgePortfolio": float64(2)}}, nil
			default:
				return nil, nil
			}
		},
	}
	svc := &PositionsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrDiscoveryIncomplete) {
		t.Fatalf("expected ErrDiscoveryIncomplete, got %v", err)
	}
	if len(repo.insertedPositions) != 0 {
		t.Fatalf("expected no positions written on aborted discovery, got %d batches", len(repo.insertedPositions))
	}
	if len(cards.publicCalls) != 0 {
		t.Fatalf("expected no per-fund fetches on aborted discovery, got %d", len(cards.publicCalls))
	}
}

func TestPositionsAbortsWhenDiscoveryCardFails(t *testing.T) {
	repo := &stubRepo{maxPLDate: dayPtr("2024-05-31")}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			if cardID == 103 {
				return nil, errors.New("card timeout")
			}
			return metabase.Rows{{"CgePortfolio": float64(1)}}, nil
		},
	}
	svc := &PositionsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, ErrDiscoveryIncomplete) {
		t.Fatalf("expected ErrDiscoveryIncomplete, got %v", err)
	}
}

func TestPositionsLoadsAndClassifies(t *testing.T) {
	repo := &stubRepo{
		maxPLDate: dayPtr("2024-05-31"),
		fundDates: []repository.FundReferenceDate{
			{FundID: 1, AsOfDate: *dayPtr("2024-05-31")},
			{FundID: 2, AsOfDate: *dayPtr("2024-05-30")},
			{FundID: 3, AsOfDate: *dayPtr("2024-05-31")},
		},
	}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			switch cardID {
			case 101: // OTC, fund 1 listed twice to exercise dedup
				return metabase.Rows{
					{"CgePortfolio": float64(1), "Nickname": "Alpha"},
					{"CgePortfolio": float64(1), "Nickname": "Alpha"},
					{"CgePortfolio": float64(2), "Nickname": "Both"},
				}, nil
			case 102: // swap
				return metabase.Rows{{"CgePortfolio": float64(2)}}, nil
			case 103: // offshore
				return metabase.Rows{
					{"CgePortfolio": float64(3), "Nickname": "Offshore One"},
					{"CgePortfolio": float64(3), "Nickname": "Both"},
				}, nil
			}
			return nil, nil
		},
		queryPublicCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			switch cgeFilter(filters) {
			case "1":
				return metabase.Rows{
					{"Nickname": "Alpha", "notional": "1500.50", "NmClassificacao": "Original"},
				}, nil
			case "2":
				return metabase.Rows{
					{"Nickname": "Both", "notional": float64(10)},
				}, nil
			case "3":
				return metabase.Rows{
					{"Nickname": "Offshore One", "qtyposicao": float64(3)},
				}, nil
			}
			return nil, nil
		},
	}
	svc := &PositionsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	stats, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Funds != 3 {
		t.Fatalf("expected 3 funds, got %d", stats.Funds)
	}
	if len(repo.latestDatesArgs) != 1 {
		t.Fatalf("expected one LatestDatesByFund call, got %d", len(repo.latestDatesArgs))
	}
	union := repo.latestDatesArgs[0]
	if fmt.Sprint(union) != "[1 2 3]" {
		t.Fatalf("expected deduplicated sorted union [1 2 3], got %v", union)
	}
	if len(repo.insertedPositions) != 1 {
		t.Fatalf("expected one insert batch, got %d", len(repo.insertedPositions))
	}
	rows := repo.insertedPositions[0]
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	batch := rows[0].BatchInsertedAt
	if batch.Nanosecond() != 0 {
		t.Fatalf("batch timestamp must be second-truncated, got %v", batch)
	}
	byNick := map[string]int{}
	for i, p := range rows {
		if !p.BatchInsertedAt.Equal(batch) {
			t.Fatalf("row %d has batch %v, want %v", i, p.BatchInsertedAt, batch)
		}
		if p.Nickname != nil {
			byNick[*p.Nickname] = i
		}
	}

	alpha := rows[byNick["Alpha"]]
	if alpha.Classification == nil || *alpha.Classification != "OTC OPC" {
		t.Fatalf("OTC nickname must be reclassified, got %v", alpha.Classification)
	}
	if alpha.FundID == nil || *alpha.FundID != 1 {
		t.Fatalf("fund id must come from the request, got %v", alpha.FundID)
	}
	if alpha.Notional == nil || !alpha.Notional.Equal(mustDecimal("1500.50")) {
		t.Fatalf("string notional must coerce, got %v", alpha.Notional)
	}

	offshore := rows[byNick["Offshore One"]]
	if offshore.Classification == nil || *offshore.Classification != "Fundo Offshore" {
		t.Fatalf("offshore nickname must be reclassified, got %v", offshore.Classification)
	}

	// Present in both discovery sets: OTC wins.
	both := rows[byNick["Both"]]
	if both.Classification == nil || *both.Classification != "OTC OPC" {
		t.Fatalf("overlapping nickname must classify as OTC, got %v", both.Classification)
	}
}

func TestPositionsSkipsFailedFund(t *testing.T) {
	repo := &stubRepo{
		maxPLDate: dayPtr("2024-05-31"),
		fundDates: []repository.FundReferenceDate{
			{FundID: 1, AsOfDate: *dayPtr("2024-05-31")},
			{FundID: 2, AsOfDate: *dayPtr("2024-05-31")},
		},
	}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			return metabase.Rows{
				{"CgePortfolio": float64(1)},
				{"CgePortfolio": float64(2)},
			}, nil
		},
		queryPublicCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			if cgeFilter(filters) == "1" {
				return nil, errors.New("gateway timeout")
			}
			return metabase.Rows{{"Nickname": "Beta"}}, nil
		},
	}
	svc := &PositionsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	stats, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("one failed fund must not fail the run: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected 1 failed fund, got %d", stats.Failed)
	}
	if stats.Inserted != 1 {
		t.Fatalf("expected 1 inserted row, got %d", stats.Inserted)
	}
}

func TestPositionsNoRowsWritesNothing(t *testing.T) {
	repo := &stubRepo{
		maxPLDate: dayPtr("2024-05-31"),
		fundDates: []repository.FundReferenceDate{{FundID: 1, AsOfDate: *dayPtr("2024-05-31")}},
	}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			return metabase.Rows{{"CgePortfolio": float64(1)}}, nil
		},
		queryPublicCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			return nil, nil
		},
	}
	svc := &PositionsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	stats, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Inserted != 0 || len(repo.insertedPositions) != 0 {
		t.Fatalf("expected no insert on empty payloads")
	}
}
