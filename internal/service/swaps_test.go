package service

import (
	"context"
	"testing"
	"time"

	"riskcapital/internal/client/metabase"
	"riskcapital/internal/models"
)

func TestSwapsReusePositionsBatchAndRebuildSnapshot(t *testing.T) {
	batch := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	origin := "Swap"
	repo := &stubRepo{
		maxBatch: &batch,
		swapRef:  dayPtr("2024-05-31"),
		distinct: []models.RiskExposure{
			{FundID: 10, Origin: &origin, BatchTS: batch},
		},
		deleteReturn: 2,
	}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			if cardID != 102 {
				t.Fatalf("unexpected card %d", cardID)
			}
			if len(filters) != 1 || filters[0].Type != "date/single" || filters[0].Value != "2024-05-31" {
				t.Fatalf("unexpected swap filters: %+v", filters)
			}
			return metabase.Rows{
				{
					"CgePortfolio":          float64(10),
					"DsIndiceAtivo":         "CDI",
					"DsIndicePassivo":       "IPCA",
					"ValorNocionalSwap":     float64(5000),
					"origem":                "Swap",
					"ValorSaldoAtivoSwap":   float64(120.5),
					"ValorSaldoPassivoSwap": float64(-80),
				},
			}, nil
		},
	}
	svc := &SwapsService{
		Repo:     repo,
		Cards:    cards,
		Config:   jobsConfig(),
		Exposure: &ExposureSnapshotService{Repo: repo},
	}

	stats, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("expected 1 swap row, got %d", stats.Inserted)
	}
	if len(repo.insertedPositions) != 1 || len(repo.insertedPositions[0]) != 1 {
		t.Fatalf("expected one inserted swap batch")
	}
	p := repo.insertedPositions[0][0]
	if !p.BatchInsertedAt.Equal(batch) {
		t.Fatalf("swap row must reuse the positions batch, got %v", p.BatchInsertedAt)
	}
	if p.Nickname == nil || *p.Nickname != "CDI" {
		t.Fatalf("nickname must come from DsIndiceAtivo, got %v", p.Nickname)
	}
	if p.ISIN == nil || *p.ISIN != "IPCA" {
		t.Fatalf("isin must come from DsIndicePassivo, got %v", p.ISIN)
	}
	if p.Classification == nil || *p.Classification != "Swap" {
		t.Fatalf("classification must come from origem, got %v", p.Classification)
	}
	if p.Notional == nil || !p.Notional.Equal(mustDecimal("5000")) {
		t.Fatalf("notional must come from ValorNocionalSwap, got %v", p.Notional)
	}
	if p.MarkPrice != nil || p.Quantity != nil || p.ClassificationID != nil ||
		p.FinancialValue != nil || p.AssetID != nil || p.AssetTypeID != nil {
		t.Fatalf("columns absent from the swap payload must stay null: %+v", p)
	}

	// The snapshot rebuild ran for the same batch.
	if stats.Snapshot == nil {
		t.Fatalf("expected snapshot stats")
	}
	if len(repo.deletedBatches) != 1 || !repo.deletedBatches[0].Equal(batch) {
		t.Fatalf("snapshot must be rebuilt for the swap batch, got %v", repo.deletedBatches)
	}
	if len(repo.insertedExposures) != 1 {
		t.Fatalf("expected snapshot rows inserted")
	}
}

func TestSwapsNoReferenceDateIsNoop(t *testing.T) {
	repo := &stubRepo{}
	cards := &stubCards{
		queryCard: func(cardID int, filters []metabase.Filter) (metabase.Rows, error) {
			t.Fatalf("card must not be queried without a reference date")
			return nil, nil
		},
	}
	svc := &SwapsService{Repo: repo, Cards: cards, Config: jobsConfig()}

	stats, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Inserted != 0 || len(repo.insertedPositions) != 0 {
		t.Fatalf("expected noop without reference date")
	}
}
