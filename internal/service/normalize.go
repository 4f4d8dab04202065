package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riskcapital/internal/models"
)

// Upstream card payloads are loosely typed: numbers arrive as floats or
// strings, dates in several layouts, and whole columns can be missing. Every
// coercion here degrades to nil instead of failing the row.

func asString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func asInt64(v any) *int64 {
	switch x := v.(type) {
	case float64:
		n := int64(x)
		return &n
	case int64:
		return &x
	case int:
		n := int64(x)
		return &n
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n := int64(f)
			return &n
		}
	}
	return nil
}

func asDecimal(v any) *decimal.Decimal {
	switch x := v.(type) {
	case float64:
		d := decimal.NewFromFloat(x)
		return &d
	case int64:
		d := decimal.NewFromInt(x)
		return &d
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return &d
		}
	}
	return nil
}

func asBool(v any) *bool {
	switch x := v.(type) {
	case bool:
		return &x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			b := true
			return &b
		case "false", "0":
			b := false
			return &b
		}
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asDate(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// buildPosition maps one raw card row onto the canonical position layout.
// The fund id and reference date come from the request, not the payload, and
// unknown payload columns are dropped.
func buildPosition(row map[string]any, fundID int64, asOf time.Time, batch time.Time) models.FundPosition {
	return models.FundPosition{
		Nickname:             asString(row["Nickname"]),
		PortfolioDate:        asDate(row["DataCarteira"]),
		Notional:             asDecimal(row["notional"]),
		FundID:               &fundID,
		MarkPrice:            asDecimal(row["ValorCotacao"]),
		Classification:       asString(row["NmClassificacao"]),
		Quantity:             asDecimal(row["qtyposicao"]),
		ClassificationID:     asDecimal(row["IdClassificacao"]),
		FinancialValue:       asDecimal(row["valorfinanceiro"]),
		AssetID:              asInt64(row["CodAtivo"]),
		ISIN:                 asString(row["NuIsin"]),
		AssetTypeID:          asInt64(row["CodTipoAtivo"]),
		ReferenceDate:        &asOf,
		BatchInsertedAt:      batch,
		SwapAssetBalance:     asDecimal(row["ValorSaldoAtivoSwap"]),
		SwapLiabilityBalance: asDecimal(row["ValorSaldoPassivoSwap"]),
	}
}

const (
	classificationOffshore = "Fundo Offshore"
	classificationOTC      = "OTC OPC"
)

// classify overrides the payload classification from the discovery card
// membership. Offshore is applied first, so a nickname present in both sets
// ends up classified as OTC.
func classify(p *models.FundPosition, offshoreNicknames, otcNicknames map[string]struct{}) {
	if p == nil || p.Nickname == nil {
		return
	}
	if _, ok := offshoreNicknames[*p.Nickname]; ok {
		v := classificationOffshore
		p.Classification = &v
	}
	if _, ok := otcNicknames[*p.Nickname]; ok {
		v := classificationOTC
		p.Classification = &v
	}
}
