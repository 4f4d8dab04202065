package service

import (
	"context"

	"riskcapital/internal/client/metabase"
)

type stubCards struct {
	queryCard       func(cardID int, filters []metabase.Filter) (metabase.Rows, error)
	queryPublicCard func(cardID int, filters []metabase.Filter) (metabase.Rows, error)

	publicCalls []int
}

func (s *stubCards) QueryCard(ctx context.Context, cardID int, filters ...metabase.Filter) (metabase.Rows, error) {
	if s.queryCard == nil {
		return nil, nil
	}
	return s.queryCard(cardID, filters)
}

func (s *stubCards) QueryPublicCard(ctx context.Context, cardID int, filters ...metabase.Filter) (metabase.Rows, error) {
	s.publicCalls = append(s.publicCalls, cardID)
	if s.queryPublicCard == nil {
		return nil, nil
	}
	return s.queryPublicCard(cardID, filters)
}
