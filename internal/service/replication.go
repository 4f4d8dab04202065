package service

import (
	"context"

	"go.uber.org/zap"

	"riskcapital/internal/repository"
)

// ReplicationService mirrors every table of the source warehouse into the
// target instance: DDL is captured via SHOW CREATE TABLE and replayed after a
// drop, then all rows are copied. This is a full structural replication, not
// a dump. A failure aborts the run; tables already processed stay replicated.
type ReplicationService struct {
	Source repository.Replicator
	Target repository.Replicator
	Logger *zap.Logger
}

type ReplicationStats struct {
	Tables int `json:"tables"`
	Rows   int `json:"rows"`
}

// zeroDateColumns hold literal zero dates in the legacy warehouse; MySQL in
// strict mode rejects them on insert, so they are nulled during the copy.
var zeroDateColumns = []string{"dataProcessamento", "dataPosicao"}

func (s *ReplicationService) RunOnce(ctx context.Context) (ReplicationStats, error) {
	var stats ReplicationStats
	if s == nil || s.Source == nil || s.Target == nil {
		return stats, nil
	}

	tables, err := s.Source.ListTables(ctx)
	if err != nil {
		return stats, err
	}
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ddl, err := s.Source.ShowCreateTable(ctx, table)
		if err != nil {
			return stats, err
		}
		rows, err := s.Source.ReadAllRows(ctx, table)
		if err != nil {
			return stats, err
		}
		cleanZeroDates(rows)
		if err := s.Target.RecreateTable(ctx, table, ddl); err != nil {
			return stats, err
		}
		if err := s.Target.InsertRows(ctx, table, rows); err != nil {
			return stats, err
		}
		stats.Tables++
		stats.Rows += len(rows)
		if s.Logger != nil {
			s.Logger.Info("table replicated",
				zap.String("table", table),
				zap.Int("rows", len(rows)))
		}
	}
	return stats, nil
}

func cleanZeroDates(rows []map[string]any) {
	for _, row := range rows {
		for _, col := range zeroDateColumns {
			v, ok := row[col]
			if !ok {
				continue
			}
			if str, ok := v.(string); ok {
				switch str {
				case "0000-00-00 00:00:00", "0000-00-00", "":
					row[col] = nil
				}
			}
		}
	}
}
