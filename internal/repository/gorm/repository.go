package gormrepository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"riskcapital/internal/models"
	"riskcapital/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- PL history -------------------------------------------------------------

func (s *Store) MaxPLHistoryDate(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row struct {
		MaxDate *time.Time `gorm:"column:max_date"`
	}
	err := s.db.WithContext(ctx).
		Model(&models.PLHistory{}).
		Select("MAX(data) AS max_date").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.MaxDate, nil
}

func (s *Store) LatestDatesByFund(ctx context.Context, fundIDs []int64) ([]repository.FundReferenceDate, error) {
	if s == nil || s.db == nil || len(fundIDs) == 0 {
		return nil, nil
	}
	var rows []repository.FundReferenceDate
	err := s.db.WithContext(ctx).
		Model(&models.PLHistory{}).
		Select("CgePortfolio AS fund_id, MAX(data) AS as_of_date").
		Where("CgePortfolio IN ?", fundIDs).
		Group("CgePortfolio").
		Order("CgePortfolio").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) InsertPLHistory(ctx context.Context, items []models.PLHistory) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 1000).Error
}

// --- Positions --------------------------------------------------------------

func (s *Store) InsertPositions(ctx context.Context, items []models.FundPosition) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 2000).Error
}

func (s *Store) MaxPositionBatch(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row struct {
		MaxDT *time.Time `gorm:"column:max_dt"`
	}
	err := s.db.WithContext(ctx).
		Model(&models.FundPosition{}).
		Select("MAX(dt_insercao) AS max_dt").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.MaxDT, nil
}

func (s *Store) DistinctExposuresForBatch(ctx context.Context, batch time.Time) ([]models.RiskExposure, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.RiskExposure
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT
			CAST(CgePortfolio AS SIGNED) AS CgePortfolio,
			NmClassificacao              AS origem,
			dt_insercao                  AS dt_carga
		FROM TB_ENQ_POSICOES_FUNDOS_EXPOSTOS
		WHERE dt_insercao = ?`, batch).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestSwapReferenceDate returns the most recent month-end valuation date in
// PL history among the funds currently present in the exposure snapshot.
func (s *Store) LatestSwapReferenceDate(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row struct {
		RefDate *time.Time `gorm:"column:ref_date"`
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT MAX(ultima_data_mes) AS ref_date
		FROM (
			SELECT
				h.CgePortfolio,
				DATE_FORMAT(h.data, '%Y-%m-01') AS mes_ref,
				MAX(h.data) AS ultima_data_mes
			FROM TB_ENQ_PL_HISTORICO h
			INNER JOIN (
				SELECT DISTINCT CgePortfolio
				FROM TB_ENQ_EXPOSI_RISCO_SNAPSHOT
			) s ON s.CgePortfolio = h.CgePortfolio
			GROUP BY h.CgePortfolio, DATE_FORMAT(h.data, '%Y-%m-01')
		) base`).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.RefDate, nil
}

// --- Risk exposure snapshot -------------------------------------------------

func (s *Store) DeleteExposureBatch(ctx context.Context, batch time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("dt_carga = ?", batch).
		Delete(&models.RiskExposure{})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertExposures(ctx context.Context, items []models.RiskExposure) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 1000).Error
}

// --- Simple snapshots -------------------------------------------------------

func (s *Store) InsertMarginSnapshots(ctx context.Context, items []models.ManagerMargin) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 1000).Error
}

func (s *Store) InsertPLSnapshots(ctx context.Context, items []models.PLSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 1000).Error
}

// --- Job run log ------------------------------------------------------------

func (s *Store) InsertJobRun(ctx context.Context, item *models.JobRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateJobRun(ctx context.Context, item *models.JobRun) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) ListJobRuns(ctx context.Context, params repository.ListJobRunsParams) ([]models.JobRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.JobRun{})
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name = ?", strings.TrimSpace(*params.Name))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.JobRun
	if err := query.Order("started_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Replication ------------------------------------------------------------

// Table names come back from SHOW TABLES on the source warehouse and are
// interpolated into DDL/DML, so they are validated as bare identifiers first.
var tableNameRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validTable(table string) error {
	if !tableNameRE.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).Raw("SHOW TABLES").Scan(&names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) ShowCreateTable(ctx context.Context, table string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	if err := validTable(table); err != nil {
		return "", err
	}
	var row map[string]any
	if err := s.db.WithContext(ctx).Raw("SHOW CREATE TABLE `" + table + "`").Scan(&row).Error; err != nil {
		return "", err
	}
	ddl, _ := row["Create Table"].(string)
	if ddl == "" {
		return "", fmt.Errorf("no DDL returned for table %s", table)
	}
	return ddl, nil
}

func (s *Store) ReadAllRows(ctx context.Context, table string) ([]map[string]any, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if err := validTable(table); err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := s.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) RecreateTable(ctx context.Context, table string, ddl string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := validTable(table); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec("DROP TABLE IF EXISTS `" + table + "`").Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Exec(ddl).Error
}

func (s *Store) InsertRows(ctx context.Context, table string, rows []map[string]any) error {
	if s == nil || s.db == nil || len(rows) == 0 {
		return nil
	}
	if err := validTable(table); err != nil {
		return err
	}
	const chunk = 2000
	for i := 0; i < len(rows); i += chunk {
		end := i + chunk
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]
		if err := s.db.WithContext(ctx).Table(table).Create(&batch).Error; err != nil {
			return err
		}
	}
	return nil
}
