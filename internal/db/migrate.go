package db

import (
	"riskcapital/internal/models"
)

// AutoMigrate creates the warehouse tables this service owns. The tables are
// additive-only in production; gorm never drops columns here.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.PLHistory{},
		&models.PLSnapshot{},
		&models.ManagerMargin{},
		&models.FundPosition{},
		&models.RiskExposure{},
		&models.JobRun{},
	)
}
