package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tasador/server/internal/models"
)

// ComparableRow maps a comparable onto the comparables table for the
// batch upsert path.
type ComparableRow struct {
	ID                   string  `gorm:"column:id;primaryKey"`
	Address              string  `gorm:"column:address"`
	Price                float64 `gorm:"column:price"`
	CoveredSurface       float64 `gorm:"column:covered_surface"`
	UncoveredSurface     float64 `gorm:"column:uncovered_surface"`
	SurfaceType          string  `gorm:"column:surface_type"`
	HomogenizationFactor float64 `gorm:"column:homogenization_factor"`
	DaysOnMarket         int     `gorm:"column:days_on_market"`
}

func (ComparableRow) TableName() string {
	return "comparables"
}

// NewGormDB opens a gorm handle on the same sqlite file the Database
// uses; the batch processor writes through it transactionally.
func NewGormDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}
	return db, nil
}

// UpsertComparables inserts a batch of comparables, replacing rows
// whose id already exists.
func UpsertComparables(tx *gorm.DB, batch []*models.Comparable) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]ComparableRow, len(batch))
	for i, c := range batch {
		rows[i] = ComparableRow{
			ID:                   c.ID,
			Address:              c.Address,
			Price:                c.Price,
			CoveredSurface:       c.CoveredSurface,
			UncoveredSurface:     c.UncoveredSurface,
			SurfaceType:          string(c.SurfaceType),
			HomogenizationFactor: c.HomogenizationFactor,
			DaysOnMarket:         c.DaysOnMarket,
		}
	}

	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}
