package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tasador/server/internal/models"
	"tasador/server/internal/store"
)

// Database is the sqlite-backed store for the active valuation and the
// saved snapshots.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) RunMigrations() error {
	// The active target is a single row keyed to id 1.
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS target (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			address TEXT NOT NULL DEFAULT '',
			covered_surface REAL NOT NULL DEFAULT 0,
			uncovered_surface REAL NOT NULL DEFAULT 0,
			surface_type TEXT NOT NULL DEFAULT 'Ninguno',
			homogenization_factor REAL NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create target table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS comparables (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL DEFAULT 0,
			covered_surface REAL NOT NULL DEFAULT 0,
			uncovered_surface REAL NOT NULL DEFAULT 0,
			surface_type TEXT NOT NULL DEFAULT 'Ninguno',
			homogenization_factor REAL NOT NULL DEFAULT 0,
			days_on_market INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create comparables table: %w", err)
	}

	// Snapshots keep full copies of the target and comparable list as
	// JSON so they stay immutable once written.
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS saved_valuations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			date TIMESTAMP NOT NULL,
			target TEXT NOT NULL,
			comparables TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create saved_valuations table: %w", err)
	}

	return nil
}

func (d *Database) SaveTarget(t models.TargetProperty) error {
	_, err := d.db.Exec(`
		INSERT INTO target (id, address, covered_surface, uncovered_surface, surface_type, homogenization_factor)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			covered_surface = excluded.covered_surface,
			uncovered_surface = excluded.uncovered_surface,
			surface_type = excluded.surface_type,
			homogenization_factor = excluded.homogenization_factor
	`, t.Address, t.CoveredSurface, t.UncoveredSurface, string(t.SurfaceType), t.HomogenizationFactor)
	if err != nil {
		return fmt.Errorf("failed to save target: %w", err)
	}
	return nil
}

func (d *Database) LoadTarget() (models.TargetProperty, bool, error) {
	var t models.TargetProperty
	var surfaceType string
	err := d.db.QueryRow(`
		SELECT address, covered_surface, uncovered_surface, surface_type, homogenization_factor
		FROM target WHERE id = 1
	`).Scan(&t.Address, &t.CoveredSurface, &t.UncoveredSurface, &surfaceType, &t.HomogenizationFactor)
	if err == sql.ErrNoRows {
		return models.TargetProperty{}, false, nil
	}
	if err != nil {
		return models.TargetProperty{}, false, fmt.Errorf("failed to load target: %w", err)
	}
	t.SurfaceType = models.ParseSurfaceType(surfaceType)
	return t, true, nil
}

func (d *Database) InsertComparable(c models.Comparable) (models.Comparable, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := d.db.Exec(`
		INSERT INTO comparables (id, address, price, covered_surface, uncovered_surface, surface_type, homogenization_factor, days_on_market)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Address, c.Price, c.CoveredSurface, c.UncoveredSurface, string(c.SurfaceType), c.HomogenizationFactor, c.DaysOnMarket)
	if err != nil {
		return models.Comparable{}, fmt.Errorf("failed to insert comparable: %w", err)
	}
	return c, nil
}

func (d *Database) UpdateComparable(c models.Comparable) error {
	result, err := d.db.Exec(`
		UPDATE comparables
		SET address = ?, price = ?, covered_surface = ?, uncovered_surface = ?,
		    surface_type = ?, homogenization_factor = ?, days_on_market = ?
		WHERE id = ?
	`, c.Address, c.Price, c.CoveredSurface, c.UncoveredSurface, string(c.SurfaceType),
		c.HomogenizationFactor, c.DaysOnMarket, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update comparable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Database) DeleteComparable(id string) error {
	result, err := d.db.Exec("DELETE FROM comparables WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete comparable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Database) ListComparables() ([]models.Comparable, error) {
	rows, err := d.db.Query(`
		SELECT id, address, price, covered_surface, uncovered_surface, surface_type, homogenization_factor, days_on_market
		FROM comparables
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparables: %w", err)
	}
	defer rows.Close()

	var comparables []models.Comparable
	for rows.Next() {
		var c models.Comparable
		var surfaceType string
		if err := rows.Scan(&c.ID, &c.Address, &c.Price, &c.CoveredSurface, &c.UncoveredSurface,
			&surfaceType, &c.HomogenizationFactor, &c.DaysOnMarket); err != nil {
			return nil, fmt.Errorf("failed to scan comparable: %w", err)
		}
		c.SurfaceType = models.ParseSurfaceType(surfaceType)
		comparables = append(comparables, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comparables: %w", err)
	}
	return comparables, nil
}

func (d *Database) AppendComparables(comparables []models.Comparable) ([]models.Comparable, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertAll(tx, comparables)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// ReplaceComparables swaps the whole active list in one transaction,
// so a failure partway through leaves the previous list intact.
func (d *Database) ReplaceComparables(comparables []models.Comparable) ([]models.Comparable, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM comparables"); err != nil {
		return nil, fmt.Errorf("failed to clear comparables: %w", err)
	}

	inserted, err := insertAll(tx, comparables)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

func insertAll(tx *sql.Tx, comparables []models.Comparable) ([]models.Comparable, error) {
	stmt, err := tx.Prepare(`
		INSERT INTO comparables (id, address, price, covered_surface, uncovered_surface, surface_type, homogenization_factor, days_on_market)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := make([]models.Comparable, 0, len(comparables))
	for _, c := range comparables {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		_, err := stmt.Exec(c.ID, c.Address, c.Price, c.CoveredSurface, c.UncoveredSurface,
			string(c.SurfaceType), c.HomogenizationFactor, c.DaysOnMarket)
		if err != nil {
			return nil, fmt.Errorf("failed to insert comparable: %w", err)
		}
		inserted = append(inserted, c)
	}
	return inserted, nil
}

func (d *Database) SaveValuation(v models.SavedValuation) (models.SavedValuation, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	targetJSON, err := json.Marshal(v.Target)
	if err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to marshal target: %w", err)
	}
	comparablesJSON, err := json.Marshal(v.Comparables)
	if err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to marshal comparables: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO saved_valuations (id, name, date, target, comparables)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.Name, v.Date.Format(time.RFC3339), string(targetJSON), string(comparablesJSON))
	if err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to save valuation: %w", err)
	}
	return v, nil
}

func (d *Database) GetValuation(id string) (models.SavedValuation, error) {
	row := d.db.QueryRow(`
		SELECT id, name, date, target, comparables
		FROM saved_valuations WHERE id = ?
	`, id)

	v, err := scanValuation(row.Scan)
	if err == sql.ErrNoRows {
		return models.SavedValuation{}, store.ErrNotFound
	}
	if err != nil {
		return models.SavedValuation{}, err
	}
	return v, nil
}

func (d *Database) ListValuations() ([]models.SavedValuation, error) {
	rows, err := d.db.Query(`
		SELECT id, name, date, target, comparables
		FROM saved_valuations
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations: %w", err)
	}
	defer rows.Close()

	var valuations []models.SavedValuation
	for rows.Next() {
		v, err := scanValuation(rows.Scan)
		if err != nil {
			return nil, err
		}
		valuations = append(valuations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuations: %w", err)
	}
	return valuations, nil
}

func scanValuation(scan func(...interface{}) error) (models.SavedValuation, error) {
	var v models.SavedValuation
	var date, targetJSON, comparablesJSON string

	if err := scan(&v.ID, &v.Name, &date, &targetJSON, &comparablesJSON); err != nil {
		return models.SavedValuation{}, err
	}

	if t, err := time.Parse(time.RFC3339, date); err == nil {
		v.Date = t
	}
	if err := json.Unmarshal([]byte(targetJSON), &v.Target); err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to parse saved target: %w", err)
	}
	if err := json.Unmarshal([]byte(comparablesJSON), &v.Comparables); err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to parse saved comparables: %w", err)
	}
	return v, nil
}

func (d *Database) DeleteValuation(id string) error {
	result, err := d.db.Exec("DELETE FROM saved_valuations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete valuation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Database) CountValuations() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM saved_valuations").Scan(&count)
	return count, err
}
