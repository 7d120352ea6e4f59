package store

import (
	"errors"

	"tasador/server/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store persists the active valuation (target + comparables) and the
// saved snapshots. The valuation pipeline never touches a Store; only
// the session layer does, with the handle injected at startup.
type Store interface {
	// Active target. LoadTarget reports false when none was saved yet.
	SaveTarget(t models.TargetProperty) error
	LoadTarget() (models.TargetProperty, bool, error)

	// Active comparable list, kept in insertion order.
	InsertComparable(c models.Comparable) (models.Comparable, error)
	UpdateComparable(c models.Comparable) error
	DeleteComparable(id string) error
	ListComparables() ([]models.Comparable, error)
	AppendComparables(comparables []models.Comparable) ([]models.Comparable, error)
	ReplaceComparables(comparables []models.Comparable) ([]models.Comparable, error)

	// Saved valuations.
	SaveValuation(v models.SavedValuation) (models.SavedValuation, error)
	GetValuation(id string) (models.SavedValuation, error)
	ListValuations() ([]models.SavedValuation, error)
	DeleteValuation(id string) error
	CountValuations() (int, error)
}
