package store

import (
	"sync"

	"github.com/google/uuid"

	"tasador/server/internal/models"
)

// MemoryStore keeps everything in process memory. It backs local-only
// sessions that have no database configured.
type MemoryStore struct {
	mu          sync.RWMutex
	target      models.TargetProperty
	hasTarget   bool
	comparables []models.Comparable
	valuations  []models.SavedValuation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveTarget(t models.TargetProperty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
	s.hasTarget = true
	return nil
}

func (s *MemoryStore) LoadTarget() (models.TargetProperty, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target, s.hasTarget, nil
}

func (s *MemoryStore) InsertComparable(c models.Comparable) (models.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.comparables = append(s.comparables, c)
	return c, nil
}

func (s *MemoryStore) UpdateComparable(c models.Comparable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.comparables {
		if s.comparables[i].ID == c.ID {
			s.comparables[i] = c
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteComparable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.comparables {
		if s.comparables[i].ID == id {
			s.comparables = append(s.comparables[:i], s.comparables[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListComparables() ([]models.Comparable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comparable, len(s.comparables))
	copy(out, s.comparables)
	return out, nil
}

func (s *MemoryStore) AppendComparables(comparables []models.Comparable) ([]models.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := make([]models.Comparable, 0, len(comparables))
	for _, c := range comparables {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.comparables = append(s.comparables, c)
		inserted = append(inserted, c)
	}
	return inserted, nil
}

func (s *MemoryStore) ReplaceComparables(comparables []models.Comparable) ([]models.Comparable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparables = nil
	inserted := make([]models.Comparable, 0, len(comparables))
	for _, c := range comparables {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.comparables = append(s.comparables, c)
		inserted = append(inserted, c)
	}
	return inserted, nil
}

func (s *MemoryStore) SaveValuation(v models.SavedValuation) (models.SavedValuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Comparables = append([]models.Comparable(nil), v.Comparables...)
	s.valuations = append(s.valuations, v)
	return v, nil
}

func (s *MemoryStore) GetValuation(id string) (models.SavedValuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.valuations {
		if v.ID == id {
			return v, nil
		}
	}
	return models.SavedValuation{}, ErrNotFound
}

func (s *MemoryStore) ListValuations() ([]models.SavedValuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SavedValuation, len(s.valuations))
	copy(out, s.valuations)
	return out, nil
}

func (s *MemoryStore) DeleteValuation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.valuations {
		if s.valuations[i].ID == id {
			s.valuations = append(s.valuations[:i], s.valuations[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) CountValuations() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.valuations), nil
}
