package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tasador/server/internal/models"
	"tasador/server/internal/queue"
	"tasador/server/internal/store"
	"tasador/server/internal/valuation"
)

// MaxSavedValuations caps the snapshots a user may keep.
const MaxSavedValuations = 30

var (
	// ErrSavedLimit blocks saving once MaxSavedValuations is reached.
	ErrSavedLimit = errors.New("saved valuations limit reached")

	// ErrNoAddress blocks saving a valuation whose target has no address.
	ErrNoAddress = errors.New("target property has no address")

	// ErrPartialReplace reports that loading a snapshot updated the
	// resident state but the remote replace did not fully complete,
	// leaving the external collection possibly mixed.
	ErrPartialReplace = errors.New("comparable replacement did not complete")
)

// PersistError reports that a change was applied to the resident state
// but could not be written to the store. The local state stands; the
// error is a notification, not a rollback.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s applied locally but not persisted: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// TargetPatch carries a field-by-field edit of the target property.
type TargetPatch struct {
	Address              *string             `json:"address"`
	CoveredSurface       *float64            `json:"covered_surface"`
	UncoveredSurface     *float64            `json:"uncovered_surface"`
	SurfaceType          *models.SurfaceType `json:"surface_type"`
	HomogenizationFactor *float64            `json:"homogenization_factor"`
}

// ComparablePatch carries a field-by-field edit of one comparable.
type ComparablePatch struct {
	Address              *string             `json:"address"`
	Price                *float64            `json:"price"`
	CoveredSurface       *float64            `json:"covered_surface"`
	UncoveredSurface     *float64            `json:"uncovered_surface"`
	SurfaceType          *models.SurfaceType `json:"surface_type"`
	HomogenizationFactor *float64            `json:"homogenization_factor"`
	DaysOnMarket         *int                `json:"days_on_market"`
}

// Session owns the resident target and comparable list. Edits apply to
// the resident state first and are then pushed to the store; the
// valuation pipeline only ever reads the resident state, so its
// results never depend on I/O completing.
type Session struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	store  store.Store
	queue  *queue.ComparableQueue

	target      models.TargetProperty
	comparables []models.Comparable
}

// New builds a session over the given store. A nil queue persists bulk
// imports synchronously. Previously stored state is loaded as the
// resident state; a fresh store starts with the default target.
func New(st store.Store, q *queue.ComparableQueue, logger *logrus.Logger) *Session {
	s := &Session{
		logger: logger,
		store:  st,
		queue:  q,
		target: models.NewTargetProperty(),
	}

	if target, ok, err := st.LoadTarget(); err != nil {
		logger.WithError(err).Error("Failed to load stored target")
	} else if ok {
		s.target = target
	}

	if comparables, err := st.ListComparables(); err != nil {
		logger.WithError(err).Error("Failed to load stored comparables")
	} else {
		s.comparables = comparables
	}

	return s
}

// Target returns the resident target property.
func (s *Session) Target() models.TargetProperty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Comparables returns a copy of the resident comparable list.
func (s *Session) Comparables() []models.Comparable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comparable, len(s.comparables))
	copy(out, s.comparables)
	return out
}

// Processed returns the resident comparables with derived figures.
func (s *Session) Processed() []valuation.ProcessedComparable {
	return valuation.ProcessAll(s.Comparables())
}

// Stats recomputes the market statistics from the resident list.
func (s *Session) Stats() models.MarketStats {
	return valuation.ComputeStats(s.Comparables())
}

// TargetHSurface returns the homogenized surface of the target.
func (s *Session) TargetHSurface() float64 {
	t := s.Target()
	return valuation.Homogenize(t.CoveredSurface, t.UncoveredSurface, t.HomogenizationFactor)
}

// Valuate derives the suggested price range from the current state.
func (s *Session) Valuate() models.Valuation {
	return valuation.Estimate(s.Stats(), s.TargetHSurface())
}

// UpdateTarget merges the patch into the resident target. Setting the
// surface type resets the factor to the type default, with unknown
// types falling back to Ninguno; an explicit factor in the same patch
// wins over the reset.
func (s *Session) UpdateTarget(patch TargetPatch) (models.TargetProperty, error) {
	s.mu.Lock()
	if patch.Address != nil {
		s.target.Address = *patch.Address
	}
	if patch.CoveredSurface != nil {
		s.target.CoveredSurface = clampNonNegative(*patch.CoveredSurface)
	}
	if patch.UncoveredSurface != nil {
		s.target.UncoveredSurface = clampNonNegative(*patch.UncoveredSurface)
	}
	if patch.SurfaceType != nil {
		st := models.ParseSurfaceType(string(*patch.SurfaceType))
		s.target.SurfaceType = st
		s.target.HomogenizationFactor = models.DefaultFactors[st]
	}
	if patch.HomogenizationFactor != nil {
		s.target.HomogenizationFactor = *patch.HomogenizationFactor
	}
	updated := s.target
	s.mu.Unlock()

	if err := s.store.SaveTarget(updated); err != nil {
		s.logger.WithError(err).Error("Failed to persist target")
		return updated, &PersistError{Op: "target update", Err: err}
	}
	return updated, nil
}

// AddComparable appends the stub listing and returns it.
func (s *Session) AddComparable() (models.Comparable, error) {
	c := models.NewComparable()
	c.ID = uuid.NewString()

	s.mu.Lock()
	s.comparables = append(s.comparables, c)
	s.mu.Unlock()

	if _, err := s.store.InsertComparable(c); err != nil {
		s.logger.WithError(err).Error("Failed to persist comparable")
		return c, &PersistError{Op: "comparable add", Err: err}
	}
	return c, nil
}

// UpdateComparable merges the patch into the comparable with the given
// id. Surface-type changes reset the factor like target edits do.
func (s *Session) UpdateComparable(id string, patch ComparablePatch) (models.Comparable, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.comparables {
		if s.comparables[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return models.Comparable{}, store.ErrNotFound
	}

	c := &s.comparables[idx]
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.Price != nil {
		c.Price = clampNonNegative(*patch.Price)
	}
	if patch.CoveredSurface != nil {
		c.CoveredSurface = clampNonNegative(*patch.CoveredSurface)
	}
	if patch.UncoveredSurface != nil {
		c.UncoveredSurface = clampNonNegative(*patch.UncoveredSurface)
	}
	if patch.SurfaceType != nil {
		st := models.ParseSurfaceType(string(*patch.SurfaceType))
		c.SurfaceType = st
		c.HomogenizationFactor = models.DefaultFactors[st]
	}
	if patch.HomogenizationFactor != nil {
		c.HomogenizationFactor = *patch.HomogenizationFactor
	}
	if patch.DaysOnMarket != nil {
		days := *patch.DaysOnMarket
		if days < 0 {
			days = 0
		}
		c.DaysOnMarket = days
	}
	updated := *c
	s.mu.Unlock()

	if err := s.store.UpdateComparable(updated); err != nil {
		s.logger.WithError(err).Error("Failed to persist comparable update")
		return updated, &PersistError{Op: "comparable update", Err: err}
	}
	return updated, nil
}

// DeleteComparable removes the comparable with the given id.
func (s *Session) DeleteComparable(id string) error {
	s.mu.Lock()
	found := false
	for i := range s.comparables {
		if s.comparables[i].ID == id {
			s.comparables = append(s.comparables[:i], s.comparables[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}

	if err := s.store.DeleteComparable(id); err != nil {
		s.logger.WithError(err).Error("Failed to persist comparable deletion")
		return &PersistError{Op: "comparable delete", Err: err}
	}
	return nil
}

// ImportComparables appends normalized records in their input order.
// The resident state is updated synchronously; persistence goes
// through the batch queue when one is attached, so a slow store never
// stalls the import.
func (s *Session) ImportComparables(comparables []models.Comparable) (int, error) {
	if len(comparables) == 0 {
		return 0, nil
	}

	batch := make([]models.Comparable, len(comparables))
	copy(batch, comparables)
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	s.comparables = append(s.comparables, batch...)
	s.mu.Unlock()

	if s.queue != nil {
		refs := make([]*models.Comparable, len(batch))
		for i := range batch {
			refs[i] = &batch[i]
		}
		if err := s.queue.Push(refs); err != nil {
			s.logger.WithError(err).Error("Failed to enqueue imported batch")
			return len(batch), &PersistError{Op: "bulk import", Err: err}
		}
		return len(batch), nil
	}

	if _, err := s.store.AppendComparables(batch); err != nil {
		s.logger.WithError(err).Error("Failed to persist imported batch")
		return len(batch), &PersistError{Op: "bulk import", Err: err}
	}
	return len(batch), nil
}

// NewValuation resets the session to a fresh target and an empty
// comparable list.
func (s *Session) NewValuation() error {
	fresh := models.NewTargetProperty()

	s.mu.Lock()
	s.target = fresh
	s.comparables = nil
	s.mu.Unlock()

	if err := s.store.SaveTarget(fresh); err != nil {
		s.logger.WithError(err).Error("Failed to persist target reset")
		return &PersistError{Op: "new valuation", Err: err}
	}
	if _, err := s.store.ReplaceComparables(nil); err != nil {
		s.logger.WithError(err).Error("Failed to clear stored comparables")
		return &PersistError{Op: "new valuation", Err: err}
	}
	return nil
}

// SaveValuation snapshots the current state. The saved-limit and
// missing-address checks run before anything is written.
func (s *Session) SaveValuation() (models.SavedValuation, error) {
	count, err := s.store.CountValuations()
	if err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to count valuations: %w", err)
	}
	if count >= MaxSavedValuations {
		return models.SavedValuation{}, ErrSavedLimit
	}

	s.mu.RLock()
	target := s.target
	comparables := make([]models.Comparable, len(s.comparables))
	copy(comparables, s.comparables)
	s.mu.RUnlock()

	if target.Address == "" {
		return models.SavedValuation{}, ErrNoAddress
	}

	now := time.Now()
	snapshot := models.SavedValuation{
		Name:        fmt.Sprintf("%s - %s", target.Address, now.Format("02/01/2006")),
		Date:        now,
		Target:      target,
		Comparables: comparables,
	}

	saved, err := s.store.SaveValuation(snapshot)
	if err != nil {
		return models.SavedValuation{}, fmt.Errorf("failed to save valuation: %w", err)
	}
	return saved, nil
}

// SavedValuations lists the stored snapshots.
func (s *Session) SavedValuations() ([]models.SavedValuation, error) {
	return s.store.ListValuations()
}

// DeleteValuation removes a stored snapshot.
func (s *Session) DeleteValuation(id string) error {
	return s.store.DeleteValuation(id)
}

// LoadValuation replaces the resident state with a stored snapshot and
// then replaces the remote collection. When the remote replace fails
// the resident state stands and the failure surfaces as
// ErrPartialReplace, since a non-transactional store may be left with
// a mixed list.
func (s *Session) LoadValuation(id string) error {
	v, err := s.store.GetValuation(id)
	if err != nil {
		return err
	}

	comparables := make([]models.Comparable, len(v.Comparables))
	copy(comparables, v.Comparables)

	s.mu.Lock()
	s.target = v.Target
	s.comparables = comparables
	s.mu.Unlock()

	if err := s.store.SaveTarget(v.Target); err != nil {
		s.logger.WithError(err).Error("Failed to persist loaded target")
		return fmt.Errorf("%w: %v", ErrPartialReplace, err)
	}
	if _, err := s.store.ReplaceComparables(comparables); err != nil {
		s.logger.WithError(err).Error("Failed to replace stored comparables")
		return fmt.Errorf("%w: %v", ErrPartialReplace, err)
	}
	return nil
}

// clampNonNegative coerces negative data-entry values to 0. This is the
// boundary clamp; the pipeline itself never clamps.
func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
