package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasador/server/internal/models"
	"tasador/server/internal/store"
)

func newTestSession() *Session {
	return New(store.NewMemoryStore(), nil, logrus.New())
}

func ptr[T any](v T) *T { return &v }

func TestNew_Defaults(t *testing.T) {
	s := newTestSession()

	target := s.Target()
	assert.Equal(t, models.SurfaceBalcon, target.SurfaceType)
	assert.Equal(t, 0.10, target.HomogenizationFactor)
	assert.Empty(t, target.Address)
	assert.Empty(t, s.Comparables())
}

func TestNew_LoadsStoredState(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.SaveTarget(models.TargetProperty{
		Address:     "Calle Falsa 123",
		SurfaceType: models.SurfacePatio,
	}))
	_, err := st.InsertComparable(models.Comparable{Address: "Comp 1"})
	require.NoError(t, err)

	s := New(st, nil, logrus.New())
	assert.Equal(t, "Calle Falsa 123", s.Target().Address)
	require.Len(t, s.Comparables(), 1)
	assert.Equal(t, "Comp 1", s.Comparables()[0].Address)
}

func TestUpdateTarget_SurfaceTypeResetsFactor(t *testing.T) {
	s := newTestSession()

	updated, err := s.UpdateTarget(TargetPatch{SurfaceType: ptr(models.SurfaceJardin)})
	require.NoError(t, err)
	assert.Equal(t, 0.25, updated.HomogenizationFactor)

	// An explicit factor afterwards sticks.
	updated, err = s.UpdateTarget(TargetPatch{HomogenizationFactor: ptr(0.18)})
	require.NoError(t, err)
	assert.Equal(t, 0.18, updated.HomogenizationFactor)

	// Until the type changes again.
	updated, err = s.UpdateTarget(TargetPatch{SurfaceType: ptr(models.SurfaceTerraza)})
	require.NoError(t, err)
	assert.Equal(t, 0.15, updated.HomogenizationFactor)
}

func TestUpdateTarget_UnknownSurfaceTypeFallsBack(t *testing.T) {
	s := newTestSession()

	updated, err := s.UpdateTarget(TargetPatch{SurfaceType: ptr(models.SurfaceType("Quincho"))})
	require.NoError(t, err)
	assert.Equal(t, models.SurfaceNinguno, updated.SurfaceType)
	assert.Equal(t, 0.0, updated.HomogenizationFactor)
}

func TestUpdateComparable_UnknownSurfaceTypeFallsBack(t *testing.T) {
	s := newTestSession()
	c, err := s.AddComparable()
	require.NoError(t, err)

	updated, err := s.UpdateComparable(c.ID, ComparablePatch{
		SurfaceType: ptr(models.SurfaceType("Quincho")),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SurfaceNinguno, updated.SurfaceType)
	assert.Equal(t, 0.0, updated.HomogenizationFactor)
}

func TestUpdateTarget_ClampsNegativeSurfaces(t *testing.T) {
	s := newTestSession()

	updated, err := s.UpdateTarget(TargetPatch{
		CoveredSurface:   ptr(-5.0),
		UncoveredSurface: ptr(-1.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.CoveredSurface)
	assert.Equal(t, 0.0, updated.UncoveredSurface)
}

func TestAddUpdateDeleteComparable(t *testing.T) {
	s := newTestSession()

	c, err := s.AddComparable()
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Nueva Propiedad", c.Address)
	assert.Equal(t, 100000.0, c.Price)
	assert.Equal(t, 50.0, c.CoveredSurface)
	assert.Equal(t, models.SurfaceNinguno, c.SurfaceType)

	updated, err := s.UpdateComparable(c.ID, ComparablePatch{
		Price:       ptr(250000.0),
		SurfaceType: ptr(models.SurfaceBalcon),
	})
	require.NoError(t, err)
	assert.Equal(t, 250000.0, updated.Price)
	assert.Equal(t, 0.10, updated.HomogenizationFactor)

	require.NoError(t, s.DeleteComparable(c.ID))
	assert.Empty(t, s.Comparables())

	err = s.DeleteComparable("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportComparables_AppendsInOrder(t *testing.T) {
	s := newTestSession()
	_, err := s.AddComparable()
	require.NoError(t, err)

	n, err := s.ImportComparables([]models.Comparable{
		{Address: "Import 1"},
		{Address: "Import 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	comparables := s.Comparables()
	require.Len(t, comparables, 3)
	assert.Equal(t, "Import 1", comparables[1].Address)
	assert.Equal(t, "Import 2", comparables[2].Address)
	assert.NotEmpty(t, comparables[1].ID)
}

func TestValuationPipeline(t *testing.T) {
	s := newTestSession()

	_, err := s.UpdateTarget(TargetPatch{
		Address:        ptr("Calle Falsa 123"),
		CoveredSurface: ptr(80.0),
	})
	require.NoError(t, err)

	_, err = s.ImportComparables([]models.Comparable{
		{Price: 100, CoveredSurface: 1},
		{Price: 200, CoveredSurface: 1},
		{Price: 300, CoveredSurface: 1},
		// Zero homogenized surface: excluded from the statistics.
		{Price: 999999},
	})
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 200.0, stats.Avg)
	assert.Equal(t, 100.0, stats.Min)
	assert.Equal(t, 300.0, stats.Max)
	assert.Equal(t, [3]float64{200, 200, 300}, stats.Terciles)

	v := s.Valuate()
	assert.Equal(t, 16000.0, v.Low)
	assert.Equal(t, 16000.0, v.Market)
	assert.Equal(t, 24000.0, v.High)
}

func TestSaveValuation_Limit(t *testing.T) {
	s := newTestSession()
	_, err := s.UpdateTarget(TargetPatch{Address: ptr("Calle Falsa 123")})
	require.NoError(t, err)

	for i := 0; i < MaxSavedValuations; i++ {
		_, err := s.UpdateTarget(TargetPatch{Address: ptr(fmt.Sprintf("Dirección %d", i))})
		require.NoError(t, err)
		_, err = s.SaveValuation()
		require.NoError(t, err)
	}

	_, err = s.SaveValuation()
	assert.ErrorIs(t, err, ErrSavedLimit)

	saved, err := s.SavedValuations()
	require.NoError(t, err)
	assert.Len(t, saved, MaxSavedValuations)
}

func TestSaveValuation_RequiresAddress(t *testing.T) {
	s := newTestSession()
	_, err := s.SaveValuation()
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestSaveAndLoadValuation(t *testing.T) {
	s := newTestSession()

	_, err := s.UpdateTarget(TargetPatch{
		Address:        ptr("Calle Falsa 123"),
		CoveredSurface: ptr(80.0),
	})
	require.NoError(t, err)
	_, err = s.ImportComparables([]models.Comparable{
		{Address: "Comp 1", Price: 100000, CoveredSurface: 50},
	})
	require.NoError(t, err)

	saved, err := s.SaveValuation()
	require.NoError(t, err)
	assert.Contains(t, saved.Name, "Calle Falsa 123 - ")

	// Mutate the live state, then load the snapshot back.
	require.NoError(t, s.NewValuation())
	assert.Empty(t, s.Target().Address)
	assert.Empty(t, s.Comparables())

	require.NoError(t, s.LoadValuation(saved.ID))
	assert.Equal(t, "Calle Falsa 123", s.Target().Address)
	require.Len(t, s.Comparables(), 1)
	assert.Equal(t, "Comp 1", s.Comparables()[0].Address)
}

func TestLoadValuation_NotFound(t *testing.T) {
	s := newTestSession()
	err := s.LoadValuation("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteValuation(t *testing.T) {
	s := newTestSession()
	_, err := s.UpdateTarget(TargetPatch{Address: ptr("Calle Falsa 123")})
	require.NoError(t, err)

	saved, err := s.SaveValuation()
	require.NoError(t, err)

	require.NoError(t, s.DeleteValuation(saved.ID))
	remaining, err := s.SavedValuations()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// failingStore wraps the memory store and fails every write, to check
// that edits stay applied locally when persistence is down.
type failingStore struct {
	*store.MemoryStore
}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) SaveTarget(models.TargetProperty) error { return errStoreDown }
func (f *failingStore) InsertComparable(c models.Comparable) (models.Comparable, error) {
	return models.Comparable{}, errStoreDown
}

func TestOptimisticApply_PersistFailure(t *testing.T) {
	s := New(&failingStore{store.NewMemoryStore()}, nil, logrus.New())

	updated, err := s.UpdateTarget(TargetPatch{Address: ptr("Calle Falsa 123")})
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Calle Falsa 123", updated.Address)
	// The resident state keeps the edit.
	assert.Equal(t, "Calle Falsa 123", s.Target().Address)

	c, err := s.AddComparable()
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, c.ID)
	assert.Len(t, s.Comparables(), 1)
}
