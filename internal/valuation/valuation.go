package valuation

import (
	"sort"

	"github.com/montanaflynn/stats"

	"tasador/server/internal/models"
)

// Homogenize folds covered and uncovered area into one comparable
// surface. The factor encodes the market discount for uncovered space.
// No clamping happens here; bad input is cleaned at the data-entry
// boundary.
func Homogenize(covered, uncovered, factor float64) float64 {
	return covered + uncovered*factor
}

// NormalizePrice converts an absolute price into price per homogenized
// square meter. A zero surface yields 0, which marks the comparable as
// unusable; callers must filter those out rather than treat 0 as a
// real price.
func NormalizePrice(price, hSurface float64) float64 {
	if hSurface == 0 {
		return 0
	}
	return price / hSurface
}

// ProcessedComparable is a Comparable with its derived figures
// attached. The derived fields are recomputed on every use, never
// stored.
type ProcessedComparable struct {
	models.Comparable
	HSurface float64 `json:"h_surface"`
	HPrice   float64 `json:"h_price"`
}

// Process attaches the homogenized surface and normalized price to a
// comparable.
func Process(c models.Comparable) ProcessedComparable {
	hSurface := Homogenize(c.CoveredSurface, c.UncoveredSurface, c.HomogenizationFactor)
	return ProcessedComparable{
		Comparable: c,
		HSurface:   hSurface,
		HPrice:     NormalizePrice(c.Price, hSurface),
	}
}

// ProcessAll derives figures for every comparable, keeping input order.
func ProcessAll(comparables []models.Comparable) []ProcessedComparable {
	processed := make([]ProcessedComparable, len(comparables))
	for i, c := range comparables {
		processed[i] = Process(c)
	}
	return processed
}

// ComputeStats aggregates the usable comparables (hPrice > 0) into
// market statistics. An empty usable set is a defined outcome and
// returns all-zero stats.
//
// The tercile cut points use index-based nearest-rank selection:
// t1 = sorted[floor(n/3)], t2 = sorted[floor(2n/3)]. The middle slot
// of Terciles intentionally holds the mean, not a second tercile
// boundary; the valuation mapping depends on that shape.
func ComputeStats(comparables []models.Comparable) models.MarketStats {
	var prices []float64
	for _, c := range comparables {
		if p := Process(c); p.HPrice > 0 {
			prices = append(prices, p.HPrice)
		}
	}
	if len(prices) == 0 {
		return models.MarketStats{}
	}

	sort.Float64s(prices)

	avg, _ := stats.Mean(prices)
	min, _ := stats.Min(prices)
	max, _ := stats.Max(prices)

	n := len(prices)
	t1 := prices[n/3]
	t2 := prices[2*n/3]

	return models.MarketStats{
		Avg:      avg,
		Min:      min,
		Max:      max,
		Terciles: [3]float64{t1, avg, t2},
	}
}

// Estimate maps market statistics onto the target property's
// homogenized surface. A zero surface yields a zero valuation
// regardless of the statistics.
func Estimate(s models.MarketStats, targetHSurface float64) models.Valuation {
	if targetHSurface == 0 {
		return models.Valuation{}
	}
	return models.Valuation{
		Low:    s.Terciles[0] * targetHSurface,
		Market: s.Avg * targetHSurface,
		High:   s.Terciles[2] * targetHSurface,
	}
}
