package models

import (
	"strings"
	"time"
)

// SurfaceType classifies the uncovered surface of a property.
type SurfaceType string

const (
	SurfaceJardin  SurfaceType = "Jardín"
	SurfacePatio   SurfaceType = "Patio"
	SurfaceTerraza SurfaceType = "Terraza"
	SurfaceBalcon  SurfaceType = "Balcón"
	SurfaceNinguno SurfaceType = "Ninguno"
)

// SurfaceTypes is the closed set of accepted surface types.
var SurfaceTypes = []SurfaceType{
	SurfaceJardin,
	SurfacePatio,
	SurfaceTerraza,
	SurfaceBalcon,
	SurfaceNinguno,
}

// DefaultFactors maps each surface type to the market discount applied
// to uncovered area when no explicit factor is given.
var DefaultFactors = map[SurfaceType]float64{
	SurfaceJardin:  0.25,
	SurfacePatio:   0.20,
	SurfaceTerraza: 0.15,
	SurfaceBalcon:  0.10,
	SurfaceNinguno: 0,
}

// ParseSurfaceType matches raw text against the closed enumeration.
// Anything unrecognized, including the empty string, maps to Ninguno.
func ParseSurfaceType(raw string) SurfaceType {
	trimmed := strings.TrimSpace(raw)
	for _, t := range SurfaceTypes {
		if string(t) == trimmed {
			return t
		}
	}
	return SurfaceNinguno
}

type TargetProperty struct {
	Address              string      `json:"address"`
	CoveredSurface       float64     `json:"covered_surface"`
	UncoveredSurface     float64     `json:"uncovered_surface"`
	SurfaceType          SurfaceType `json:"surface_type"`
	HomogenizationFactor float64     `json:"homogenization_factor"`
}

// NewTargetProperty returns the target used for a fresh valuation.
func NewTargetProperty() TargetProperty {
	return TargetProperty{
		SurfaceType:          SurfaceBalcon,
		HomogenizationFactor: DefaultFactors[SurfaceBalcon],
	}
}

type Comparable struct {
	ID                   string      `json:"id"`
	Address              string      `json:"address"`
	Price                float64     `json:"price"`
	CoveredSurface       float64     `json:"covered_surface"`
	UncoveredSurface     float64     `json:"uncovered_surface"`
	SurfaceType          SurfaceType `json:"surface_type"`
	HomogenizationFactor float64     `json:"homogenization_factor"`
	DaysOnMarket         int         `json:"days_on_market"`
}

// NewComparable returns the stub listing created by an explicit "add".
func NewComparable() Comparable {
	return Comparable{
		Address:        "Nueva Propiedad",
		Price:          100000,
		CoveredSurface: 50,
		SurfaceType:    SurfaceNinguno,
	}
}

// SavedValuation is a snapshot of a target and its comparables,
// immutable after creation.
type SavedValuation struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Date        time.Time      `json:"date"`
	Target      TargetProperty `json:"target"`
	Comparables []Comparable   `json:"comparables"`
}

// MarketStats holds the descriptive statistics of the usable
// comparables. Terciles is [t1, avg, t2]: the middle slot carries the
// mean, which is what the low/market/high mapping expects.
type MarketStats struct {
	Avg      float64    `json:"avg"`
	Min      float64    `json:"min"`
	Max      float64    `json:"max"`
	Terciles [3]float64 `json:"terciles"`
}

// Valuation is the suggested price range for the target property.
type Valuation struct {
	Low    float64 `json:"low"`
	Market float64 `json:"market"`
	High   float64 `json:"high"`
}
