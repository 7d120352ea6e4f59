package report

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"tasador/server/internal/valuation"
)

// Geocoder resolves a listing address to WGS84 coordinates.
type Geocoder interface {
	GeocodeAddress(address string) (lat, lon float64, err error)
}

// Marker is one mappable comparable, priced per homogenized square meter.
type Marker struct {
	ID        string  `json:"id"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Price     float64 `json:"price"`
	HPrice    float64 `json:"h_price"`
}

// MapData is the report map payload: every geocodable comparable plus
// the bounding box and center the client should frame.
type MapData struct {
	Markers []Marker      `json:"markers"`
	Bounds  [2][2]float64 `json:"bounds"` // [[minLat, minLon], [maxLat, maxLon]]
	Center  [2]float64    `json:"center"`
	Skipped int           `json:"skipped"`
}

type Builder struct {
	logger   *logrus.Logger
	geocoder Geocoder
}

func NewBuilder(logger *logrus.Logger, geocoder Geocoder) *Builder {
	return &Builder{
		logger:   logger,
		geocoder: geocoder,
	}
}

// Build geocodes the processed comparables and computes the map frame.
// Comparables that fail to geocode are counted and skipped rather than
// failing the whole report.
func (b *Builder) Build(comparables []valuation.ProcessedComparable) (*MapData, error) {
	data := &MapData{
		Markers: make([]Marker, 0, len(comparables)),
	}

	var points []orb.Point
	for _, comp := range comparables {
		if comp.Address == "" {
			data.Skipped++
			continue
		}

		lat, lon, err := b.geocoder.GeocodeAddress(comp.Address)
		if err != nil {
			b.logger.WithError(err).WithField("address", comp.Address).Warn("Skipping comparable on map")
			data.Skipped++
			continue
		}

		data.Markers = append(data.Markers, Marker{
			ID:        comp.ID,
			Address:   comp.Address,
			Latitude:  lat,
			Longitude: lon,
			Price:     comp.Price,
			HPrice:    comp.HPrice,
		})
		points = append(points, orb.Point{lon, lat})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no comparables could be placed on the map")
	}

	bound := orb.MultiPoint(points).Bound()
	center := bound.Center()

	data.Bounds = [2][2]float64{
		{bound.Min.Lat(), bound.Min.Lon()},
		{bound.Max.Lat(), bound.Max.Lon()},
	}
	data.Center = [2]float64{center.Lat(), center.Lon()}

	return data, nil
}

// GeoJSON renders the markers as a feature collection for clients that
// consume standard GeoJSON instead of the map payload.
func (b *Builder) GeoJSON(data *MapData) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, m := range data.Markers {
		feature := geojson.NewFeature(orb.Point{m.Longitude, m.Latitude})
		feature.Properties = geojson.Properties{
			"id":      m.ID,
			"address": m.Address,
			"price":   m.Price,
			"h_price": m.HPrice,
		}
		fc.Append(feature)
	}
	return fc.MarshalJSON()
}
