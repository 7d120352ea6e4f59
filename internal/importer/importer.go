package importer

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"tasador/server/internal/models"
)

// Positional CSV layout (no header row):
// [ignored, address, price, covered, uncovered, surface type, factor, days].
const positionalColumns = 8

// CleanNumber turns a spreadsheet token into a float. It strips
// currency and unit symbols (U$S, $, m²) plus whitespace, then treats
// every '.' as a thousands separator and ',' as the decimal point,
// following the Latin-American convention. US-style "1,234.56" will
// misparse; that matches the documented behavior and is not corrected
// here. Anything still unparsable yields 0.
func CleanNumber(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case 'U', 'u', '$', 's', 'S', 'D', 'd', 'm', '²':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// parseFloat is the plain parser used for positional rows, where
// values carry no currency or locale decoration. Unparsable input
// yields 0.
func parseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

// resolveFactor applies the parsed factor when it is positive,
// otherwise the default for the surface type. The final fallback of 1
// cannot be reached while the enumeration stays closed.
func resolveFactor(parsed float64, surfaceType models.SurfaceType) float64 {
	if parsed > 0 {
		return parsed
	}
	if d, ok := models.DefaultFactors[surfaceType]; ok {
		return d
	}
	return 1
}

// ParsePositionalCSV reads headerless 8-column rows into comparables.
// Rows with fewer columns are dropped silently; extra columns are
// ignored. Output order follows input order.
func ParsePositionalCSV(r io.Reader) ([]models.Comparable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var comparables []models.Comparable
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < positionalColumns {
			continue
		}

		surfaceType := models.ParseSurfaceType(record[5])

		// A factor that is not a number falls back to the type
		// default; an explicit numeric value, including 0, is kept.
		factor, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
		if err != nil || math.IsNaN(factor) {
			factor = models.DefaultFactors[surfaceType]
		}

		comparables = append(comparables, models.Comparable{
			Address:              strings.TrimSpace(record[1]),
			Price:                parseFloat(record[2]),
			CoveredSurface:       parseFloat(record[3]),
			UncoveredSurface:     parseFloat(record[4]),
			SurfaceType:          surfaceType,
			HomogenizationFactor: factor,
			DaysOnMarket:         int(parseFloat(record[7])),
		})
	}
	return comparables, nil
}
