package importer

import (
	"encoding/csv"
	"io"
	"strings"

	"tasador/server/internal/models"
)

// Canonical fields of a header-keyed row.
const (
	fieldAddress   = "address"
	fieldPrice     = "price"
	fieldCovered   = "covered"
	fieldUncovered = "uncovered"
	fieldType      = "type"
	fieldFactor    = "factor"
	fieldDays      = "days"
)

// missingAddress is the placeholder for rows that carry a price but no
// address.
const missingAddress = "Sin dirección"

// headerAliases maps each canonical field to its recognized header
// names, in match order. Spreadsheets arrive with either Spanish or
// English headers.
var headerAliases = []struct {
	field   string
	aliases []string
}{
	{fieldAddress, []string{"Dirección", "Address"}},
	{fieldPrice, []string{"Precio", "Price"}},
	{fieldCovered, []string{"Sup. Cubierta", "Covered Surface"}},
	{fieldUncovered, []string{"Sup. Descubierta", "Uncovered Surface"}},
	{fieldType, []string{"Tipo Sup", "Surface Type"}},
	{fieldFactor, []string{"Factor"}},
	{fieldDays, []string{"Días", "Days"}},
}

// resolveField returns the first alias of the canonical field present
// in the row.
func resolveField(row map[string]string, field string) string {
	for _, mapping := range headerAliases {
		if mapping.field != field {
			continue
		}
		for _, alias := range mapping.aliases {
			if v, ok := row[alias]; ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// ParseHeaderRows normalizes header-keyed rows (a fetched spreadsheet
// export) into comparables. A row survives as long as it has an
// address or a price; everything else degrades to defaults.
func ParseHeaderRows(rows []map[string]string) []models.Comparable {
	var comparables []models.Comparable
	for _, row := range rows {
		address := strings.TrimSpace(resolveField(row, fieldAddress))
		priceRaw := resolveField(row, fieldPrice)
		if address == "" && strings.TrimSpace(priceRaw) == "" {
			continue
		}
		if address == "" {
			address = missingAddress
		}

		surfaceType := models.ParseSurfaceType(resolveField(row, fieldType))

		var factor float64
		if factorRaw := resolveField(row, fieldFactor); factorRaw != "" {
			factor = CleanNumber(factorRaw)
		}

		comparables = append(comparables, models.Comparable{
			Address:              address,
			Price:                CleanNumber(priceRaw),
			CoveredSurface:       CleanNumber(resolveField(row, fieldCovered)),
			UncoveredSurface:     CleanNumber(resolveField(row, fieldUncovered)),
			SurfaceType:          surfaceType,
			HomogenizationFactor: resolveFactor(factor, surfaceType),
			DaysOnMarket:         int(CleanNumber(resolveField(row, fieldDays))),
		})
	}
	return comparables
}

// ParseHeaderCSV reads CSV text whose first row is a header line and
// feeds the keyed rows through ParseHeaderRows. Header cells are
// trimmed before matching; short rows keep whatever columns they have.
func ParseHeaderCSV(r io.Reader) ([]models.Comparable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(header))
		for i, value := range record {
			if i >= len(header) {
				break
			}
			row[header[i]] = value
		}
		rows = append(rows, row)
	}
	return ParseHeaderRows(rows), nil
}
