package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"tasador/server/internal/models"
)

// WritePositionalCSV serializes comparables in the fixed 8-column
// import layout. The first column is always an empty placeholder; the
// persistence id is not part of this form, so a re-import reproduces
// every field except the id.
func WritePositionalCSV(w io.Writer, comparables []models.Comparable) error {
	writer := csv.NewWriter(w)
	for _, c := range comparables {
		record := []string{
			"",
			c.Address,
			formatFloat(c.Price),
			formatFloat(c.CoveredSurface),
			formatFloat(c.UncoveredSurface),
			string(c.SurfaceType),
			formatFloat(c.HomogenizationFactor),
			strconv.Itoa(c.DaysOnMarket),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// clipboardRow is the header-keyed shape pasted into spreadsheet
// tools. Unlike the positional form it retains the persistence id.
type clipboardRow struct {
	ID        string  `csv:"ID"`
	Address   string  `csv:"Dirección"`
	Price     float64 `csv:"Precio"`
	Covered   float64 `csv:"Sup. Cubierta"`
	Uncovered float64 `csv:"Sup. Descubierta"`
	Type      string  `csv:"Tipo Sup"`
	Factor    float64 `csv:"Factor"`
	Days      int     `csv:"Días"`
}

// ClipboardTSV serializes comparables as tab-delimited header-keyed
// rows for clipboard paste.
func ClipboardTSV(comparables []models.Comparable) (string, error) {
	rows := make([]clipboardRow, len(comparables))
	for i, c := range comparables {
		rows[i] = clipboardRow{
			ID:        c.ID,
			Address:   c.Address,
			Price:     c.Price,
			Covered:   c.CoveredSurface,
			Uncovered: c.UncoveredSurface,
			Type:      string(c.SurfaceType),
			Factor:    c.HomogenizationFactor,
			Days:      c.DaysOnMarket,
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = '\t'
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
