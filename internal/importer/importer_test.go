package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasador/server/internal/models"
)

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"U$S 395.000", 395000},
		{"$ 1.250.000", 1250000},
		{"0,25", 0.25},
		{"85 m²", 85},
		{"120", 120},
		{"", 0},
		{"n/a", 0},
		// Lossy for the US convention, as documented: the dot is
		// always a thousands separator.
		{"1,234.56", 1.23456},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanNumber(tt.in), "input %q", tt.in)
	}
}

func TestParsePositionalCSV(t *testing.T) {
	csvText := `,Calle Falsa 123,150000,50,10,Balcón,0.1,45`

	comparables, err := ParsePositionalCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, comparables, 1)

	c := comparables[0]
	assert.Equal(t, "Calle Falsa 123", c.Address)
	assert.Equal(t, 150000.0, c.Price)
	assert.Equal(t, 50.0, c.CoveredSurface)
	assert.Equal(t, 10.0, c.UncoveredSurface)
	assert.Equal(t, models.SurfaceBalcon, c.SurfaceType)
	assert.Equal(t, 0.1, c.HomogenizationFactor)
	assert.Equal(t, 45, c.DaysOnMarket)
}

func TestParsePositionalCSV_ShortRowDropped(t *testing.T) {
	csvText := ",Calle Falsa 123,150000,50,10,Balcón,0.1,45\n" +
		",Solo tres,columnas\n" +
		",Av. Siempreviva 742,200000,80,0,Ninguno,0,12\n"

	comparables, err := ParsePositionalCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, comparables, 2)
	assert.Equal(t, "Calle Falsa 123", comparables[0].Address)
	assert.Equal(t, "Av. Siempreviva 742", comparables[1].Address)
}

func TestParsePositionalCSV_Defaults(t *testing.T) {
	// Unparsable numerics become 0; a non-numeric factor falls back to
	// the default of the resolved type; unknown types become Ninguno.
	csvText := `,Calle X,abc,xx,yy,Jardín,?,zz`

	comparables, err := ParsePositionalCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, comparables, 1)

	c := comparables[0]
	assert.Equal(t, 0.0, c.Price)
	assert.Equal(t, 0.0, c.CoveredSurface)
	assert.Equal(t, 0.0, c.UncoveredSurface)
	assert.Equal(t, models.SurfaceJardin, c.SurfaceType)
	assert.Equal(t, 0.25, c.HomogenizationFactor)
	assert.Equal(t, 0, c.DaysOnMarket)

	csvText = `,Calle Y,100000,50,0,Quincho,0.3,5`
	comparables, err = ParsePositionalCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, comparables, 1)
	assert.Equal(t, models.SurfaceNinguno, comparables[0].SurfaceType)
	assert.Equal(t, 0.3, comparables[0].HomogenizationFactor)
}

func TestParseHeaderRows(t *testing.T) {
	rows := []map[string]string{
		{
			"Dirección":        "Calle Falsa 123",
			"Precio":           "U$S 395.000",
			"Sup. Cubierta":    "80 m²",
			"Sup. Descubierta": "20",
			"Tipo Sup":         "Terraza",
			"Factor":           "0,25",
			"Días":             "30",
		},
	}

	comparables := ParseHeaderRows(rows)
	require.Len(t, comparables, 1)

	c := comparables[0]
	assert.Equal(t, "Calle Falsa 123", c.Address)
	assert.Equal(t, 395000.0, c.Price)
	assert.Equal(t, 80.0, c.CoveredSurface)
	assert.Equal(t, 20.0, c.UncoveredSurface)
	assert.Equal(t, models.SurfaceTerraza, c.SurfaceType)
	assert.Equal(t, 0.25, c.HomogenizationFactor)
	assert.Equal(t, 30, c.DaysOnMarket)
}

func TestParseHeaderRows_EnglishAliases(t *testing.T) {
	rows := []map[string]string{
		{
			"Address":         "10 Main St",
			"Price":           "250000",
			"Covered Surface": "60",
			"Surface Type":    "Patio",
			"Days":            "15",
		},
	}

	comparables := ParseHeaderRows(rows)
	require.Len(t, comparables, 1)

	c := comparables[0]
	assert.Equal(t, "10 Main St", c.Address)
	assert.Equal(t, 250000.0, c.Price)
	assert.Equal(t, models.SurfacePatio, c.SurfaceType)
	// No factor column: default for Patio.
	assert.Equal(t, 0.20, c.HomogenizationFactor)
}

func TestParseHeaderRows_SkipAndFallback(t *testing.T) {
	rows := []map[string]string{
		// Neither address nor price: dropped.
		{"Tipo Sup": "Jardín", "Días": "3"},
		// Price but no address: kept with the placeholder address.
		{"Precio": "100.000"},
	}

	comparables := ParseHeaderRows(rows)
	require.Len(t, comparables, 1)
	assert.Equal(t, "Sin dirección", comparables[0].Address)
	assert.Equal(t, 100000.0, comparables[0].Price)
	assert.Equal(t, models.SurfaceNinguno, comparables[0].SurfaceType)
}

func TestParseHeaderCSV(t *testing.T) {
	csvText := "Dirección,Precio,Sup. Cubierta,Sup. Descubierta,Tipo Sup,Factor,Días\n" +
		"Calle Falsa 123,\"U$S 395.000\",80,20,Terraza,\"0,25\",30\n" +
		",,,,,,\n"

	comparables, err := ParseHeaderCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, comparables, 1)
	assert.Equal(t, "Calle Falsa 123", comparables[0].Address)
	assert.Equal(t, 395000.0, comparables[0].Price)
}

func TestPositionalRoundTrip(t *testing.T) {
	original := []models.Comparable{
		{
			ID:                   "abc",
			Address:              "Calle Falsa 123",
			Price:                150000,
			CoveredSurface:       50,
			UncoveredSurface:     10,
			SurfaceType:          models.SurfaceBalcon,
			HomogenizationFactor: 0.1,
			DaysOnMarket:         45,
		},
		{
			Address:     "Av. Siempreviva 742",
			Price:       200000,
			SurfaceType: models.SurfaceNinguno,
		},
	}

	var buf strings.Builder
	require.NoError(t, WritePositionalCSV(&buf, original))

	reimported, err := ParsePositionalCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, reimported, len(original))

	for i, c := range reimported {
		want := original[i]
		want.ID = "" // the id does not survive the positional form
		assert.Equal(t, want, c)
	}
}

func TestClipboardTSV(t *testing.T) {
	comparables := []models.Comparable{
		{
			ID:                   "comp-1",
			Address:              "Calle Falsa 123",
			Price:                150000,
			CoveredSurface:       50,
			UncoveredSurface:     10,
			SurfaceType:          models.SurfaceBalcon,
			HomogenizationFactor: 0.1,
			DaysOnMarket:         45,
		},
	}

	out, err := ClipboardTSV(comparables)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"ID\tDirección\tPrecio\tSup. Cubierta\tSup. Descubierta\tTipo Sup\tFactor\tDías",
		lines[0])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 8)
	assert.Equal(t, "comp-1", fields[0])
	assert.Equal(t, "Calle Falsa 123", fields[1])
	assert.Equal(t, "150000", fields[2])
	assert.Equal(t, "Balcón", fields[5])
	assert.Equal(t, "0.1", fields[6])
	assert.Equal(t, "45", fields[7])
}
