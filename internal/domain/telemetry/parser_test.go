package telemetry

import (
	"testing"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr error
	}{
		{
			name: "int",
			line: "VehicleSpeed (int, 4): 4200",
			want: Entry{Name: "VehicleSpeed", Type: "int", Raw: "4200"},
		},
		{
			name: "double with fraction",
			line: "Latitude (double, 8): 37, 774929",
			want: Entry{Name: "Latitude", Type: "double", Raw: "37.774929"},
		},
		{
			name: "double without fraction",
			line: "Altitude (Double, 8): 12.5",
			want: Entry{Name: "Altitude", Type: "Double", Raw: "12.5"},
		},
		{
			name: "string",
			line: "  Region (string, 2): eu ",
			want: Entry{Name: "Region", Type: "string", Raw: "eu"},
		},
		{
			name: "empty value is kept",
			line: "Gear (int, 4): ",
			want: Entry{Name: "Gear", Type: "int", Raw: ""},
		},
		{name: "binary", line: "Blob (binary, 16): 00ff", wantErr: types.ErrBinaryEntry},
		{name: "too few tokens", line: "garbage line", wantErr: types.ErrParse},
		{name: "empty", line: "", wantErr: types.ErrParse},
		{name: "missing type", line: "Name (, 4): 1", wantErr: types.ErrParse},
		{name: "missing name", line: " (int, 4): 1", wantErr: types.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSnapshot(t *testing.T) {
	text := "VehicleSpeed (int, 4): 4200\r\n" +
		"Blob (binary, 16): 00\n" +
		"not a value\n" +
		"EngineSpeed (int, 4): 1000\n"

	entries, stats := ParseSnapshot(text, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "VehicleSpeed", entries[0].Name)
	assert.Equal(t, "4200", entries[0].Raw)
	assert.Equal(t, "EngineSpeed", entries[1].Name)

	assert.Equal(t, ParseStats{Lines: 4, Entries: 2, Binary: 1, Skipped: 1}, stats)
}

const gpsDump = `GPS
header
int 1467312345
double 37.774929
double -122.419418
int 16
double 45.5
int 0
`

func TestGPSFilter(t *testing.T) {
	lines := GPSFilter(splitLines(gpsDump))
	assert.Equal(t, []string{
		"Timestamp (int, 4): 1467312345",
		"Latitude (double, 4): 37.774929",
		"Longitude (double, 4): -122.419418",
		"Altitude (int, 4): 16",
		"Heading (double, 4): 45.5",
		"Velocity (int, 4): 0",
	}, lines)
}

func TestGPSFilterSkipsMissingLines(t *testing.T) {
	lines := GPSFilter([]string{"a", "b", "int 5", "double"})
	assert.Equal(t, []string{"Timestamp (int, 4): 5"}, lines)
}

func TestParseSnapshotWithGPSFilter(t *testing.T) {
	f, err := LookupFilter("GPS")
	require.NoError(t, err)

	entries, stats := ParseSnapshot(gpsDump, f)
	require.Len(t, entries, 6)
	assert.Equal(t, Entry{Name: "Latitude", Type: "double", Raw: "37.774929"}, entries[1])
	assert.Equal(t, Entry{Name: "Longitude", Type: "double", Raw: "-122.419418"}, entries[2])
	assert.Equal(t, 0, stats.Skipped)
}

func TestLookupFilter(t *testing.T) {
	f, err := LookupFilter("")
	assert.NoError(t, err)
	assert.Nil(t, f)

	_, err = LookupFilter("can")
	assert.ErrorIs(t, err, types.ErrUnknownFilter)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func TestParseSnapshotTrailingNewline(t *testing.T) {
	_, stats := ParseSnapshot("Gear (string, 1): D\n", nil)
	assert.Equal(t, ParseStats{Lines: 1, Entries: 1}, stats)

	_, stats = ParseSnapshot("Gear (string, 1): D\n\n", nil)
	assert.Equal(t, ParseStats{Lines: 2, Entries: 1, Skipped: 1}, stats)

	entries, stats := ParseSnapshot("", nil)
	assert.Empty(t, entries)
	assert.Equal(t, ParseStats{}, stats)
}
