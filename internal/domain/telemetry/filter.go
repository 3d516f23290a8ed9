package telemetry

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Filter rewrites raw snapshot lines before parsing.
type Filter func(lines []string) []string

// FilterGPS names the GPS filter.
const FilterGPS = "gps"

var filters = map[string]Filter{
	FilterGPS: GPSFilter,
}

// LookupFilter resolves a filter by name. The empty name means no filter.
func LookupFilter(name string) (Filter, error) {
	if name == "" {
		return nil, nil
	}
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownFilter, name)
	}
	return f, nil
}

// gpsFields lists GPS snapshot fields by the line they occupy.
var gpsFields = []struct {
	name string
	line int
}{
	{"Timestamp", 2},
	{"Latitude", 3},
	{"Longitude", 4},
	{"Altitude", 5},
	{"Heading", 6},
	{"Velocity", 7},
}

// GPSFilter turns the positional GPS dump, where each line holds
// "<kind> <value>", into regular snapshot lines.
func GPSFilter(lines []string) []string {
	out := make([]string, 0, len(gpsFields))
	for _, f := range gpsFields {
		if f.line >= len(lines) {
			continue
		}
		fields := strings.Split(strings.TrimSpace(lines[f.line]), " ")
		if len(fields) < 2 || fields[1] == "" {
			continue
		}
		typ := "int"
		if fields[0] == "double" {
			typ = "double"
		}
		out = append(out, fmt.Sprintf("%s (%s, 4): %s", f.name, typ, strings.TrimSpace(fields[1])))
	}
	return out
}
