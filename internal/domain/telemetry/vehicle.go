package telemetry

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Input describes how a value is presented in a simulator or settings UI.
type Input string

const (
	InputNone  Input = ""
	InputList  Input = "list"
	InputRange Input = "range"
)

// Descriptor documents a well-known data point.
type Descriptor struct {
	ID           string            `json:"id"`
	Group        string            `json:"group"`
	Key          string            `json:"key"`
	FriendlyName string            `json:"friendly_name"`
	Input        Input             `json:"input,omitempty"`
	Min          float64           `json:"min,omitempty"`
	Max          float64           `json:"max,omitempty"`
	Step         float64           `json:"step,omitempty"`
	Factor       float64           `json:"factor,omitempty"`
	Values       map[string]string `json:"values,omitempty"`
}

// CanonicalID returns the registry id for the descriptor.
func (d Descriptor) CanonicalID() string {
	return strings.ToLower(d.ID)
}

// Label resolves a raw code through the descriptor's value list. Unknown
// codes come back unchanged.
func (d Descriptor) Label(v types.Value) string {
	if label, ok := d.Values[v.String()]; ok {
		return label
	}
	return v.String()
}

// Brand and vehicle type codes reported in the settings table.
var (
	VehicleBrands = map[string]string{
		"7": "Mazda",
	}

	VehicleTypes = map[string]string{
		"109": "3 Sport",
		"110": "3 Touring",
		"111": "3 Grand Touring",
		"112": "6 Sport",
		"113": "6 Touring",
		"114": "6 Grand Touring",
	}
)

func regionValues() map[string]string {
	out := make(map[string]string, len(types.Regions))
	for code, name := range types.Regions {
		out[string(code)] = name
	}
	return out
}

var catalogue = []Descriptor{
	{ID: "VDTSBrand", Group: "general", Key: "brand", FriendlyName: "Vehicle Brand", Input: InputList, Values: VehicleBrands},
	{ID: "VDTSVehicle_Type", Group: "general", Key: "type", FriendlyName: "Vehicle Type", Input: InputList, Values: VehicleTypes},
	{ID: "SYSRegion", Group: "general", Key: "region", FriendlyName: "Region", Input: InputList, Values: regionValues()},

	{ID: "VDTVehicleSpeed", Group: "vehicle", Key: "speed", FriendlyName: "Vehicle Speed", Input: InputRange, Min: 0, Max: 240, Factor: 0.01},
	{ID: "VDTEngineSpeed", Group: "vehicle", Key: "rpm", FriendlyName: "Engine RPM", Input: InputRange, Min: 0, Max: 8000, Factor: 2.25},

	{ID: "GPSLatitude", Group: "gps", Key: "latitude", FriendlyName: "Latitude"},
	{ID: "GPSLongitude", Group: "gps", Key: "longitude", FriendlyName: "Longitude"},
	{ID: "GPSAltitude", Group: "gps", Key: "altitude", FriendlyName: "Altitude"},
	{ID: "GPSHeading", Group: "gps", Key: "heading", FriendlyName: "Heading", Input: InputRange, Min: 0, Max: 360, Step: 45},
	{ID: "GPSVelocity", Group: "gps", Key: "velocity", FriendlyName: "Velocity"},
	{ID: "GPSTimestamp", Group: "gps", Key: "timestamp", FriendlyName: "Timestamp"},
}

// Catalogue returns the well-known data points sorted by group and key.
func Catalogue() []Descriptor {
	out := make([]Descriptor, len(catalogue))
	copy(out, catalogue)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Describe looks up a well-known data point by id, case-insensitively.
func Describe(id string) (Descriptor, bool) {
	id = strings.ToLower(id)
	for _, d := range catalogue {
		if d.CanonicalID() == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
