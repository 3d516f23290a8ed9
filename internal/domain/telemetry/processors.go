package telemetry

import (
	"math"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Processor rewrites a freshly coerced value before it is stored.
type Processor func(types.Value) types.Value

// Ids of values that arrive in raw sensor units.
const (
	VehicleSpeedID = "vdtvehiclespeed"
	EngineSpeedID  = "vdtenginespeed"
)

// DefaultProcessors converts raw vehicle speed to km/h and raw engine speed
// to rpm.
func DefaultProcessors() map[string]Processor {
	return map[string]Processor{
		VehicleSpeedID: Scale(0.01),
		EngineSpeedID:  Scale(2.25),
	}
}

// Scale multiplies numeric values by factor and rounds the result.
// Non-numeric values pass through.
func Scale(factor float64) Processor {
	return func(v types.Value) types.Value {
		if !v.IsNumber() {
			return v
		}
		return types.Number(round(v.Float() * factor))
	}
}

// ToMPH converts km/h to whole miles per hour.
func ToMPH(kmh float64) float64 {
	return round(kmh * 0.621371)
}

// ScaleValue maps value from the range from onto the range to.
func ScaleValue(value float64, from, to [2]float64) float64 {
	return (value-from[0])*(to[1]-to[0])/(from[1]-from[0]) + to[0]
}

// round rounds half up, so -2.5 becomes -2.
func round(f float64) float64 {
	return math.Floor(f + 0.5)
}
