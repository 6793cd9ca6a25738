package mission

import "fmt"

// Quantity identifies a measured physical quantity. Normalization ranges are
// keyed by quantity, so the same quantity normalizes identically for every mission.
type Quantity int

const (
	Period Quantity = iota
	Duration
	PlanetRadius
	StellarRadius
	EffectiveTemperature
	TransitDepth
	Eccentricity
	SignalToNoise
	SurfaceGravity
	StellarMass
)

var quantityNames = [...]string{
	Period:               "period",
	Duration:             "duration",
	PlanetRadius:         "planet_radius",
	StellarRadius:        "stellar_radius",
	EffectiveTemperature: "effective_temperature",
	TransitDepth:         "transit_depth",
	Eccentricity:         "eccentricity",
	SignalToNoise:        "signal_to_noise",
	SurfaceGravity:       "surface_gravity",
	StellarMass:          "stellar_mass",
}

func (q Quantity) String() string {
	if q < 0 || int(q) >= len(quantityNames) {
		return fmt.Sprintf("quantity(%d)", int(q))
	}
	return quantityNames[q]
}

// Range is the expected physical range of a quantity. It is fixed, not learned.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

var ranges = [...]Range{
	Period:               {Min: 0.5, Max: 500},   // days
	Duration:             {Min: 0.5, Max: 24},    // hours
	PlanetRadius:         {Min: 0.5, Max: 20},    // Earth radii
	StellarRadius:        {Min: 0.1, Max: 10},    // solar radii
	EffectiveTemperature: {Min: 3000, Max: 8000}, // K
	TransitDepth:         {Min: 10, Max: 10000},  // ppm
	Eccentricity:         {Min: 0, Max: 1},
	SignalToNoise:        {Min: 1, Max: 100},
	SurfaceGravity:       {Min: 3.0, Max: 5.0}, // log10(cm/s^2)
	StellarMass:          {Min: 0.1, Max: 3.0}, // solar masses
}

// RangeOf returns the normalization range for q.
func RangeOf(q Quantity) Range {
	if q < 0 || int(q) >= len(ranges) {
		return Range{Min: 0, Max: 1}
	}
	return ranges[q]
}

// Defaults substituted for absent optional fields.
const (
	DefaultEccentricity   = 0.0
	DefaultSignalToNoise  = 10.0
	DefaultSurfaceGravity = 4.4
	DefaultStellarRadius  = 1.0
	DefaultStellarMass    = 1.0
)

// Normalize maps value affinely so that r.Min -> 0 and r.Max -> 1.
// Values outside the range are not clamped.
func Normalize(value float64, r Range) float64 {
	return (value - r.Min) / (r.Max - r.Min)
}

// Denormalize is the inverse of Normalize.
func Denormalize(normalized float64, r Range) float64 {
	return normalized*(r.Max-r.Min) + r.Min
}
