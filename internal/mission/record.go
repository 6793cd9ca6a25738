package mission

// RawRecord maps field names to values as submitted by a caller.
type RawRecord map[string]float64

// Measurement is one normalizable value of a record.
type Measurement struct {
	Field    string
	Quantity Quantity
	Value    float64
}

// Record is a validated, mission-specific set of measurements. It is
// implemented by KeplerRecord, K2Record and TessRecord only.
type Record interface {
	Mission() ID
	// Measurements returns the core measurements in slot order with
	// defaults substituted for absent optional fields.
	Measurements() []Measurement
	isRecord()
}

// KeplerRecord is a Kepler Objects of Interest row.
type KeplerRecord struct {
	OrbitalPeriod        float64  `json:"orbital_period"`
	TransitDuration      float64  `json:"transit_duration"`
	PlanetRadius         float64  `json:"planet_radius"`
	StarRadius           *float64 `json:"star_radius,omitempty"`
	EffectiveTemperature float64  `json:"stellar_effective_temperature"`
	TransitDepth         float64  `json:"transit_depth"`
	Eccentricity         *float64 `json:"eccentricity,omitempty"`
	SignalToNoise        *float64 `json:"signal_to_noise,omitempty"`
}

func (KeplerRecord) Mission() ID { return Kepler }
func (KeplerRecord) isRecord()   {}

func (r KeplerRecord) Measurements() []Measurement {
	return []Measurement{
		{"orbital_period", Period, r.OrbitalPeriod},
		{"transit_duration", Duration, r.TransitDuration},
		{"planet_radius", PlanetRadius, r.PlanetRadius},
		{"star_radius", StellarRadius, orDefault(r.StarRadius, DefaultStellarRadius)},
		{"stellar_effective_temperature", EffectiveTemperature, r.EffectiveTemperature},
		{"transit_depth", TransitDepth, r.TransitDepth},
		{"eccentricity", Eccentricity, orDefault(r.Eccentricity, DefaultEccentricity)},
		{"signal_to_noise", SignalToNoise, orDefault(r.SignalToNoise, DefaultSignalToNoise)},
	}
}

// K2Record is a K2 Planets and Candidates row.
type K2Record struct {
	OrbitalPeriod        float64  `json:"orbital_period"`
	PlanetRadius         float64  `json:"planet_radius"`
	TransitDuration      float64  `json:"transit_duration"`
	EffectiveTemperature float64  `json:"stellar_effective_temperature"`
	StarRadius           *float64 `json:"star_radius,omitempty"`
	StellarMass          *float64 `json:"stellar_mass,omitempty"`
	SurfaceGravity       *float64 `json:"stellar_surface_gravity,omitempty"`
}

func (K2Record) Mission() ID { return K2 }
func (K2Record) isRecord()   {}

func (r K2Record) Measurements() []Measurement {
	return []Measurement{
		{"orbital_period", Period, r.OrbitalPeriod},
		{"planet_radius", PlanetRadius, r.PlanetRadius},
		{"transit_duration", Duration, r.TransitDuration},
		{"stellar_effective_temperature", EffectiveTemperature, r.EffectiveTemperature},
		{"star_radius", StellarRadius, orDefault(r.StarRadius, DefaultStellarRadius)},
		{"stellar_mass", StellarMass, orDefault(r.StellarMass, DefaultStellarMass)},
		{"stellar_surface_gravity", SurfaceGravity, orDefault(r.SurfaceGravity, DefaultSurfaceGravity)},
	}
}

// TessRecord is a TESS Objects of Interest row.
type TessRecord struct {
	OrbitalPeriod        float64  `json:"orbital_period"`
	TransitDuration      float64  `json:"transit_duration"`
	TransitDepth         float64  `json:"transit_depth"`
	PlanetRadius         float64  `json:"planet_radius"`
	EffectiveTemperature float64  `json:"stellar_effective_temperature"`
	SurfaceGravity       *float64 `json:"stellar_surface_gravity,omitempty"`
}

func (TessRecord) Mission() ID { return TESS }
func (TessRecord) isRecord()   {}

func (r TessRecord) Measurements() []Measurement {
	return []Measurement{
		{"orbital_period", Period, r.OrbitalPeriod},
		{"transit_duration", Duration, r.TransitDuration},
		{"transit_depth", TransitDepth, r.TransitDepth},
		{"planet_radius", PlanetRadius, r.PlanetRadius},
		{"stellar_effective_temperature", EffectiveTemperature, r.EffectiveTemperature},
		{"stellar_surface_gravity", SurfaceGravity, orDefault(r.SurfaceGravity, DefaultSurfaceGravity)},
	}
}

// Raw flattens a record back into named values, defaults included.
func Raw(r Record) RawRecord {
	ms := r.Measurements()
	out := make(RawRecord, len(ms))
	for _, m := range ms {
		out[m.Field] = m.Value
	}
	return out
}

// Float returns a pointer to v, for populating optional record fields.
func Float(v float64) *float64 { return &v }

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
