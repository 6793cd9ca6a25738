// Package mission describes the three transit surveys the classifier understands
// (Kepler, K2 and TESS): their record schemas, the order in which measurements
// populate the feature vector, the vector length each mission's models expect,
// and the per-mission bias constants used by the fallback classifier.
//
// Everything in this package is immutable static configuration. Lookups return
// copies, so callers can build a per-request context without sharing state.
package mission

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"exoplanet-classifier/internal/common"
)

// ID identifies a mission.
type ID string

const (
	Kepler ID = common.MissionKepler
	K2     ID = common.MissionK2
	TESS   ID = common.MissionTESS
)

// ErrUnknownMission is returned when a mission identifier is not one of kepler, k2, tess.
var ErrUnknownMission = errors.New("unknown mission")

// All returns every mission in a stable order.
func All() []ID { return []ID{K2, Kepler, TESS} }

// ParseID parses a mission identifier, ignoring case and surrounding whitespace.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMission, s)
	}
	return id, nil
}

// Valid reports whether id is a known mission.
func (id ID) Valid() bool {
	_, ok := profiles[id]
	return ok
}

func (id ID) String() string { return string(id) }

// Class is the predicted disposition of a transit signal.
type Class int

const (
	Candidate Class = iota
	Confirmed
	FalsePositive
)

// NumClasses is the number of output classes.
const NumClasses = 3

var classLabels = [NumClasses]string{
	common.LabelCandidate,
	common.LabelConfirmed,
	common.LabelFalsePositive,
}

// Label returns the display label of the class.
func (c Class) Label() string {
	if c < 0 || int(c) >= NumClasses {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classLabels[c]
}

func (c Class) String() string { return c.Label() }

// Field is one core measurement of a mission record.
type Field struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"-"`
	Required bool     `json:"required"`
	Default  float64  `json:"default,omitempty"`
}

// Bias holds the mission-specific multiplicative bias applied to the
// fallback class scores.
type Bias struct {
	Candidate     float64 `json:"candidate"`
	Confirmed     float64 `json:"confirmed"`
	FalsePositive float64 `json:"false_positive"`
}

// Profile is the static description of a mission.
type Profile struct {
	ID           ID      `json:"id"`
	Name         string  `json:"name"`
	VectorLength int     `json:"vector_length"`
	Fields       []Field `json:"fields"`
	Bias         Bias    `json:"bias"`
}

// CoreCount returns the number of core slots populated from measurements.
func (p Profile) CoreCount() int { return len(p.Fields) }

// RequiredFields returns the names of required fields in slot order.
func (p Profile) RequiredFields() []string {
	var out []string
	for _, f := range p.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// FirstLetterCode returns the character code of the first letter of the
// mission identifier. It seeds the fallback classifier.
func (p Profile) FirstLetterCode() float64 {
	if p.ID == "" {
		return 0
	}
	return float64(p.ID[0])
}

var profiles = map[ID]Profile{
	Kepler: {
		ID:           Kepler,
		Name:         "Kepler",
		VectorLength: 106,
		Fields: []Field{
			{Name: "orbital_period", Quantity: Period, Required: true},
			{Name: "transit_duration", Quantity: Duration, Required: true},
			{Name: "planet_radius", Quantity: PlanetRadius, Required: true},
			{Name: "star_radius", Quantity: StellarRadius, Default: DefaultStellarRadius},
			{Name: "stellar_effective_temperature", Quantity: EffectiveTemperature, Required: true},
			{Name: "transit_depth", Quantity: TransitDepth, Required: true},
			{Name: "eccentricity", Quantity: Eccentricity, Default: DefaultEccentricity},
			{Name: "signal_to_noise", Quantity: SignalToNoise, Default: DefaultSignalToNoise},
		},
		Bias: Bias{Candidate: 0.9, Confirmed: 1.3, FalsePositive: 1.0},
	},
	K2: {
		ID:           K2,
		Name:         "K2",
		VectorLength: 145,
		Fields: []Field{
			{Name: "orbital_period", Quantity: Period, Required: true},
			{Name: "planet_radius", Quantity: PlanetRadius, Required: true},
			{Name: "transit_duration", Quantity: Duration, Required: true},
			{Name: "stellar_effective_temperature", Quantity: EffectiveTemperature, Required: true},
			{Name: "star_radius", Quantity: StellarRadius, Default: DefaultStellarRadius},
			{Name: "stellar_mass", Quantity: StellarMass, Default: DefaultStellarMass},
			{Name: "stellar_surface_gravity", Quantity: SurfaceGravity, Default: DefaultSurfaceGravity},
		},
		Bias: Bias{Candidate: 1.0, Confirmed: 1.0, FalsePositive: 1.1},
	},
	TESS: {
		ID:           TESS,
		Name:         "TESS",
		VectorLength: 43,
		Fields: []Field{
			{Name: "orbital_period", Quantity: Period, Required: true},
			{Name: "transit_duration", Quantity: Duration, Required: true},
			{Name: "transit_depth", Quantity: TransitDepth, Required: true},
			{Name: "planet_radius", Quantity: PlanetRadius, Required: true},
			{Name: "stellar_effective_temperature", Quantity: EffectiveTemperature, Required: true},
			{Name: "stellar_surface_gravity", Quantity: SurfaceGravity, Default: DefaultSurfaceGravity},
		},
		Bias: Bias{Candidate: 1.2, Confirmed: 0.8, FalsePositive: 1.0},
	},
}

// Lookup returns a copy of the profile for id.
func Lookup(id ID) (Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownMission, string(id))
	}
	p.Fields = slices.Clone(p.Fields)
	return p, nil
}

// MustLookup is Lookup for identifiers already known to be valid.
func MustLookup(id ID) Profile {
	p, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return p
}
