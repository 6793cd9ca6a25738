package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrMissingField is matched by every MissingFieldError.
var ErrMissingField = errors.New("missing required field")

// MissingFieldError names the first required field absent from a record.
type MissingFieldError struct {
	Mission ID
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s record: missing required field %q", e.Mission, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// InvalidValueError reports a non-finite value.
type InvalidValueError struct {
	Mission ID
	Field   string
	Value   float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s record: field %q has non-finite value %v", e.Mission, e.Field, e.Value)
}

// Submission forms. Every field is a pointer so that "absent" and "zero" differ;
// required fields carry the validator tag. Field order matches slot order, which
// makes the first validation error the first missing field.
type keplerForm struct {
	OrbitalPeriod        *float64 `json:"orbital_period" validate:"required"`
	TransitDuration      *float64 `json:"transit_duration" validate:"required"`
	PlanetRadius         *float64 `json:"planet_radius" validate:"required"`
	StarRadius           *float64 `json:"star_radius"`
	EffectiveTemperature *float64 `json:"stellar_effective_temperature" validate:"required"`
	TransitDepth         *float64 `json:"transit_depth" validate:"required"`
	Eccentricity         *float64 `json:"eccentricity"`
	SignalToNoise        *float64 `json:"signal_to_noise"`
}

type k2Form struct {
	OrbitalPeriod        *float64 `json:"orbital_period" validate:"required"`
	PlanetRadius         *float64 `json:"planet_radius" validate:"required"`
	TransitDuration      *float64 `json:"transit_duration" validate:"required"`
	EffectiveTemperature *float64 `json:"stellar_effective_temperature" validate:"required"`
	StarRadius           *float64 `json:"star_radius"`
	StellarMass          *float64 `json:"stellar_mass"`
	SurfaceGravity       *float64 `json:"stellar_surface_gravity"`
}

type tessForm struct {
	OrbitalPeriod        *float64 `json:"orbital_period" validate:"required"`
	TransitDuration      *float64 `json:"transit_duration" validate:"required"`
	TransitDepth         *float64 `json:"transit_depth" validate:"required"`
	PlanetRadius         *float64 `json:"planet_radius" validate:"required"`
	EffectiveTemperature *float64 `json:"stellar_effective_temperature" validate:"required"`
	SurfaceGravity       *float64 `json:"stellar_surface_gravity"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// report json names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		validate = v
	})
	return validate
}

// Parse validates raw against the mission schema and returns the typed record.
// Unknown keys are ignored.
func Parse(id ID, raw RawRecord) (Record, error) {
	p, err := Lookup(id)
	if err != nil {
		return nil, err
	}

	known := make(RawRecord, len(p.Fields))
	for _, f := range p.Fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidValueError{Mission: id, Field: f.Name, Value: v}
		}
		known[f.Name] = v
	}

	data, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", id, err)
	}

	switch id {
	case Kepler:
		var f keplerForm
		if err := decodeForm(id, data, &f); err != nil {
			return nil, err
		}
		return KeplerRecord{
			OrbitalPeriod:        *f.OrbitalPeriod,
			TransitDuration:      *f.TransitDuration,
			PlanetRadius:         *f.PlanetRadius,
			StarRadius:           f.StarRadius,
			EffectiveTemperature: *f.EffectiveTemperature,
			TransitDepth:         *f.TransitDepth,
			Eccentricity:         f.Eccentricity,
			SignalToNoise:        f.SignalToNoise,
		}, nil
	case K2:
		var f k2Form
		if err := decodeForm(id, data, &f); err != nil {
			return nil, err
		}
		return K2Record{
			OrbitalPeriod:        *f.OrbitalPeriod,
			PlanetRadius:         *f.PlanetRadius,
			TransitDuration:      *f.TransitDuration,
			EffectiveTemperature: *f.EffectiveTemperature,
			StarRadius:           f.StarRadius,
			StellarMass:          f.StellarMass,
			SurfaceGravity:       f.SurfaceGravity,
		}, nil
	default:
		var f tessForm
		if err := decodeForm(id, data, &f); err != nil {
			return nil, err
		}
		return TessRecord{
			OrbitalPeriod:        *f.OrbitalPeriod,
			TransitDuration:      *f.TransitDuration,
			TransitDepth:         *f.TransitDepth,
			PlanetRadius:         *f.PlanetRadius,
			EffectiveTemperature: *f.EffectiveTemperature,
			SurfaceGravity:       f.SurfaceGravity,
		}, nil
	}
}

func decodeForm(id ID, data []byte, form any) error {
	if err := json.Unmarshal(data, form); err != nil {
		return fmt.Errorf("decode %s record: %w", id, err)
	}
	if err := formValidator().Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &MissingFieldError{Mission: id, Field: verrs[0].Field()}
		}
		return fmt.Errorf("validate %s record: %w", id, err)
	}
	return nil
}
