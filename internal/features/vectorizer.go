// Package features turns validated mission records into the fixed-length
// numeric vectors consumed by the classification models.
//
// The first slots hold normalized physical measurements in mission order. The
// remaining slots are synthetic filler derived from the core slots, so a record
// always produces the same vector.
package features

import (
	"math"

	"exoplanet-classifier/internal/mission"
)

// CoreSlots is the width of the core region; missions with fewer core fields
// are treated as zero-padded when summing.
const CoreSlots = 8

// Vector is a feature vector of a mission's required length.
type Vector []float64

// Vectorize builds the feature vector for rec. It is total over records
// produced by mission.Parse or constructed directly.
func Vectorize(rec mission.Record) Vector {
	p := mission.MustLookup(rec.Mission())
	return vectorize(p, rec.Measurements())
}

func vectorize(p mission.Profile, ms []mission.Measurement) Vector {
	vec := make(Vector, p.VectorLength)

	core := min(len(ms), p.VectorLength)
	for i := 0; i < core; i++ {
		vec[i] = mission.Normalize(ms[i].Value, mission.RangeOf(ms[i].Quantity))
	}

	sum := CoreSum(vec[:core])
	for i := core; i < len(vec); i++ {
		vec[i] = Filler(i, sum)
	}
	return vec
}

// CoreSum sums normalized core values.
func CoreSum(core []float64) float64 {
	var sum float64
	for _, v := range core {
		sum += v
	}
	return sum
}

// Filler returns the synthetic value for absolute slot index i.
func Filler(i int, coreSum float64) float64 {
	fi := float64(i)
	return math.Sin(fi*coreSum*0.1)*0.1 + math.Cos(fi*0.3)*0.05
}

// Slot is a named core slot of a vector.
type Slot struct {
	Index      int     `json:"index"`
	Field      string  `json:"field"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
}

// Describe reports the core slots of the vector built for rec.
func Describe(rec mission.Record, vec Vector) []Slot {
	ms := rec.Measurements()
	out := make([]Slot, 0, len(ms))
	for i, m := range ms {
		if i >= len(vec) {
			break
		}
		out = append(out, Slot{Index: i, Field: m.Field, Raw: m.Value, Normalized: vec[i]})
	}
	return out
}

// Float32 converts the vector for runtimes that take single precision input.
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
