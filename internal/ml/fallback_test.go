package ml

import (
	"testing"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keplerRecord() mission.KeplerRecord {
	return mission.KeplerRecord{
		OrbitalPeriod:        85.3,
		TransitDuration:      4.2,
		PlanetRadius:         2.1,
		EffectiveTemperature: 5500,
		TransitDepth:         500,
	}
}

func TestFallback_Deterministic(t *testing.T) {
	vec := features.Vectorize(keplerRecord())

	first := Fallback(vec, mission.Kepler)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fallback(vec, mission.Kepler))
	}
}

func TestFallback_ValidDistribution(t *testing.T) {
	recs := []mission.Record{
		keplerRecord(),
		mission.KeplerRecord{OrbitalPeriod: 1, TransitDuration: 1, PlanetRadius: 1, EffectiveTemperature: 3000, TransitDepth: 10},
		mission.K2Record{OrbitalPeriod: 12.5, PlanetRadius: 3, TransitDuration: 2, EffectiveTemperature: 6100},
		mission.TessRecord{OrbitalPeriod: 3.2, TransitDuration: 1.1, TransitDepth: 840, PlanetRadius: 11, EffectiveTemperature: 4700},
		mission.TessRecord{OrbitalPeriod: 9000, TransitDuration: 90, TransitDepth: 1e6, PlanetRadius: 200, EffectiveTemperature: 50000},
	}

	for _, rec := range recs {
		res := Fallback(features.Vectorize(rec), rec.Mission())

		var sum float64
		for _, p := range res.Probabilities {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		assert.Equal(t, argmax(res.Probabilities), res.ClassIndex)
		assert.Equal(t, mission.Class(res.ClassIndex).Label(), res.Label)
		assert.InDelta(t, res.Probabilities[res.ClassIndex]*100, res.Confidence, 1e-9)
		assert.Equal(t, SourceFallback, res.Source)
		assert.Equal(t, rec.Mission(), res.Mission)
	}
}

func TestFallback_VariesAcrossInputs(t *testing.T) {
	seen := make(map[[3]float64]bool)
	for i := 0; i < 20; i++ {
		rec := keplerRecord()
		rec.OrbitalPeriod = 10 + float64(i)*17
		seen[Fallback(features.Vectorize(rec), mission.Kepler).Probabilities] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestFallback_MissionBiasMatters(t *testing.T) {
	vec := features.Vectorize(keplerRecord())
	kepler := Fallback(vec, mission.Kepler)
	tess := Fallback(vec, mission.TESS)
	assert.NotEqual(t, kepler.Probabilities, tess.Probabilities)
}

func TestFallback_UnknownMission(t *testing.T) {
	res := Fallback(features.Vector{0.1, 0.2, 0.3}, mission.ID("corot"))
	assert.InDelta(t, 1.0, res.Probabilities[0]+res.Probabilities[1]+res.Probabilities[2], 1e-9)
}

func TestFallbackPredictor_Usage(t *testing.T) {
	m := &MockMetrics{}
	fp := NewFallbackPredictor(m)
	vec := features.Vectorize(keplerRecord())

	fp.Predict(vec, mission.Kepler)
	fp.Predict(vec, mission.Kepler)
	fp.Predict(vec, mission.TESS)

	usage := fp.Usage()
	assert.EqualValues(t, 2, usage[mission.Kepler])
	assert.EqualValues(t, 1, usage[mission.TESS])
	assert.Equal(t, 2, m.FallbackUse("kepler"))

	// the returned map is a copy
	usage[mission.Kepler] = 100
	assert.EqualValues(t, 2, fp.Usage()[mission.Kepler])

	fp.Reset()
	require.Empty(t, fp.Usage())
}

func TestArgmax_FirstWinsTies(t *testing.T) {
	assert.Equal(t, 0, argmax([3]float64{0.4, 0.4, 0.2}))
	assert.Equal(t, 1, argmax([3]float64{0.2, 0.4, 0.4}))
	assert.Equal(t, 2, argmax([3]float64{0.1, 0.2, 0.7}))
}

// Regression fixture for a fully specified Kepler record.
func TestFallback_KeplerFixture(t *testing.T) {
	rec := mission.KeplerRecord{
		OrbitalPeriod:        85.3,
		TransitDuration:      3.2,
		PlanetRadius:         1.84,
		StarRadius:           mission.Float(1.12),
		EffectiveTemperature: 5456,
		TransitDepth:         890,
		Eccentricity:         mission.Float(0.03),
		SignalToNoise:        mission.Float(18.7),
	}
	vec := features.Vectorize(rec)
	require.Len(t, vec, 106)
	assert.InDelta(t, 0.16976976976976976, vec[0], 1e-12)
	assert.InDelta(t, 0.4912, vec[4], 1e-12)

	res := Fallback(vec, mission.Kepler)
	assert.InDelta(t, 0.5127231691862013, res.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.4365527776742834, res.Probabilities[1], 1e-9)
	assert.InDelta(t, 0.050724053139515314, res.Probabilities[2], 1e-9)
	assert.Equal(t, 0, res.ClassIndex)
	assert.Equal(t, "Candidate", res.Label)
	assert.InDelta(t, 51.27231691862013, res.Confidence, 1e-7)
}

func TestFallback_PinnedBranches(t *testing.T) {
	// weighted sum 80, seed 108: high variance with seed divisible by four
	seedDivisible := make(features.Vector, 106)
	seedDivisible[79] = 1.0

	tests := []struct {
		name    string
		mission mission.ID
		vec     features.Vector
		want    [3]float64
		class   int
	}{
		{
			name:    "kepler low variance",
			mission: mission.Kepler,
			vec:     features.Vectorize(keplerRecord()),
			want:    [3]float64{0.2975505527377838, 0.25438569746970113, 0.44806374979251506},
			class:   2,
		},
		{
			name:    "kepler mid variance",
			mission: mission.Kepler,
			vec: features.Vectorize(mission.KeplerRecord{
				OrbitalPeriod: 3.5, TransitDuration: 2.8, PlanetRadius: 11, StarRadius: mission.Float(1.2),
				EffectiveTemperature: 6100, TransitDepth: 1200, Eccentricity: mission.Float(0), SignalToNoise: mission.Float(60),
			}),
			want:  [3]float64{0.3958504694112133, 0.460616235685426, 0.14353329490336067},
			class: 1,
		},
		{
			name:    "kepler high variance seed divisible by four",
			mission: mission.Kepler,
			vec:     seedDivisible,
			want:    [3]float64{0.2980618558982073, 0.6751354295857716, 0.02680271451602114},
			class:   1,
		},
		{
			name:    "k2 high variance",
			mission: mission.K2,
			vec: features.Vectorize(mission.K2Record{
				OrbitalPeriod: 12.5, PlanetRadius: 3, TransitDuration: 2, EffectiveTemperature: 6100,
			}),
			want:  [3]float64{0.5792870057009119, 0.3555075550765671, 0.06520543922252105},
			class: 0,
		},
		{
			name:    "k2 low variance",
			mission: mission.K2,
			vec: features.Vectorize(mission.K2Record{
				OrbitalPeriod: 24.7, PlanetRadius: 2.2, TransitDuration: 3.1, EffectiveTemperature: 5600,
				StarRadius: mission.Float(0.95), StellarMass: mission.Float(0.9), SurfaceGravity: mission.Float(4.5),
			}),
			want:  [3]float64{0.3030715257811452, 0.18591774940923952, 0.5110107248096154},
			class: 2,
		},
		{
			name:    "tess mid variance",
			mission: mission.TESS,
			vec: features.Vectorize(mission.TessRecord{
				OrbitalPeriod: 9.5, TransitDuration: 2.6, TransitDepth: 1500, PlanetRadius: 2.3,
				EffectiveTemperature: 5800, SurfaceGravity: mission.Float(4.3),
			}),
			want:  [3]float64{0.5219226626851929, 0.2999342408817326, 0.17814309643307458},
			class: 0,
		},
		{
			name:    "tess high variance",
			mission: mission.TESS,
			vec: features.Vectorize(mission.TessRecord{
				OrbitalPeriod: 3.2, TransitDuration: 1.1, TransitDepth: 840, PlanetRadius: 11, EffectiveTemperature: 4700,
			}),
			want:  [3]float64{0.6597601019219698, 0.27819999492648995, 0.06203990315154038},
			class: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Fallback(tt.vec, tt.mission)
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], res.Probabilities[i], 1e-12, "class %d", i)
			}
			assert.Equal(t, tt.class, res.ClassIndex)
		})
	}
}
