package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_GrowsVariance(t *testing.T) {
	s := State{Mean: 0.001, Variance: 1e-5}
	next := Predict(s, 1e-6)

	assert.Equal(t, s.Mean, next.Mean)
	assert.InDelta(t, 1.1e-5, next.Variance, 1e-12)
}

func TestUpdate_NeverIncreasesVariance(t *testing.T) {
	tests := []struct {
		name string
		s    State
		obs  float64
		r    float64
	}{
		{"tight prior", State{Mean: 0, Variance: 1e-6}, 0.01, 1e-4},
		{"loose prior", State{Mean: 0.002, Variance: 1e-3}, -0.05, 1e-6},
		{"matched", State{Mean: 0.001, Variance: 1e-5}, 0.001, 1e-5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Update(tt.s, tt.obs, tt.r, 1e-6)
			assert.LessOrEqual(t, next.Variance, tt.s.Variance)
			assert.Greater(t, next.Variance, 0.0)
		})
	}
}

func TestUpdate_MovesMeanTowardObservation(t *testing.T) {
	s := State{Mean: 0, Variance: 1e-4}
	next := Update(s, 0.01, 1e-6, 1e-6)

	assert.Greater(t, next.Mean, s.Mean)
	assert.LessOrEqual(t, next.Mean, 0.01)
}

func TestEstimate_TracksConstantDrift(t *testing.T) {
	const mu = 0.001
	n := 200
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = mu
	}

	e := NewEngine(DefaultConfig())
	res := e.Estimate(returns, make([]bool, n), nil, nil)

	require.Len(t, res.Drift, n)
	last := res.Last()
	assert.InDelta(t, mu, last.Mean, 1e-4)
	assert.Greater(t, last.Variance, 0.0)
}

func TestEstimate_JumpStepsArePredictOnly(t *testing.T) {
	n := 100
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = 0.001
	}
	isJump := make([]bool, n)
	isJump[50] = true
	returns[50] = -0.25 // the jump must not drag the drift down

	sigma := make([]float64, n)
	for i := range sigma {
		sigma[i] = 0.01
	}

	e := NewEngine(DefaultConfig())
	res := e.Estimate(returns, isJump, sigma, nil)

	// Predict-only: uncertainty grows at the jump step instead of shrinking.
	assert.Greater(t, res.Uncertainty[50], res.Uncertainty[49])
	// The drift estimate is untouched by the jump observation.
	assert.InDelta(t, res.Drift[49], res.Drift[50], 1e-12)
	assert.InDelta(t, 0.001, res.Last().Mean, 5e-4)
}

func TestEstimate_CrisisRegimeWidensUncertainty(t *testing.T) {
	n := 150
	returns := make([]float64, n)
	sigma := make([]float64, n)
	for i := range returns {
		returns[i] = 0.001
		sigma[i] = 0.01
	}
	calm := make([]string, n)
	stressed := make([]string, n)
	for i := range calm {
		calm[i] = "bull"
		stressed[i] = "crisis"
	}

	e := NewEngine(DefaultConfig())
	calmRes := e.Estimate(returns, make([]bool, n), sigma, calm)
	stressedRes := e.Estimate(returns, make([]bool, n), sigma, stressed)

	assert.Greater(t, stressedRes.Last().Variance, calmRes.Last().Variance,
		"crisis process noise must keep the posterior wider")
}

func TestEstimate_EmptySeries(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Estimate(nil, nil, nil, nil)
	assert.Empty(t, res.Drift)
	assert.Equal(t, State{}, res.Last())
}
