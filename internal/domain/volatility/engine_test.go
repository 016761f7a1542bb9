package volatility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calmReturns(n int, amp float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		if i%2 == 0 {
			vals[i] = amp
		} else {
			vals[i] = -amp
		}
	}
	return vals
}

func TestEWMA_VarianceFloor(t *testing.T) {
	e := NewEngine(DefaultConfig())
	est := e.EWMA(make([]float64, 50), 0.94)

	require.Len(t, est.Sigma, 50)
	floor := math.Sqrt(DefaultConfig().MinVariance)
	for _, s := range est.Sigma {
		assert.InDelta(t, floor, s, 1e-12, "zero returns must pin sigma at the floor")
	}
}

func TestEWMA_SpikeRaisesVolatility(t *testing.T) {
	e := NewEngine(DefaultConfig())

	clean := calmReturns(100, 0.005)
	spiked := calmReturns(100, 0.005)
	spiked[90] = -0.20

	cleanEst := e.EWMA(clean, 0.94)
	spikedEst := e.EWMA(spiked, 0.94)

	assert.Greater(t, spikedEst.Last(), 2*cleanEst.Last(),
		"an unexcluded jump must inflate the estimate")
}

func TestEWMA_RespondsFasterWithLowerDecay(t *testing.T) {
	e := NewEngine(DefaultConfig())
	returns := calmReturns(100, 0.005)
	returns[99] = -0.10

	slow := e.EWMA(returns, 0.94)
	fast := e.EWMA(returns, 0.85)
	assert.Greater(t, fast.Last(), slow.Last())
}

func TestBlended_NilWeightsMatchesSidewaysEWMA(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	returns := calmReturns(80, 0.008)

	blended := e.Blended(returns, nil)
	plain := e.EWMA(returns, cfg.SidewaysLambda)

	require.Len(t, blended.Sigma, len(plain.Sigma))
	for i := range plain.Sigma {
		assert.InDelta(t, plain.Sigma[i], blended.Sigma[i], 1e-12)
	}
	assert.Equal(t, "ewma_blend", blended.Method)
}

func TestBlended_PureCrisisWeightsMatchCrisisDecay(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	returns := calmReturns(80, 0.008)

	weights := make([]Weights, len(returns))
	for i := range weights {
		weights[i] = Weights{Crisis: 1}
	}

	blended := e.Blended(returns, weights)
	crisis := e.EWMA(returns, cfg.CrisisLambda)
	for i := range crisis.Sigma {
		assert.InDelta(t, crisis.Sigma[i], blended.Sigma[i], 1e-12)
	}
	assert.InDelta(t, cfg.CrisisLambda, blended.Decay, 1e-12)
}

func TestBlended_DecayStaysContinuousAcrossMixtures(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	returns := calmReturns(60, 0.008)

	weights := make([]Weights, len(returns))
	for i := range weights {
		weights[i] = Weights{Bull: 0.5, Crisis: 0.5}
	}
	blended := e.Blended(returns, weights)

	want := 0.5*cfg.BullLambda + 0.5*cfg.CrisisLambda
	assert.InDelta(t, want, blended.Decay, 1e-12)
}

func TestEffective_BlendsPerRegimeEstimates(t *testing.T) {
	e := NewEngine(DefaultConfig())
	returns := calmReturns(80, 0.008)

	bull := e.ForRegime(returns, "bull")
	crisis := e.ForRegime(returns, "crisis")

	weights := make([]Weights, len(returns))
	for i := range weights {
		weights[i] = Weights{Bull: 0.3, Crisis: 0.7}
	}
	eff := e.Effective(returns, weights)

	last := len(returns) - 1
	want := 0.3*bull.Sigma[last] + 0.7*crisis.Sigma[last]
	assert.InDelta(t, want, eff[last], 1e-12)
}

func TestGARCH_FallsBackOnShortSeries(t *testing.T) {
	e := NewEngine(DefaultConfig())
	est := e.GARCH(calmReturns(5, 0.008))
	assert.Equal(t, "ewma", est.Method)
}

func TestGARCH_FitsLongSeries(t *testing.T) {
	e := NewEngine(DefaultConfig())
	est := e.GARCH(calmReturns(200, 0.008))

	require.Len(t, est.Sigma, 200)
	assert.Equal(t, "garch", est.Method)
	for _, s := range est.Sigma {
		assert.Greater(t, s, 0.0)
	}
}

func TestAnnualize(t *testing.T) {
	assert.InDelta(t, 0.01*math.Sqrt(252), Annualize(0.01, 252), 1e-12)
}
