package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/optionedge/internal/config"
	"github.com/sawpanic/optionedge/internal/domain/decision"
	"github.com/sawpanic/optionedge/internal/domain/pricing"
	"github.com/sawpanic/optionedge/internal/domain/series"
)

var seriesStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesFromReturns builds a price series by compounding log returns from
// a base price of 100.
func seriesFromReturns(t *testing.T, symbol string, returns []float64) *series.PriceSeries {
	t.Helper()
	pts := make([]series.PricePoint, len(returns)+1)
	price := 100.0
	pts[0] = series.PricePoint{Timestamp: seriesStart, Close: price}
	for i, r := range returns {
		price *= math.Exp(r)
		pts[i+1] = series.PricePoint{Timestamp: seriesStart.AddDate(0, 0, i + 1), Close: price}
	}
	ps, err := series.NewPriceSeries(symbol, pts)
	require.NoError(t, err)
	return ps
}

func flatSeries(t *testing.T, symbol string, n int) *series.PriceSeries {
	return seriesFromReturns(t, symbol, make([]float64, n))
}

// deepITMContract prices at intrinsic under zero rates and floor
// volatility, so a market quote at intrinsic carries no signal.
func deepITMContract(lastTS time.Time) pricing.Contract {
	return pricing.Contract{
		Type:        pricing.Call,
		Strike:      80,
		Expiry:      lastTS.AddDate(0, 6, 0),
		RiskFree:    0,
		MarketPrice: 20.0,
	}
}

func TestRun_FlatSeriesRefusesQuietly(t *testing.T) {
	cfg := config.Default()
	p := New(cfg)

	ps := flatSeries(t, "FLAT", 150)
	last := ps.Points[ps.Len()-1].Timestamp
	res, err := p.Run(ps, deepITMContract(last))
	require.NoError(t, err)

	require.Len(t, res.Decisions, 150)
	assert.Zero(t, res.JumpCount)

	final := res.Final()
	assert.Equal(t, decision.Refuse, final.Action)
	assert.Contains(t, final.Diagnostics, decision.DiagBelowThreshold)

	// Constant volatility reads as sideways, never crisis.
	name, _ := final.Probs.Dominant()
	assert.Equal(t, "sideways", name)
	for _, d := range res.Decisions {
		assert.NotContains(t, d.Diagnostics, decision.DiagCrisisOverride)
	}
}

func TestRun_WarmupTimestampsRefuseWithDiagnostic(t *testing.T) {
	cfg := config.Default()
	p := New(cfg)

	ps := flatSeries(t, "FLAT", 150)
	last := ps.Points[ps.Len()-1].Timestamp
	res, err := p.Run(ps, deepITMContract(last))
	require.NoError(t, err)

	for t2 := 0; t2 < cfg.Jump.MinObservations-1; t2++ {
		d := res.Decisions[t2]
		assert.Equal(t, decision.Refuse, d.Action)
		assert.Contains(t, d.Diagnostics, decision.DiagInsufficientHistory)
	}
}

func TestRun_ShortSeriesRefusesEverything(t *testing.T) {
	cfg := config.Default()
	p := New(cfg)

	ps := flatSeries(t, "SHORT", 10)
	last := ps.Points[ps.Len()-1].Timestamp
	res, err := p.Run(ps, deepITMContract(last))
	require.NoError(t, err)

	require.Len(t, res.Decisions, 10)
	for _, d := range res.Decisions {
		assert.Equal(t, decision.Refuse, d.Action)
		assert.Contains(t, d.Diagnostics, decision.DiagInsufficientHistory)
	}
}

func TestRun_DetectsAndPricesAroundJumps(t *testing.T) {
	returns := make([]float64, 200)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.004
		} else {
			returns[i] = -0.004
		}
	}
	returns[60] = -0.15
	returns[120] = -0.12

	cfg := config.Default()
	p := New(cfg)

	ps := seriesFromReturns(t, "JUMPY", returns)
	last := ps.Points[ps.Len()-1].Timestamp
	contract := pricing.Contract{
		Type:        pricing.Call,
		Strike:      100,
		Expiry:      last.AddDate(0, 6, 0),
		RiskFree:    0.04,
		MarketPrice: 5.0,
	}

	res, err := p.Run(ps, contract)
	require.NoError(t, err)

	assert.Equal(t, 2, res.JumpCount)
	assert.InDelta(t, 2.0/200.0, res.JumpParams.Intensity, 1e-9)
	assert.InDelta(t, -0.135, res.JumpParams.MeanSize, 1e-6)
	require.Len(t, res.Decisions, 200)

	// Every decision is a terminal verdict with a valid regime vector.
	for _, d := range res.Decisions {
		assert.Contains(t, []decision.Action{decision.Buy, decision.Sell, decision.Refuse}, d.Action)
		assert.InDelta(t, 1.0, d.Probs.Sum(), 1e-6)
		assert.LessOrEqual(t, d.Size, cfg.Decision.MaxPosition)
	}
}

func TestRun_ExpiredContractRefusesWithPricingFailure(t *testing.T) {
	cfg := config.Default()
	p := New(cfg)

	ps := flatSeries(t, "FLAT", 100)
	contract := deepITMContract(seriesStart)
	contract.Expiry = seriesStart.AddDate(0, 0, 10) // expires mid-series

	res, err := p.Run(ps, contract)
	require.NoError(t, err)

	final := res.Final()
	assert.Equal(t, decision.Refuse, final.Action)
	assert.Contains(t, final.Diagnostics, decision.DiagPricingFailure)
}

func TestFinal_EmptyDecisions(t *testing.T) {
	res := &SeriesResult{Symbol: "EMPTY"}
	final := res.Final()
	assert.Equal(t, decision.Refuse, final.Action)
	assert.Contains(t, final.Diagnostics, decision.DiagInsufficientHistory)
}
