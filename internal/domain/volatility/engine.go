// Package volatility estimates regime-conditioned diffusion volatility.
//
// Jumps never enter the estimate: callers feed diffusion-only returns from
// the jump detector. Each regime carries its own EWMA decay; when soft
// regime membership is supplied the decay at time t is the
// probability-weighted blend, so volatility stays continuous across regime
// boundaries.
package volatility

import (
	"math"
)

// Config holds the per-regime decay table and numerical guards.
type Config struct {
	BullLambda     float64 `yaml:"bull_ewma_lambda" validate:"gt=0,lt=1"`     // slow decay, default 0.94
	SidewaysLambda float64 `yaml:"sideways_ewma_lambda" validate:"gt=0,lt=1"` // default 0.90
	CrisisLambda   float64 `yaml:"crisis_ewma_lambda" validate:"gt=0,lt=1"`   // fast decay, default 0.85
	MinVariance    float64 `yaml:"min_variance" validate:"gt=0"`              // variance floor
	MinPeriods     int     `yaml:"min_periods" validate:"gte=1"`              // warmup before estimates are live
	GARCHEnabled   bool    `yaml:"garch_enabled"`                             // GARCH(1,1) refinement for sideways
}

// DefaultConfig returns the production decay table.
func DefaultConfig() Config {
	return Config{
		BullLambda:     0.94,
		SidewaysLambda: 0.90,
		CrisisLambda:   0.85,
		MinVariance:    1e-6,
		MinPeriods:     20,
		GARCHEnabled:   false,
	}
}

// Weights is a soft regime membership vector consumed by the blend. The
// pipeline derives it from RegimeProbabilities; this package stays upstream
// of the regime engine to keep the data flow strictly forward.
type Weights struct {
	Bull     float64
	Sideways float64
	Crisis   float64
}

// Estimate is a per-time volatility series tagged with the decay actually
// used. Recomputed per call, never edited externally.
type Estimate struct {
	Sigma  []float64
	Decay  float64 // decay parameter (mean decay for blended estimates)
	Method string  // "ewma", "ewma_blend" or "garch"
}

// Last returns the most recent volatility, or 0 for an empty estimate.
func (e *Estimate) Last() float64 {
	if len(e.Sigma) == 0 {
		return 0
	}
	return e.Sigma[len(e.Sigma)-1]
}

// Engine estimates time-varying diffusion volatility.
type Engine struct {
	cfg Config
}

// NewEngine creates a volatility engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// ewmaState is the pure state-transition form of the EWMA recursion:
// sigma2' = lambda*sigma2 + (1-lambda)*r^2, floored at the variance floor.
func (e *Engine) ewmaStep(variance, ret, lambda float64) float64 {
	v := lambda*variance + (1-lambda)*ret*ret
	if v < e.cfg.MinVariance {
		v = e.cfg.MinVariance
	}
	return v
}

// EWMA computes exponentially weighted volatility with a fixed decay.
func (e *Engine) EWMA(returns []float64, lambda float64) Estimate {
	sigma := make([]float64, len(returns))
	if len(returns) == 0 {
		return Estimate{Sigma: sigma, Decay: lambda, Method: "ewma"}
	}

	variance := e.seedVariance(returns)
	for i, r := range returns {
		variance = e.ewmaStep(variance, r, lambda)
		sigma[i] = math.Sqrt(variance)
	}
	return Estimate{Sigma: sigma, Decay: lambda, Method: "ewma"}
}

// Blended computes EWMA volatility where the decay at each step is the
// regime-probability-weighted blend of the per-regime decays. With nil
// weights every step uses the sideways decay.
func (e *Engine) Blended(returns []float64, weights []Weights) Estimate {
	sigma := make([]float64, len(returns))
	if len(returns) == 0 {
		return Estimate{Sigma: sigma, Decay: e.cfg.SidewaysLambda, Method: "ewma_blend"}
	}

	variance := e.seedVariance(returns)
	decaySum := 0.0
	for i, r := range returns {
		lambda := e.cfg.SidewaysLambda
		if weights != nil {
			w := weights[i]
			lambda = w.Bull*e.cfg.BullLambda + w.Sideways*e.cfg.SidewaysLambda + w.Crisis*e.cfg.CrisisLambda
		}
		decaySum += lambda
		variance = e.ewmaStep(variance, r, lambda)
		sigma[i] = math.Sqrt(variance)
	}
	return Estimate{
		Sigma:  sigma,
		Decay:  decaySum / float64(len(returns)),
		Method: "ewma_blend",
	}
}

// ForRegime estimates volatility under a single regime's model: slow EWMA
// for bull, fast EWMA for crisis, and GARCH(1,1) (when enabled) for
// sideways where volatility mean-reverts.
func (e *Engine) ForRegime(returns []float64, regime string) Estimate {
	switch regime {
	case "bull":
		return e.EWMA(returns, e.cfg.BullLambda)
	case "crisis":
		return e.EWMA(returns, e.cfg.CrisisLambda)
	default:
		if e.cfg.GARCHEnabled {
			return e.GARCH(returns)
		}
		return e.EWMA(returns, e.cfg.SidewaysLambda)
	}
}

// Effective blends the three per-regime estimates by regime probability:
// sigma_eff(t) = sum_r P_r(t) * sigma_r(t). This is the series handed to
// pricing.
func (e *Engine) Effective(returns []float64, weights []Weights) []float64 {
	bull := e.ForRegime(returns, "bull")
	side := e.ForRegime(returns, "sideways")
	crisis := e.ForRegime(returns, "crisis")

	eff := make([]float64, len(returns))
	for i := range returns {
		w := Weights{Sideways: 1}
		if weights != nil {
			w = weights[i]
		}
		eff[i] = w.Bull*bull.Sigma[i] + w.Sideways*side.Sigma[i] + w.Crisis*crisis.Sigma[i]
	}
	return eff
}

// seedVariance initializes the recursion from the sample variance of the
// warmup slice, floored.
func (e *Engine) seedVariance(returns []float64) float64 {
	n := e.cfg.MinPeriods
	if n > len(returns) {
		n = len(returns)
	}
	warmup := returns[:n]

	m := 0.0
	for _, r := range warmup {
		m += r
	}
	m /= float64(len(warmup))

	v := 0.0
	for _, r := range warmup {
		v += (r - m) * (r - m)
	}
	if len(warmup) > 1 {
		v /= float64(len(warmup) - 1)
	}
	if v < e.cfg.MinVariance {
		v = e.cfg.MinVariance
	}
	return v
}

// Annualize converts per-observation volatility to annual terms.
func Annualize(sigma float64, periodsPerYear float64) float64 {
	return sigma * math.Sqrt(periodsPerYear)
}
