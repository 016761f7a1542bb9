// Package drift estimates a latent time-varying drift with a 1-D Kalman
// filter. The drift follows a random walk; the observed diffusion return is
// drift plus Gaussian noise whose variance is tied to the current
// volatility estimate. The drift is a directional bias tracker, not the
// risk driver; its posterior variance penalizes Kelly sizing downstream.
package drift

import (
	"math"
)

// Config holds the filter's noise parameters.
type Config struct {
	InitialDrift   float64 `yaml:"initial_drift"`                          // prior mean when no warmup exists
	ProcessNoise   float64 `yaml:"kalman_process_noise" validate:"gt=0"`   // base Q, default 1e-5
	MinObsVariance float64 `yaml:"kalman_obs_noise" validate:"gt=0"`       // R floor, default 1e-6
	Adaptive       bool    `yaml:"kalman_adaptive"`                        // tie R to current volatility
	WarmupLen      int     `yaml:"kalman_warmup" validate:"gte=0"`         // observations seeding the prior
}

// DefaultConfig returns production filter parameters.
func DefaultConfig() Config {
	return Config{
		InitialDrift:   0.0,
		ProcessNoise:   1e-5,
		MinObsVariance: 1e-6,
		Adaptive:       true,
		WarmupLen:      20,
	}
}

// State is the filter state (posterior mean and variance). Owned
// exclusively by the engine; updated sequentially, never rolled back.
type State struct {
	Mean     float64
	Variance float64
}

// Predict advances the state one step under the random-walk model: the
// mean carries over, the variance grows by Q.
func Predict(s State, q float64) State {
	return State{Mean: s.Mean, Variance: s.Variance + q}
}

// Update folds one observation into a predicted state. The gain is
// P⁻/(P⁻+R); both mean and variance are corrected proportionally. R is
// clamped to rFloor when R+P⁻ would make the gain undefined.
func Update(s State, obs, r, rFloor float64) State {
	if r < rFloor {
		r = rFloor
	}
	denom := s.Variance + r
	if denom <= 0 {
		// Variance collapse guard: re-inflate from the floor.
		denom = rFloor
	}
	gain := s.Variance / denom
	return State{
		Mean:     s.Mean + gain*(obs-s.Mean),
		Variance: (1 - gain) * s.Variance,
	}
}

// Engine runs the filter over a diffusion return series.
type Engine struct {
	cfg Config
}

// NewEngine creates a drift engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// regimeQMult scales process noise by regime: drift can wander faster in
// stressed markets.
func regimeQMult(regime string) float64 {
	switch regime {
	case "bull":
		return 1.0
	case "crisis":
		return 10.0
	default:
		return 3.0
	}
}

// Result is the filtered drift path with per-step uncertainty.
type Result struct {
	Drift       []float64
	Uncertainty []float64
}

// Last returns the final state, or the zero state for an empty result.
func (r *Result) Last() State {
	if len(r.Drift) == 0 {
		return State{}
	}
	n := len(r.Drift) - 1
	return State{Mean: r.Drift[n], Variance: r.Uncertainty[n]}
}

// Estimate runs the predict/update recursion over the series.
//
// isJump marks timestamps excluded as jumps: those steps are predict-only
// so a jump cannot corrupt the drift estimate. sigma supplies the current
// volatility estimate per step (observation noise = sigma², floored).
// regimes optionally names the dominant regime per step for noise scaling;
// nil defaults every step to sideways.
func (e *Engine) Estimate(returns []float64, isJump []bool, sigma []float64, regimes []string) Result {
	n := len(returns)
	res := Result{
		Drift:       make([]float64, n),
		Uncertainty: make([]float64, n),
	}
	if n == 0 {
		return res
	}

	state := e.warmStart(returns, isJump)

	for i := 0; i < n; i++ {
		regime := "sideways"
		if regimes != nil {
			regime = regimes[i]
		}

		q := e.cfg.ProcessNoise * regimeQMult(regime)
		state = Predict(state, q)

		if i < len(isJump) && isJump[i] {
			// Jump step: predict only.
			res.Drift[i] = state.Mean
			res.Uncertainty[i] = state.Variance
			continue
		}

		r := e.cfg.MinObsVariance
		if e.cfg.Adaptive && i < len(sigma) {
			v := sigma[i] * sigma[i]
			if math.IsInf(v, 0) || math.IsNaN(v) {
				v = e.cfg.MinObsVariance
			}
			if v > r {
				r = v
			}
			if regime == "crisis" {
				r *= 2.0
			}
		}

		state = Update(state, returns[i], r, e.cfg.MinObsVariance)
		res.Drift[i] = state.Mean
		res.Uncertainty[i] = state.Variance
	}
	return res
}

// warmStart seeds the prior from the first diffusion returns so the filter
// does not spend its early steps converging from an arbitrary zero prior.
func (e *Engine) warmStart(returns []float64, isJump []bool) State {
	warm := make([]float64, 0, e.cfg.WarmupLen)
	for i := 0; i < len(returns) && len(warm) < e.cfg.WarmupLen; i++ {
		if i < len(isJump) && isJump[i] {
			continue
		}
		warm = append(warm, returns[i])
	}
	if len(warm) == 0 {
		return State{Mean: e.cfg.InitialDrift, Variance: 1e-4}
	}

	m := 0.0
	for _, v := range warm {
		m += v
	}
	m /= float64(len(warm))

	p := 0.0
	for _, v := range warm {
		p += (v - m) * (v - m)
	}
	if len(warm) > 1 {
		p /= float64(len(warm) - 1)
	}
	if p < e.cfg.MinObsVariance {
		p = e.cfg.MinObsVariance
	}
	return State{Mean: m, Variance: p}
}
