// Package regime produces smoothed soft probabilities over
// {Bull, Sideways, Crisis} from volatility, drift and jump-frequency
// features. Membership is sigmoid-scored against configured boundaries
// rather than hard-switched, and the probability vector is exponentially
// smoothed across time to suppress regime flapping.
package regime

import (
	"math"
)

// Probs is a probability vector over the three regimes. Values lie in
// [0,1] and sum to 1 within floating tolerance at every timestamp.
type Probs struct {
	Bull     float64 `json:"bull"`
	Sideways float64 `json:"sideways"`
	Crisis   float64 `json:"crisis"`
}

// Sum returns the total probability mass.
func (p Probs) Sum() float64 { return p.Bull + p.Sideways + p.Crisis }

// Dominant returns the name and probability of the most likely regime.
func (p Probs) Dominant() (string, float64) {
	name, max := "bull", p.Bull
	if p.Sideways > max {
		name, max = "sideways", p.Sideways
	}
	if p.Crisis > max {
		name, max = "crisis", p.Crisis
	}
	return name, max
}

// Concentration maps the dominant probability to [0,1]: 0 at the uniform
// vector, 1 when one regime holds all mass. Feeds signal confidence.
func (p Probs) Concentration() float64 {
	_, max := p.Dominant()
	c := (max - 1.0/3.0) / (2.0 / 3.0)
	if c < 0 {
		return 0
	}
	return c
}

func (p Probs) normalized() Probs {
	total := p.Sum()
	if total <= 0 {
		return Probs{Sideways: 1}
	}
	return Probs{Bull: p.Bull / total, Sideways: p.Sideways / total, Crisis: p.Crisis / total}
}

// Config holds regime boundaries and smoothing parameters.
type Config struct {
	VolWindow         int     `yaml:"vol_window" validate:"gt=1"`              // trailing window for vol percentile rank
	JumpWindow        int     `yaml:"jump_window" validate:"gt=1"`             // trailing window for jump frequency
	HighVolPct        float64 `yaml:"high_vol_pct" validate:"gt=0,lt=1"`       // vol rank above this leans crisis
	LowVolPct         float64 `yaml:"low_vol_pct" validate:"gt=0,lt=1"`        // vol rank below this leans bull
	JumpRateThreshold float64 `yaml:"jump_rate_threshold" validate:"gt=0"`     // jump frequency leaning crisis
	SmoothingHalfLife float64 `yaml:"regime_smoothing_halflife" validate:"gt=0"` // steps for probability half-life
	Steepness         float64 `yaml:"sigmoid_steepness" validate:"gt=0"`       // soft-threshold sharpness
	CrisisJumpBoost   float64 `yaml:"crisis_jump_boost" validate:"gte=0"`      // jump intensity inflation per crisis prob
}

// DefaultConfig returns the production regime boundaries.
func DefaultConfig() Config {
	return Config{
		VolWindow:         60,
		JumpWindow:        60,
		HighVolPct:        0.80,
		LowVolPct:         0.30,
		JumpRateThreshold: 0.05,
		SmoothingHalfLife: 5.0,
		Steepness:         8.0,
		CrisisJumpBoost:   2.0,
	}
}

// EffectiveParams is the probability-weighted blend of per-regime pricing
// inputs. Derived, recomputed each call.
type EffectiveParams struct {
	Sigma         float64 `json:"sigma"`
	Mu            float64 `json:"mu"`
	JumpIntensity float64 `json:"jump_intensity"`
}

// Engine scores and smooths regime membership.
type Engine struct {
	cfg Config
}

// NewEngine creates a regime engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Detect produces a smoothed probability vector per timestamp from the
// volatility estimate, drift path and jump flags. Timestamps without a
// full feature window fall back to a Sideways-dominant prior rather than
// failing.
func (e *Engine) Detect(sigma, driftMean []float64, isJump []bool) []Probs {
	n := len(sigma)
	out := make([]Probs, n)
	if n == 0 {
		return out
	}

	jumpRate := trailingRate(isJump, e.cfg.JumpWindow)

	// Smoothing weight from the configured half-life.
	w := 1.0 - math.Exp2(-1.0/e.cfg.SmoothingHalfLife)

	prev := Probs{Sideways: 1}
	for t := 0; t < n; t++ {
		raw := Probs{Sideways: 1}
		if t+1 >= e.cfg.VolWindow {
			raw = e.score(volRank(sigma, t, e.cfg.VolWindow), jumpRate[t], driftTilt(driftMean, sigma, t, e.cfg.VolWindow))
		}

		smoothed := Probs{
			Bull:     (1-w)*prev.Bull + w*raw.Bull,
			Sideways: (1-w)*prev.Sideways + w*raw.Sideways,
			Crisis:   (1-w)*prev.Crisis + w*raw.Crisis,
		}.normalized()

		out[t] = smoothed
		prev = smoothed
	}
	return out
}

// score computes raw (unsmoothed) memberships from the three features.
func (e *Engine) score(vRank, jRate, tilt float64) Probs {
	k := e.cfg.Steepness

	// Crisis: high volatility rank or elevated jump frequency. Soft OR so
	// either feature alone can dominate.
	crisisVol := sigmoid(k * (vRank - e.cfg.HighVolPct))
	crisisJump := sigmoid(k * (jRate - e.cfg.JumpRateThreshold) / e.cfg.JumpRateThreshold)
	crisis := 1.0 - (1.0-crisisVol)*(1.0-crisisJump)

	// Bull: calm volatility, few jumps, positive drift tilt.
	bullVol := sigmoid(k * (e.cfg.LowVolPct - vRank))
	bullJump := sigmoid(k * (e.cfg.JumpRateThreshold/2 - jRate) / e.cfg.JumpRateThreshold)
	bullDrift := 0.5 + 0.5*sigmoid(tilt)
	bull := bullVol * bullJump * bullDrift

	// Sideways: mid-band volatility with a floor so the vector never
	// degenerates to a hard switch.
	side := sigmoid(k*(vRank-e.cfg.LowVolPct))*sigmoid(k*(e.cfg.HighVolPct-vRank)) + 0.15

	return Probs{Bull: bull, Sideways: side, Crisis: crisis}.normalized()
}

// Effective blends per-regime pricing inputs by probability. The jump
// intensity is additionally inflated with crisis probability: jump
// clustering is what a crisis regime means.
func (e *Engine) Effective(p Probs, sigmaBull, sigmaSideways, sigmaCrisis, mu, jumpIntensity float64) EffectiveParams {
	return EffectiveParams{
		Sigma:         p.Bull*sigmaBull + p.Sideways*sigmaSideways + p.Crisis*sigmaCrisis,
		Mu:            mu,
		JumpIntensity: jumpIntensity * (1.0 + e.cfg.CrisisJumpBoost*p.Crisis),
	}
}

// volRank is the midrank percentile of sigma[t] within its trailing
// window. Midrank keeps a flat series at 0.5 instead of 1.0.
func volRank(sigma []float64, t, window int) float64 {
	lo := t - window + 1
	if lo < 0 {
		lo = 0
	}
	less, equal := 0, 0
	for i := lo; i <= t; i++ {
		switch {
		case sigma[i] < sigma[t]:
			less++
		case sigma[i] == sigma[t]:
			equal++
		}
	}
	n := t - lo + 1
	return (float64(less) + 0.5*float64(equal)) / float64(n)
}

// driftTilt is a t-statistic-like measure of drift significance against
// the volatility of the mean over the window.
func driftTilt(driftMean, sigma []float64, t, window int) float64 {
	if t >= len(driftMean) {
		return 0
	}
	se := sigma[t]/math.Sqrt(float64(window)) + 1e-12
	return driftMean[t] / se
}

// trailingRate is the fraction of true flags over the trailing window at
// each index.
func trailingRate(flags []bool, window int) []float64 {
	rates := make([]float64, len(flags))
	count := 0
	for i := range flags {
		if flags[i] {
			count++
		}
		if i >= window && flags[i-window] {
			count--
		}
		span := i + 1
		if span > window {
			span = window
		}
		rates[i] = float64(count) / float64(span)
	}
	return rates
}
