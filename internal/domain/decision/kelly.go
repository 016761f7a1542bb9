package decision

import (
	"github.com/sawpanic/optionedge/internal/domain/mispricing"
	"github.com/sawpanic/optionedge/internal/domain/regime"
)

// KellyInputs are the risk features that penalize the theoretical Kelly
// fraction.
type KellyInputs struct {
	JumpIntensity    float64 // effective jumps per observation
	DriftUncertainty float64 // Kalman posterior variance P_t
}

// KellySizer computes a risk-capped fractional Kelly position size.
//
// The payoff ratio b is the return on premium if the market converges to
// the model price: b = |Δ| for Δ = (model − market)/market. The win
// probability leans on signal confidence: p = 0.5 + 0.5·confidence. The
// theoretical fraction is the standard f* = p − q/b, scaled down by the
// configured fractional multiplier and penalized for jump risk and drift
// uncertainty, then clipped to the regime-weighted cap and max_position.
type KellySizer struct {
	cfg Config
}

// NewKellySizer creates a sizer from the decision configuration.
func NewKellySizer(cfg Config) *KellySizer {
	return &KellySizer{cfg: cfg}
}

// Size returns the clipped position size and the unscaled theoretical
// Kelly fraction. A non-positive f* returns size 0: a directional signal
// with no positive edge is contradictory and must not produce a sized
// trade.
func (s *KellySizer) Size(sig mispricing.Signal, probs regime.Probs, in KellyInputs) (size, fstar float64) {
	b := sig.Normalized
	if b < 0 {
		b = -b
	}
	if b <= 0 {
		return 0, 0
	}

	p := 0.5 + 0.5*sig.Confidence
	q := 1 - p
	fstar = p - q/b
	if fstar <= 0 {
		return 0, fstar
	}

	size = s.cfg.KellyFraction * fstar
	size /= 1 + s.cfg.JumpRiskMultiplier*in.JumpIntensity
	size /= 1 + s.cfg.UncertaintyScale*in.DriftUncertainty

	cap := probs.Bull*s.cfg.RegimeCaps.Bull +
		probs.Sideways*s.cfg.RegimeCaps.Sideways +
		probs.Crisis*s.cfg.RegimeCaps.Crisis
	if size > cap {
		size = cap
	}
	if size > s.cfg.MaxPosition {
		size = s.cfg.MaxPosition
	}
	if size < s.cfg.MinPosition {
		return 0, fstar
	}
	return size, fstar
}
