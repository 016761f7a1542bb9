// Package mispricing compares model option prices to market quotes and
// produces a signed, confidence-weighted, scale-free signal. It measures
// deviation only; it does not trade.
package mispricing

import (
	"math"

	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/errs"
)

// Config holds smoothing and confidence parameters.
type Config struct {
	EMAAlpha          float64 `yaml:"ema_alpha" validate:"gt=0,lte=1"`        // smoothing weight, default 0.3
	MinSignalStrength float64 `yaml:"min_signal_strength" validate:"gte=0"`   // deadband below which the signal is noise
	StrengthRef       float64 `yaml:"strength_ref" validate:"gt=0"`           // mispricing magnitude treated as saturating
	SigmoidK          float64 `yaml:"sigmoid_k" validate:"gt=0"`              // confidence sigmoid steepness
	UncertaintyScale  float64 `yaml:"uncertainty_scale" validate:"gte=0"`     // drift variance penalty on confidence
}

// DefaultConfig returns production signal parameters.
func DefaultConfig() Config {
	return Config{
		EMAAlpha:          0.3,
		MinSignalStrength: 0.01,
		StrengthRef:       0.10,
		SigmoidK:          5.0,
		UncertaintyScale:  1000.0,
	}
}

// Signal is the normalized mispricing at one timestamp.
//
// Raw and Normalized are Δ = (model − market) / market: positive when the
// market underprices the model (a BUY lean), negative when it overprices.
type Signal struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"` // EWM-smoothed, deadbanded
	Confidence float64 `json:"confidence"` // [0,1]
}

// Engine carries the EWM smoothing state across a series. One engine per
// (series, contract) pair; state is never shared across instruments.
type Engine struct {
	cfg     Config
	smooth  float64
	started bool
}

// NewEngine creates a mispricing engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Reset clears the smoothing state.
func (e *Engine) Reset() {
	e.smooth = 0
	e.started = false
}

// Step folds one (model, market) pair into the smoothed signal.
// Confidence combines three stability terms: signal strength, regime
// probability concentration, and inverse drift-estimate variance — low
// when the regime is ambiguous or the drift is still uncertain.
func (e *Engine) Step(modelPrice, marketPrice float64, probs regime.Probs, driftVariance float64) (Signal, error) {
	if marketPrice <= 0 || math.IsNaN(marketPrice) {
		return Signal{}, &errs.DataError{Series: "contract", Reason: "non-positive market price"}
	}
	if modelPrice < 0 || math.IsNaN(modelPrice) {
		return Signal{}, &errs.NumericalInstabilityError{Stage: "mispricing", Reason: "invalid model price"}
	}

	raw := (modelPrice - marketPrice) / marketPrice

	if !e.started {
		e.smooth = raw
		e.started = true
	} else {
		e.smooth = e.cfg.EMAAlpha*raw + (1-e.cfg.EMAAlpha)*e.smooth
	}

	normalized := e.smooth
	if math.Abs(normalized) < e.cfg.MinSignalStrength {
		normalized = 0
	}

	return Signal{
		Raw:        raw,
		Normalized: normalized,
		Confidence: e.confidence(normalized, probs, driftVariance),
	}, nil
}

func (e *Engine) confidence(normalized float64, probs regime.Probs, driftVariance float64) float64 {
	if normalized == 0 {
		return 0
	}

	bias := math.Abs(normalized) / e.cfg.StrengthRef
	if bias > 1 {
		bias = 1
	}
	strength := 1.0 / (1.0 + math.Exp(-e.cfg.SigmoidK*(bias-0.5)))

	certainty := 1.0
	if driftVariance > 0 {
		certainty = 1.0 / (1.0 + e.cfg.UncertaintyScale*driftVariance)
	}

	conf := strength * probs.Concentration() * certainty
	if conf > 1 {
		conf = 1
	}
	return conf
}
