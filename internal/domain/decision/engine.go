// Package decision maps the mispricing signal, regime probabilities and
// risk gates to a terminal BUY/SELL/REFUSE action with a bounded position
// size. REFUSE is the expected modal outcome.
package decision

import (
	"time"

	"github.com/sawpanic/optionedge/internal/domain/mispricing"
	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/errs"
)

// Action is the terminal pipeline verdict.
type Action string

const (
	Buy    Action = "BUY"
	Sell   Action = "SELL"
	Refuse Action = "REFUSE"
)

// Diagnostic flags attached to REFUSE decisions.
const (
	DiagPricingFailure      = "pricing_failure"
	DiagInsufficientHistory = "insufficient_history"
	DiagCrisisOverride      = "crisis_override"
	DiagBelowThreshold      = "below_threshold"
	DiagLowConfidence       = "low_confidence"
	DiagNoEdge              = "no_positive_edge"
)

// RegimeCaps are position ceilings per regime; the applied cap is the
// probability-weighted blend.
type RegimeCaps struct {
	Bull     float64 `yaml:"bull" validate:"gte=0"`
	Sideways float64 `yaml:"sideways" validate:"gte=0"`
	Crisis   float64 `yaml:"crisis" validate:"gte=0"`
}

// Config holds decision thresholds and sizing limits. Range violations are
// ConfigurationErrors: fatal at startup, never silently clamped.
type Config struct {
	DecisionThreshold  float64    `yaml:"decision_threshold" validate:"gte=0"`
	MinConfidence      float64    `yaml:"min_confidence" validate:"gte=0,lte=1"`
	KellyFraction      float64    `yaml:"kelly_fraction" validate:"gt=0"`
	MaxPosition        float64    `yaml:"max_position" validate:"gt=0"`
	MinPosition        float64    `yaml:"min_position" validate:"gte=0"`
	CrisisCutoff       float64    `yaml:"crisis_cutoff" validate:"gt=0,lte=1"`
	AllowCrisisTrades  bool       `yaml:"allow_crisis_trades"`
	JumpRiskMultiplier float64    `yaml:"jump_risk_multiplier" validate:"gte=0"`
	UncertaintyScale   float64    `yaml:"uncertainty_scale" validate:"gte=0"`
	RegimeCaps         RegimeCaps `yaml:"regime_position_caps"`
}

// DefaultConfig returns production decision parameters.
func DefaultConfig() Config {
	return Config{
		DecisionThreshold:  0.02,
		MinConfidence:      0.35,
		KellyFraction:      0.25,
		MaxPosition:        0.10,
		MinPosition:        0.005,
		CrisisCutoff:       0.50,
		AllowCrisisTrades:  false,
		JumpRiskMultiplier: 5.0,
		UncertaintyScale:   1000.0,
		RegimeCaps: RegimeCaps{
			Bull:     0.10,
			Sideways: 0.06,
			Crisis:   0.02,
		},
	}
}

// Validate enforces the hard sizing limits from the risk policy.
func (c Config) Validate() error {
	if c.KellyFraction > 0.25 {
		return &errs.ConfigurationError{Field: "kelly_fraction", Reason: "must be <= 0.25"}
	}
	if c.MaxPosition > 0.10 {
		return &errs.ConfigurationError{Field: "max_position", Reason: "must be <= 0.10"}
	}
	if c.MinPosition > c.MaxPosition {
		return &errs.ConfigurationError{Field: "min_position", Reason: "must be <= max_position"}
	}
	return nil
}

// Decision is the terminal output for one (timestamp, contract) pair.
type Decision struct {
	Timestamp     time.Time          `json:"timestamp"`
	Action        Action             `json:"action"`
	Size          float64            `json:"position_size"`
	KellyFraction float64            `json:"kelly_fraction"`
	Signal        mispricing.Signal  `json:"mispricing_signal"`
	Probs         regime.Probs       `json:"regime_probabilities"`
	Diagnostics   []string           `json:"diagnostics,omitempty"`
}

// Engine applies the decision rule and sizing.
type Engine struct {
	cfg   Config
	sizer *KellySizer
}

// NewEngine creates a decision engine. Call Config.Validate first; the
// engine assumes its limits hold.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, sizer: NewKellySizer(cfg)}
}

// NewRefusal builds a REFUSE decision carrying the given diagnostics, used
// by upstream stages that cannot produce a tradeable signal.
func NewRefusal(ts time.Time, probs regime.Probs, diags ...string) Decision {
	return Decision{Timestamp: ts, Action: Refuse, Probs: probs, Diagnostics: diags}
}

// Decide maps one timestamp's signal to an action and size.
func (e *Engine) Decide(ts time.Time, sig mispricing.Signal, probs regime.Probs, in KellyInputs) Decision {
	d := Decision{Timestamp: ts, Action: Refuse, Signal: sig, Probs: probs}

	// Safety gate first: a dominant crisis regime refuses regardless of
	// how attractive the mispricing looks.
	if probs.Crisis > e.cfg.CrisisCutoff && !e.cfg.AllowCrisisTrades {
		d.Diagnostics = append(d.Diagnostics, DiagCrisisOverride)
		return d
	}

	abs := sig.Normalized
	if abs < 0 {
		abs = -abs
	}
	if abs < e.cfg.DecisionThreshold {
		d.Diagnostics = append(d.Diagnostics, DiagBelowThreshold)
		return d
	}
	if sig.Confidence < e.cfg.MinConfidence {
		d.Diagnostics = append(d.Diagnostics, DiagLowConfidence)
		return d
	}

	size, fstar := e.sizer.Size(sig, probs, in)
	d.KellyFraction = fstar
	if size <= 0 {
		// A BUY/SELL signal with no positive edge is contradictory.
		d.Diagnostics = append(d.Diagnostics, DiagNoEdge)
		return d
	}

	if sig.Normalized > 0 {
		d.Action = Buy
	} else {
		d.Action = Sell
	}
	d.Size = size
	return d
}
