// Package pipeline chains the seven analytical stages into a
// deterministic, synchronous batch computation over one price series.
// Data flows strictly forward; no stage reaches back into another's state.
package pipeline

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionedge/internal/config"
	"github.com/sawpanic/optionedge/internal/domain/decision"
	"github.com/sawpanic/optionedge/internal/domain/drift"
	"github.com/sawpanic/optionedge/internal/domain/jump"
	"github.com/sawpanic/optionedge/internal/domain/mispricing"
	"github.com/sawpanic/optionedge/internal/domain/pricing"
	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/domain/series"
	"github.com/sawpanic/optionedge/internal/domain/volatility"
)

// SeriesResult is the pipeline output for one (series, contract) pair.
type SeriesResult struct {
	Symbol     string              `json:"symbol"`
	Contract   pricing.Contract    `json:"contract"`
	Decisions  []decision.Decision `json:"decisions"`
	JumpCount  int                 `json:"jump_count"`
	JumpParams jump.Params         `json:"jump_params"`
	Volatility volatility.Estimate `json:"-"` // regime-blended-decay estimate, kept for diagnostics
	Elapsed    time.Duration       `json:"elapsed"`
}

// Final returns the decision at the last timestamp, the headline verdict.
func (r *SeriesResult) Final() decision.Decision {
	if len(r.Decisions) == 0 {
		return decision.NewRefusal(time.Time{}, regime.Probs{Sideways: 1}, decision.DiagInsufficientHistory)
	}
	return r.Decisions[len(r.Decisions)-1]
}

// Pipeline wires the stage engines for one instrument's timeline. The
// stateful recursions (EWMA, Kalman, regime smoothing, signal smoothing)
// impose strict sequential order, so a Pipeline must not be shared across
// goroutines; the Runner creates one per series.
type Pipeline struct {
	cfg      *config.Config
	detector *jump.Detector
	vol      *volatility.Engine
	drift    *drift.Engine
	regime   *regime.Engine
	pricer   *pricing.Engine
	decider  *decision.Engine
}

// New builds a pipeline from validated configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		detector: jump.NewDetector(cfg.Jump),
		vol:      volatility.NewEngine(cfg.Volatility),
		drift:    drift.NewEngine(cfg.Drift),
		regime:   regime.NewEngine(cfg.Regime),
		pricer:   pricing.NewEngine(cfg.Pricing),
		decider:  decision.NewEngine(cfg.Decision),
	}
}

// Run executes the full pipeline over a validated price series and emits
// one decision per return timestamp. Timestamps without enough history, or
// where pricing fails, refuse with a diagnostic instead of aborting.
func (p *Pipeline) Run(ps *series.PriceSeries, contract pricing.Contract) (*SeriesResult, error) {
	start := time.Now()
	returns := ps.LogReturns()

	res := &SeriesResult{Symbol: ps.Symbol, Contract: contract}

	// Stage 1: jump/diffusion separation.
	ann := p.detector.Detect(returns)
	params := p.detector.EstimateParams(ann)
	res.JumpCount = ann.Count()
	res.JumpParams = params

	// Stage 2 (first pass): volatility on diffusion returns only. Regime
	// membership does not exist yet, so the first pass runs at the
	// sideways decay; the regime-blended decay follows below.
	firstPass := p.vol.Blended(ann.Diffusion, nil)

	// Stage 3 (first pass): Kalman drift. Jump timestamps are predict-only.
	firstDrift := p.drift.Estimate(ann.Diffusion, ann.IsJump, firstPass.Sigma, nil)

	// Stage 4: soft regime probabilities, temporally smoothed.
	probs := p.regime.Detect(firstPass.Sigma, firstDrift.Drift, ann.IsJump)

	// Stages 2+3 (second pass): regime-blended decay, per-regime vols for
	// the effective-parameter blend, and regime-scaled filter noise.
	weights := make([]volatility.Weights, len(probs))
	regimes := make([]string, len(probs))
	for i, pr := range probs {
		weights[i] = volatility.Weights{Bull: pr.Bull, Sideways: pr.Sideways, Crisis: pr.Crisis}
		regimes[i], _ = pr.Dominant()
	}
	blended := p.vol.Blended(ann.Diffusion, weights)
	drifts := p.drift.Estimate(ann.Diffusion, ann.IsJump, blended.Sigma, regimes)
	bullVol := p.vol.ForRegime(ann.Diffusion, "bull")
	sideVol := p.vol.ForRegime(ann.Diffusion, "sideways")
	crisisVol := p.vol.ForRegime(ann.Diffusion, "crisis")
	res.Volatility = blended

	// Stages 5-7 walk the timeline in order. The mispricing engine owns
	// EWM state across steps, so it is created once per series.
	misEngine := mispricing.NewEngine(p.cfg.Mispricing)

	decisions := make([]decision.Decision, 0, returns.Len())
	for t := 0; t < returns.Len(); t++ {
		ts := returns.Timestamps[t]

		if !ann.Classified || t+1 < p.cfg.Jump.MinObservations {
			decisions = append(decisions, decision.NewRefusal(ts, probs[t], decision.DiagInsufficientHistory))
			continue
		}

		eff := p.regime.Effective(probs[t], bullVol.Sigma[t], sideVol.Sigma[t], crisisVol.Sigma[t], drifts.Drift[t], params.Intensity)

		spot := ps.Points[t+1].Close // return t is the move into price point t+1
		priced, err := p.pricer.Price(spot, contract, eff, params.MeanSize, params.SizeVol, ts)
		if err != nil {
			decisions = append(decisions, decision.NewRefusal(ts, probs[t], decision.DiagPricingFailure))
			continue
		}

		sig, err := misEngine.Step(priced.Model, contract.MarketPrice, probs[t], drifts.Uncertainty[t])
		if err != nil {
			return nil, err
		}

		dec := p.decider.Decide(ts, sig, probs[t], decision.KellyInputs{
			JumpIntensity:    eff.JumpIntensity,
			DriftUncertainty: drifts.Uncertainty[t],
		})
		decisions = append(decisions, dec)
	}

	res.Decisions = decisions
	res.Elapsed = time.Since(start)

	final := res.Final()
	log.Debug().
		Str("symbol", ps.Symbol).
		Int("returns", returns.Len()).
		Int("jumps", res.JumpCount).
		Str("action", string(final.Action)).
		Float64("size", final.Size).
		Dur("elapsed", res.Elapsed).
		Msg("pipeline complete")

	return res, nil
}
