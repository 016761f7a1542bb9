// Package pricing prices European options under regime-conditioned
// Black-Scholes and Merton jump-diffusion assumptions.
package pricing

import (
	"math"
	"time"

	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/errs"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Contract is a read-only option quote, one per pricing request.
type Contract struct {
	Type        OptionType `json:"type" yaml:"type"`
	Strike      float64    `json:"strike" yaml:"strike"`
	Expiry      time.Time  `json:"expiry" yaml:"expiry"`
	RiskFree    float64    `json:"risk_free_rate" yaml:"risk_free_rate"`
	MarketPrice float64    `json:"market_price" yaml:"market_price"`
}

// TimeToExpiry returns the year fraction remaining at asOf.
func (c Contract) TimeToExpiry(asOf time.Time) float64 {
	return c.Expiry.Sub(asOf).Hours() / 24.0 / 365.0
}

// Config controls pricing behavior.
type Config struct {
	MertonTerms   int     `yaml:"merton_terms" validate:"gte=1"`   // Poisson sum truncation, default 20
	LambdaCutoff  float64 `yaml:"lambda_cutoff" validate:"gte=0"`  // below this, jump intensity is negligible
	UseModelDrift bool    `yaml:"use_model_drift"`                 // discount at mu_eff instead of risk-free
}

// DefaultConfig returns production pricing parameters.
func DefaultConfig() Config {
	return Config{
		MertonTerms:  20,
		LambdaCutoff: 1e-8,
	}
}

// Result holds both model prices and the one chosen for the mispricing
// comparison. Immutable per request.
type Result struct {
	BlackScholes float64 `json:"black_scholes"`
	Merton       float64 `json:"merton"`
	Model        float64 `json:"model"`
	UsedMerton   bool    `json:"used_merton"`
}

// Engine prices contracts from effective parameters.
type Engine struct {
	cfg Config
}

// NewEngine creates a pricing engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Price values the contract from the regime-blended effective parameters
// and the jump size distribution. Expired contracts and degenerate
// volatility are rejected as a pricing failure so the decision stage can
// force REFUSE instead of trading on garbage.
//
// Continuity at zero jump intensity is a correctness requirement: as the
// effective intensity goes to zero the Merton sum collapses to its k=0
// term and the reported price converges to plain Black-Scholes.
func (e *Engine) Price(spot float64, c Contract, eff regime.EffectiveParams, jumpMean, jumpVol float64, asOf time.Time) (Result, error) {
	tte := c.TimeToExpiry(asOf)
	if tte <= 0 {
		return Result{}, &errs.NumericalInstabilityError{Stage: "pricing", Reason: "time to expiry <= 0"}
	}
	if eff.Sigma <= 0 || math.IsNaN(eff.Sigma) {
		return Result{}, &errs.NumericalInstabilityError{Stage: "pricing", Reason: "effective volatility <= 0"}
	}
	if spot <= 0 {
		return Result{}, &errs.NumericalInstabilityError{Stage: "pricing", Reason: "non-positive spot"}
	}

	rate := c.RiskFree
	if e.cfg.UseModelDrift {
		rate = eff.Mu
	}

	bs := blackScholes(c.Type, spot, c.Strike, tte, rate, eff.Sigma)

	res := Result{BlackScholes: bs, Merton: bs, Model: bs}
	if eff.JumpIntensity > e.cfg.LambdaCutoff {
		res.Merton = e.merton(c.Type, spot, c.Strike, tte, rate, eff.Sigma, eff.JumpIntensity, jumpMean, jumpVol)
		res.Model = res.Merton
		res.UsedMerton = true
	}
	return res, nil
}

// blackScholes is the closed-form European price. Degenerate inputs fall
// back to intrinsic value, matching the limit of the formula.
func blackScholes(typ OptionType, s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		return intrinsic(typ, s, k)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	disc := math.Exp(-r * t)
	if typ == Put {
		return k*disc*normCDF(-d2) - s*normCDF(-d1)
	}
	return s*normCDF(d1) - k*disc*normCDF(d2)
}

// merton sums Black-Scholes prices over a truncated Poisson distribution
// of jump counts. Each count k perturbs volatility and the carry:
//
//	sigma_k = sqrt(sigma² + k·sigmaJ²/T)
//	r_k     = r − λ(e^{muJ+sigmaJ²/2} − 1) + k·muJ/T
//
// weighted by the Poisson mass at k.
func (e *Engine) merton(typ OptionType, s, k, t, r, sigma, lambda, muJ, sigmaJ float64) float64 {
	compensator := lambda * (math.Exp(muJ+0.5*sigmaJ*sigmaJ) - 1)

	price := 0.0
	weight := math.Exp(-lambda * t) // Poisson mass at n=0, updated iteratively
	for n := 0; n < e.cfg.MertonTerms; n++ {
		if n > 0 {
			weight *= lambda * t / float64(n)
		}
		sigmaN := math.Sqrt(sigma*sigma + float64(n)*sigmaJ*sigmaJ/t)
		rN := r - compensator + float64(n)*muJ/t
		price += weight * blackScholes(typ, s, k, t, rN, sigmaN)
	}
	return price
}

func intrinsic(typ OptionType, s, k float64) float64 {
	if typ == Put {
		return math.Max(k-s, 0)
	}
	return math.Max(s-k, 0)
}

// normCDF is the standard normal CDF.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
