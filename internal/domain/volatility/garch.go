package volatility

import "math"

// GARCH fits a GARCH(1,1) conditional variance recursion
//
//	h_t = omega + alpha*r²_{t-1} + beta*h_{t-1}
//
// by variance-targeted quasi-likelihood over a small (alpha, beta) grid.
// A full optimizer buys little here: the estimate feeds a blend, not a
// standalone forecast. Degenerate fits (alpha+beta >= 1, non-finite
// likelihood) fall back to EWMA with the sideways decay.
func (e *Engine) GARCH(returns []float64) Estimate {
	if len(returns) < e.cfg.MinPeriods {
		return e.EWMA(returns, e.cfg.SidewaysLambda)
	}

	uncond := e.seedVariance(returns)

	bestAlpha, bestBeta := 0.0, 0.0
	bestLL := math.Inf(-1)
	found := false
	for _, alpha := range []float64{0.03, 0.05, 0.08, 0.12, 0.18} {
		for _, beta := range []float64{0.80, 0.85, 0.90, 0.94} {
			if alpha+beta >= 0.999 {
				continue
			}
			ll := e.quasiLogLikelihood(returns, uncond, alpha, beta)
			if math.IsNaN(ll) || math.IsInf(ll, 0) {
				continue
			}
			if ll > bestLL {
				bestLL = ll
				bestAlpha, bestBeta = alpha, beta
				found = true
			}
		}
	}
	if !found {
		return e.EWMA(returns, e.cfg.SidewaysLambda)
	}

	omega := uncond * (1 - bestAlpha - bestBeta)
	sigma := make([]float64, len(returns))
	h := uncond
	for i := range returns {
		if i > 0 {
			h = omega + bestAlpha*returns[i-1]*returns[i-1] + bestBeta*h
		}
		if h < e.cfg.MinVariance {
			h = e.cfg.MinVariance
		}
		sigma[i] = math.Sqrt(h)
	}
	return Estimate{Sigma: sigma, Decay: bestBeta, Method: "garch"}
}

// quasiLogLikelihood scores one (alpha, beta) pair under Gaussian errors
// with variance targeting.
func (e *Engine) quasiLogLikelihood(returns []float64, uncond, alpha, beta float64) float64 {
	omega := uncond * (1 - alpha - beta)
	h := uncond
	ll := 0.0
	for i, r := range returns {
		if i > 0 {
			h = omega + alpha*returns[i-1]*returns[i-1] + beta*h
		}
		if h < e.cfg.MinVariance {
			h = e.cfg.MinVariance
		}
		ll += -0.5 * (math.Log(h) + r*r/h)
	}
	return ll
}
