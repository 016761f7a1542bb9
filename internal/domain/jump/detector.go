// Package jump separates log returns into jump and diffusion components.
//
// Raw standard deviation is itself inflated by jumps, so the threshold test
// runs against a robust rolling dispersion (median absolute deviation) and
// iterates: flag, re-estimate excluding flagged returns, repeat until the
// jump set stabilizes or the iteration cap is hit.
package jump

import (
	"math"
	"sort"

	"github.com/sawpanic/optionedge/internal/domain/series"
)

// madToStd converts a median absolute deviation to a standard deviation
// equivalent under normality.
const madToStd = 1.4826

// Config holds jump detection parameters.
type Config struct {
	Threshold       float64 `yaml:"threshold" validate:"gte=0"`         // z-score cutoff, default 3.0
	Window          int     `yaml:"window" validate:"gt=1"`             // rolling window length
	MinObservations int     `yaml:"min_observations" validate:"gt=0"`   // below this, no classification
	MinPeriods      int     `yaml:"min_periods" validate:"gt=1"`        // minimum window fill before testing
	MaxIterations   int     `yaml:"max_iterations" validate:"gte=1"`    // fixed-point iteration cap
	UseRobust       bool    `yaml:"use_robust"`                         // MAD dispersion vs plain std
}

// DefaultConfig returns the production jump detection parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:       3.0,
		Window:          20,
		MinObservations: 30,
		MinPeriods:      5,
		MaxIterations:   5,
		UseRobust:       true,
	}
}

// Annotation partitions a return series into jump and diffusion subsets.
// Every return is classified exactly once: JumpReturns[i] + Diffusion[i]
// reconstructs the original return at i.
type Annotation struct {
	IsJump      []bool
	JumpReturns []float64 // return on jump indices, 0 elsewhere
	Diffusion   []float64 // return on diffusion indices, 0 elsewhere
	Iterations  int
	Classified  bool // false when history was too short to attempt detection
}

// Count returns the number of flagged jumps.
func (a *Annotation) Count() int {
	n := 0
	for _, j := range a.IsJump {
		if j {
			n++
		}
	}
	return n
}

// Params describes the jump size distribution used by Merton pricing.
type Params struct {
	MeanSize  float64 // mean log jump size
	SizeVol   float64 // jump size volatility
	Intensity float64 // jumps per observation
}

// Detector flags discontinuous moves in a return series.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect classifies every return as jump or diffusion. Series shorter than
// MinObservations are returned untouched with all returns treated as
// diffusion; the caller sees Classified=false and proceeds fail-soft.
// The input series is never mutated.
func (d *Detector) Detect(r *series.ReturnSeries) *Annotation {
	n := r.Len()
	ann := &Annotation{
		IsJump:      make([]bool, n),
		JumpReturns: make([]float64, n),
		Diffusion:   make([]float64, n),
	}

	if n < d.cfg.MinObservations {
		copy(ann.Diffusion, r.Values)
		return ann
	}
	ann.Classified = true

	flags := make([]bool, n)
	for iter := 0; iter < d.cfg.MaxIterations; iter++ {
		ann.Iterations = iter + 1
		next := d.flagOnce(r.Values, flags)
		if equalFlags(flags, next) {
			flags = next
			break
		}
		flags = next
	}

	copy(ann.IsJump, flags)
	for i, v := range r.Values {
		if flags[i] {
			ann.JumpReturns[i] = v
		} else {
			ann.Diffusion[i] = v
		}
	}
	return ann
}

// flagOnce runs one pass of the threshold test, estimating dispersion from
// returns not currently flagged as jumps.
func (d *Detector) flagOnce(values []float64, excluded []bool) []bool {
	n := len(values)
	flags := make([]bool, n)
	window := make([]float64, 0, d.cfg.Window)

	for i := 0; i < n; i++ {
		window = window[:0]
		lo := i - d.cfg.Window + 1
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i; j++ {
			if !excluded[j] {
				window = append(window, values[j])
			}
		}
		if len(window) < d.cfg.MinPeriods {
			continue
		}

		center, scale := d.dispersion(window)
		if scale <= 0 {
			continue
		}
		if math.Abs(values[i]-center)/scale > d.cfg.Threshold {
			flags[i] = true
		}
	}
	return flags
}

// dispersion returns a center and scale estimate for the window: rolling
// median and MAD in robust mode, mean and std otherwise.
func (d *Detector) dispersion(window []float64) (center, scale float64) {
	if d.cfg.UseRobust {
		med := median(window)
		dev := make([]float64, len(window))
		for i, v := range window {
			dev[i] = math.Abs(v - med)
		}
		return med, median(dev) * madToStd
	}
	return mean(window), stddev(window)
}

// EstimateParams estimates the jump size distribution from an annotation.
// With zero jumps all parameters are zero and Merton pricing collapses to
// plain Black-Scholes.
func (d *Detector) EstimateParams(ann *Annotation) Params {
	jumps := make([]float64, 0, 8)
	for i, isJump := range ann.IsJump {
		if isJump {
			jumps = append(jumps, ann.JumpReturns[i])
		}
	}
	if len(jumps) == 0 || len(ann.IsJump) == 0 {
		return Params{}
	}
	return Params{
		MeanSize:  mean(jumps),
		SizeVol:   stddev(jumps),
		Intensity: float64(len(jumps)) / float64(len(ann.IsJump)),
	}
}

// JumpRate returns the trailing jump frequency over the given window at
// each index, used as a regime feature.
func JumpRate(isJump []bool, window int) []float64 {
	rates := make([]float64, len(isJump))
	count := 0
	for i := range isJump {
		if isJump[i] {
			count++
		}
		if i >= window && isJump[i-window] {
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

func equalFlags(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
