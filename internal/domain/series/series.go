// Package series holds the price and return series types consumed by the
// analytics pipeline. All downstream stages operate on log returns.
package series

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/optionedge/internal/errs"
)

// PricePoint is a single close-price observation.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// PriceSeries is an ordered sequence of close prices for one instrument.
// Invariants: timestamps strictly increasing, prices strictly positive.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// NewPriceSeries validates and wraps raw price points. Violations of the
// ordering or positivity invariants return a DataError.
func NewPriceSeries(symbol string, points []PricePoint) (*PriceSeries, error) {
	for i, p := range points {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return nil, &errs.DataError{
				Series: symbol,
				Reason: fmt.Sprintf("non-positive close %.6f at index %d", p.Close, i),
			}
		}
		if i > 0 && !points[i-1].Timestamp.Before(p.Timestamp) {
			return nil, &errs.DataError{
				Series: symbol,
				Reason: fmt.Sprintf("timestamps not strictly increasing at index %d", i),
			}
		}
	}
	return &PriceSeries{Symbol: symbol, Points: points}, nil
}

// Len returns the number of price observations.
func (s *PriceSeries) Len() int { return len(s.Points) }

// LastClose returns the most recent close, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Close
}

// ReturnSeries is the log-return series derived from a PriceSeries, one
// element shorter. Immutable once computed.
type ReturnSeries struct {
	Symbol     string
	Timestamps []time.Time
	Values     []float64
}

// LogReturns computes r_t = ln(P_t / P_{t-1}) for every adjacent pair.
func (s *PriceSeries) LogReturns() *ReturnSeries {
	if len(s.Points) < 2 {
		return &ReturnSeries{Symbol: s.Symbol}
	}
	ts := make([]time.Time, 0, len(s.Points)-1)
	vals := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		ts = append(ts, s.Points[i].Timestamp)
		vals = append(vals, math.Log(s.Points[i].Close/s.Points[i-1].Close))
	}
	return &ReturnSeries{Symbol: s.Symbol, Timestamps: ts, Values: vals}
}

// Len returns the number of returns.
func (r *ReturnSeries) Len() int { return len(r.Values) }
