// Package data loads price series and option contracts from files. It is
// a producer for the analytical core: everything it emits is validated
// before the pipeline sees it.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/optionedge/internal/domain/pricing"
	"github.com/sawpanic/optionedge/internal/domain/series"
	"github.com/sawpanic/optionedge/internal/errs"
)

// timestamp layouts accepted in price CSVs, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadPriceCSV reads a {timestamp, close} CSV into a validated
// PriceSeries. A header row is detected and skipped. The symbol defaults
// to the file name without extension.
func LoadPriceCSV(path string) (*series.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price csv: %w", err)
	}
	defer f.Close()

	symbol := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	points, err := parsePrices(f, symbol)
	if err != nil {
		return nil, err
	}
	return series.NewPriceSeries(symbol, points)
}

func parsePrices(r io.Reader, symbol string) ([]series.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	points := make([]series.PricePoint, 0, 256)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errs.DataError{Series: symbol, Reason: fmt.Sprintf("csv parse: %v", err)}
		}
		line++
		if len(record) < 2 {
			return nil, &errs.DataError{Series: symbol, Reason: fmt.Sprintf("line %d: want 2 columns, got %d", line, len(record))}
		}

		ts, terr := parseTime(record[0])
		if terr != nil {
			if line == 1 {
				continue // header row
			}
			return nil, &errs.DataError{Series: symbol, Reason: fmt.Sprintf("line %d: bad timestamp %q", line, record[0])}
		}

		close, perr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if perr != nil {
			return nil, &errs.DataError{Series: symbol, Reason: fmt.Sprintf("line %d: bad close %q", line, record[1])}
		}

		points = append(points, series.PricePoint{Timestamp: ts, Close: close})
	}
	return points, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// contractFile mirrors the YAML contract description.
type contractFile struct {
	Type        string  `yaml:"type"`
	Strike      float64 `yaml:"strike"`
	Expiry      string  `yaml:"expiry"`
	RiskFree    float64 `yaml:"risk_free_rate"`
	MarketPrice float64 `yaml:"market_price"`
}

// LoadContractYAML reads a single option contract description. Omitted
// risk_free_rate falls back to defaultRiskFree from the run configuration.
func LoadContractYAML(path string, defaultRiskFree float64) (pricing.Contract, error) {
	var c pricing.Contract

	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read contract %s: %w", path, err)
	}

	var cf contractFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return c, fmt.Errorf("parse contract %s: %w", path, err)
	}

	expiry, err := parseTime(cf.Expiry)
	if err != nil {
		return c, &errs.DataError{Series: "contract", Reason: fmt.Sprintf("bad expiry %q", cf.Expiry)}
	}
	if cf.Strike <= 0 {
		return c, &errs.DataError{Series: "contract", Reason: "strike must be positive"}
	}
	if cf.MarketPrice <= 0 {
		return c, &errs.DataError{Series: "contract", Reason: "market_price must be positive"}
	}

	typ := pricing.Call
	if strings.EqualFold(cf.Type, string(pricing.Put)) {
		typ = pricing.Put
	}
	rate := cf.RiskFree
	if rate == 0 {
		rate = defaultRiskFree
	}

	return pricing.Contract{
		Type:        typ,
		Strike:      cf.Strike,
		Expiry:      expiry,
		RiskFree:    rate,
		MarketPrice: cf.MarketPrice,
	}, nil
}
