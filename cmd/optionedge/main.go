package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "OptionEdge"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     "optionedge",
		Short:   "Regime-aware option mispricing analysis with Kelly sizing",
		Version: version,
		Long: `OptionEdge turns price history and option quotes into BUY/SELL/REFUSE
decisions. It separates jumps from diffusion, estimates regime-conditioned
volatility and Kalman-filtered drift, prices under Black-Scholes/Merton,
and sizes any resulting trade with a risk-capped fractional Kelly rule.

REFUSE is the expected answer most of the time. That is the point.`,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis pipeline over price CSVs",
		Long:  "Runs jump detection, volatility/drift estimation, regime classification, pricing and decision sizing over one or more price series",
		RunE:  runAnalyze,
	}

	analyzeCmd.Flags().StringSlice("prices", nil, "Price CSV paths ({timestamp,close}), one series each (required)")
	analyzeCmd.Flags().String("contract", "", "Option contract YAML path (required)")
	analyzeCmd.Flags().String("config", "", "Configuration YAML (defaults used when omitted)")
	analyzeCmd.Flags().String("out", "", "Output directory override for report artifacts")
	analyzeCmd.Flags().Int("workers", 0, "Worker pool size override for multi-series runs")
	analyzeCmd.Flags().String("metrics-addr", "", "Serve /health and /metrics on this address during the run")
	analyzeCmd.Flags().String("store-dsn", "", "Postgres DSN to persist decisions (optional)")
	_ = analyzeCmd.MarkFlagRequired("prices")
	_ = analyzeCmd.MarkFlagRequired("contract")

	rootCmd.AddCommand(analyzeCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
