package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/optionedge/internal/application/pipeline"
	"github.com/sawpanic/optionedge/internal/config"
	"github.com/sawpanic/optionedge/internal/data"
	httpserver "github.com/sawpanic/optionedge/internal/interfaces/http"
	"github.com/sawpanic/optionedge/internal/metrics"
	"github.com/sawpanic/optionedge/internal/persistence/postgres"
	"github.com/sawpanic/optionedge/internal/report"
)

func runAnalyze(cmd *cobra.Command, _ []string) error {
	pricePaths, _ := cmd.Flags().GetStringSlice("prices")
	contractPath, _ := cmd.Flags().GetString("contract")
	configPath, _ := cmd.Flags().GetString("config")
	outDir, _ := cmd.Flags().GetString("out")
	workers, _ := cmd.Flags().GetInt("workers")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	storeDSN, _ := cmd.Flags().GetString("store-dsn")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Run.OutputDir = outDir
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if metricsAddr != "" {
		cfg.Run.MetricsAddr = metricsAddr
	}
	if storeDSN != "" {
		cfg.Run.StoreDSN = storeDSN
	}

	contract, err := data.LoadContractYAML(contractPath, cfg.Run.RiskFreeRate)
	if err != nil {
		return err
	}

	jobs := make([]pipeline.Job, 0, len(pricePaths))
	for _, path := range pricePaths {
		ps, err := data.LoadPriceCSV(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, pipeline.Job{Series: ps, Contract: contract})
	}
	log.Info().Int("series", len(jobs)).Str("contract", fmt.Sprintf("%s K=%.2f", contract.Type, contract.Strike)).Msg("starting analysis")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *httpserver.Server
	if cfg.Run.MetricsAddr != "" {
		srv = httpserver.NewServer(cfg.Run.MetricsAddr)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	runner := pipeline.NewRunner(cfg, m)
	rep := runner.RunAll(ctx, jobs)

	writer := report.NewWriter(cfg.Run.OutputDir)
	jsonPath, err := writer.WriteJSON(rep)
	if err != nil {
		return err
	}
	csvPath, err := writer.WriteCSV(rep)
	if err != nil {
		return err
	}
	log.Info().Str("json", jsonPath).Str("csv", csvPath).Msg("reports written")

	if cfg.Run.StoreDSN != "" {
		store, err := postgres.Open(cfg.Run.StoreDSN, 30*time.Second)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(ctx, rep); err != nil {
			return fmt.Errorf("persist decisions: %w", err)
		}
		log.Info().Str("run_id", rep.RunID).Msg("decisions persisted")
	}

	fmt.Print(report.Summary(rep))
	return nil
}
