package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/optionedge/internal/config"
	"github.com/sawpanic/optionedge/internal/domain/decision"
	"github.com/sawpanic/optionedge/internal/domain/pricing"
	"github.com/sawpanic/optionedge/internal/domain/series"
	"github.com/sawpanic/optionedge/internal/metrics"
)

// Job pairs one instrument's price series with the contract to evaluate.
type Job struct {
	Series   *series.PriceSeries
	Contract pricing.Contract
}

// RunReport aggregates the results of a batch run.
type RunReport struct {
	RunID   string          `json:"run_id"`
	Results []*SeriesResult `json:"results"`
	Failed  map[string]string `json:"failed,omitempty"` // symbol -> error
}

// Runner fans a batch of independent series across a worker pool. Each
// worker owns its own Pipeline (and therefore all per-series filter
// state); only the validated configuration is shared, read-only.
type Runner struct {
	cfg     *config.Config
	metrics *metrics.Set
}

// NewRunner creates a batch runner. metrics may be nil.
func NewRunner(cfg *config.Config, m *metrics.Set) *Runner {
	return &Runner{cfg: cfg, metrics: m}
}

// RunAll processes every job and collects per-series results. Series that
// fail with data errors are recorded in the report, not retried; the batch
// continues. Context cancellation stops dispatching new jobs.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) *RunReport {
	report := &RunReport{
		RunID:  uuid.NewString(),
		Failed: make(map[string]string),
	}

	workers := r.cfg.Run.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan Job)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := New(r.cfg)
			for job := range jobCh {
				res, err := p.Run(job.Series, job.Contract)

				mu.Lock()
				if err != nil {
					report.Failed[job.Series.Symbol] = err.Error()
					if r.metrics != nil {
						r.metrics.SeriesFailed.Inc()
					}
				} else {
					report.Results = append(report.Results, res)
					r.observe(res)
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			log.Warn().Str("run_id", report.RunID).Msg("run cancelled, draining workers")
			break dispatch
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()

	log.Info().
		Str("run_id", report.RunID).
		Int("processed", len(report.Results)).
		Int("failed", len(report.Failed)).
		Msg("batch run complete")
	return report
}

// observe records per-series metrics. Callers hold the report lock.
func (r *Runner) observe(res *SeriesResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.SeriesProcessed.Inc()
	r.metrics.PipelineSeconds.Observe(res.Elapsed.Seconds())
	for _, d := range res.Decisions {
		r.metrics.Decisions.WithLabelValues(string(d.Action)).Inc()
		for _, diag := range d.Diagnostics {
			if diag == decision.DiagPricingFailure {
				r.metrics.PricingFailures.Inc()
			}
		}
	}
}
