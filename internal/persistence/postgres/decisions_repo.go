// Package postgres persists batch run decisions for later review. The
// store is optional: the pipeline itself never performs I/O.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/optionedge/internal/application/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	run_id        TEXT        NOT NULL,
	symbol        TEXT        NOT NULL,
	ts            TIMESTAMPTZ NOT NULL,
	action        TEXT        NOT NULL,
	position_size DOUBLE PRECISION NOT NULL,
	kelly_fraction DOUBLE PRECISION NOT NULL,
	mispricing    DOUBLE PRECISION NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	prob_bull     DOUBLE PRECISION NOT NULL,
	prob_sideways DOUBLE PRECISION NOT NULL,
	prob_crisis   DOUBLE PRECISION NOT NULL,
	diagnostics   TEXT,
	PRIMARY KEY (run_id, symbol, ts)
)`

// DecisionStore writes run reports to Postgres.
type DecisionStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to Postgres and ensures the decisions table exists.
func Open(dsn string, timeout time.Duration) (*DecisionStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure decisions table: %w", err)
	}
	return &DecisionStore{db: db, timeout: timeout}, nil
}

// Close releases the connection pool.
func (s *DecisionStore) Close() error { return s.db.Close() }

// SaveRun inserts every decision of the report in one transaction. Final
// decisions only would lose the refusal history, so all timestamps go in.
func (s *DecisionStore) SaveRun(ctx context.Context, rep *pipeline.RunReport) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO decisions
		(run_id, symbol, ts, action, position_size, kelly_fraction,
		 mispricing, confidence, prob_bull, prob_sideways, prob_crisis, diagnostics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, symbol, ts) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range rep.Results {
		for _, d := range res.Decisions {
			diags := ""
			for i, diag := range d.Diagnostics {
				if i > 0 {
					diags += ","
				}
				diags += diag
			}
			if _, err := stmt.ExecContext(ctx,
				rep.RunID, res.Symbol, d.Timestamp, string(d.Action), d.Size, d.KellyFraction,
				d.Signal.Normalized, d.Signal.Confidence,
				d.Probs.Bull, d.Probs.Sideways, d.Probs.Crisis, diags,
			); err != nil {
				return fmt.Errorf("insert decision %s@%s: %w", res.Symbol, d.Timestamp, err)
			}
		}
	}
	return tx.Commit()
}
