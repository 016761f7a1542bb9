// Package report renders batch run results as artifacts and console
// output.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sawpanic/optionedge/internal/application/pipeline"
)

// Writer persists run reports under an output directory.
type Writer struct {
	dir string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteJSON writes the full run report as a timestamped JSON artifact and
// returns its path.
func (w *Writer) WriteJSON(rep *pipeline.RunReport) (string, error) {
	name := fmt.Sprintf("decisions_%s_%s.json", time.Now().UTC().Format("20060102_150405"), rep.RunID[:8])
	path := filepath.Join(w.dir, name)
	if err := writeJSONAtomic(path, rep); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriteCSV writes one summary row per series: the final decision only,
// for spreadsheet-level consumption.
func (w *Writer) WriteCSV(rep *pipeline.RunReport) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("symbol,timestamp,action,position_size,kelly_fraction,mispricing,confidence,bull,sideways,crisis\n")
	for _, res := range rep.Results {
		final := res.Final()
		fmt.Fprintf(&buf, "%s,%s,%s,%.6f,%.6f,%.6f,%.4f,%.4f,%.4f,%.4f\n",
			res.Symbol,
			final.Timestamp.UTC().Format(time.RFC3339),
			final.Action,
			final.Size,
			final.KellyFraction,
			final.Signal.Normalized,
			final.Signal.Confidence,
			final.Probs.Bull,
			final.Probs.Sideways,
			final.Probs.Crisis,
		)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("summary_%s.csv", rep.RunID[:8]))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// Summary renders a human-readable verdict table for the console.
func Summary(rep *pipeline.RunReport) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "run %s — %d series, %d failed\n\n", rep.RunID[:8], len(rep.Results), len(rep.Failed))
	fmt.Fprintf(&buf, "%-12s %-8s %-10s %-10s %-28s\n", "SYMBOL", "ACTION", "SIZE", "SIGNAL", "REGIME (B/S/C)")
	for _, res := range rep.Results {
		final := res.Final()
		fmt.Fprintf(&buf, "%-12s %-8s %-10.4f %-10.4f %.2f / %.2f / %.2f\n",
			res.Symbol, final.Action, final.Size, final.Signal.Normalized,
			final.Probs.Bull, final.Probs.Sideways, final.Probs.Crisis)
	}
	for symbol, msg := range rep.Failed {
		fmt.Fprintf(&buf, "%-12s FAILED   %s\n", symbol, msg)
	}
	return buf.String()
}
