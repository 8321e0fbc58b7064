package experiments

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bandit/experiments/metrics"

	"github.com/google/uuid"
)

type Writer struct {
	baseDir string
}

// NewWriter creates a subfolder of dir named by the run id.
func NewWriter(dir string, runID uuid.UUID) (*Writer, error) {
	baseDir := filepath.Join(dir, runID.String())
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteSummaries(summaries []Summary) error {
	header := []string{"variant", "repetition", "player", "estimate", "rounds", "successes", "collisions", "reward", "regret", "duration"}
	rows := [][]string{}
	for _, s := range summaries {
		// One row per player
		for player, estimate := range s.FinalEstimates {
			rows = append(rows, []string{
				s.Variant,
				strconv.Itoa(s.Repetition),
				strconv.Itoa(player),
				strconv.Itoa(estimate),
				strconv.Itoa(s.Metric.Rounds),
				strconv.Itoa(s.Metric.Successes),
				strconv.Itoa(s.Metric.Collisions),
				strconv.FormatFloat(s.Metric.Reward, 'f', -1, 64),
				strconv.FormatFloat(s.Regret, 'f', -1, 64),
				s.Metric.Duration.String(),
			})
		}
	}
	return w.write("summaries.csv", header, rows)
}

func (w *Writer) WriteThroughput(runs []metrics.RunMetric) error {
	header := []string{"goroutines", "rounds", "duration", "rounds_per_second"}
	rows := [][]string{}
	for _, m := range runs {
		rows = append(rows, []string{
			strconv.Itoa(m.Goroutines),
			strconv.Itoa(m.Rounds),
			m.Duration.String(),
			strconv.FormatFloat(float64(m.Rounds)/m.Duration.Seconds(), 'f', 1, 64),
		})
	}
	return w.write("throughput.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	err = writer.WriteAll(rows) // Flushes
	if err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}
