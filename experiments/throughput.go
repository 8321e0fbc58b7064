package experiments

import (
	"context"
	"fmt"

	"bandit/config"
	"bandit/experiments/metrics"

	"github.com/rs/zerolog/log"
)

// THROUGHPUT_GOROUTINES are the engine fan-outs compared by RunThroughput.
var THROUGHPUT_GOROUTINES = []int{1, 2, 4, 8, 16}

// RunThroughput replays the first configured variant once per goroutine
// count. Every run uses the same seed, so only the timing differs.
func RunThroughput(ctx context.Context, cfg config.Config, goroutines []int) ([]metrics.RunMetric, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory, err := cfg.PolicyFactory()
	if err != nil {
		return nil, err
	}
	model, err := cfg.CollisionModel()
	if err != nil {
		return nil, err
	}

	log.Info().Msg("starting throughput experiment...")

	runs := []metrics.RunMetric{}
	for i, n := range goroutines {
		if n <= 0 {
			return runs, fmt.Errorf("%w: goroutines must be > 0, got %d", config.ErrInvalidConfiguration, n)
		}
		c, err := createCoordinator(cfg, cfg.Variants[0], factory, cfg.Seed)
		if err != nil {
			return runs, fmt.Errorf("failed to create %s: %w", cfg.Variants[0].Name, err)
		}

		log.Info().Msgf("starting throughput run %d of %d with %d goroutines...", i+1, len(goroutines), n)

		scaled := cfg
		scaled.Goroutines = n
		summary, err := runOnce(ctx, scaled, c, model, cfg.Seed)
		if err != nil {
			return runs, err
		}
		runs = append(runs, summary.Metric)

		log.Info().Msgf("completed throughput run %d in %s", i+1, summary.Metric.Duration)
	}

	log.Info().Msg("completed throughput experiment")
	return runs, nil
}
