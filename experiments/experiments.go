package experiments

import (
	"context"
	"fmt"

	"bandit/collision"
	"bandit/config"
	"bandit/engine"
	"bandit/experiments/metrics"
	"bandit/multiplayer"
	"bandit/policy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Summary is the outcome of one repetition of one variant.
type Summary struct {
	RunID          uuid.UUID
	Variant        string
	Repetition     int
	FinalEstimates []int
	Metric         metrics.RunMetric
	Regret         float64 // Against players on the best distinct arms
}

// Run plays every configured variant for every repetition. Repetition r of
// every variant sees the same arm draws and player seeds.
func Run(ctx context.Context, cfg config.Config) ([]Summary, error) {
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

	runID := uuid.New()
	logger := log.With().Str("run", runID.String()).Logger()
	logger.Info().Msgf("starting experiment with %d players on %d arms for %d rounds...", cfg.Players, len(cfg.Means), cfg.Horizon)

	summaries := []Summary{}
	for vi, variant := range cfg.Variants {
		for rep := 0; rep < cfg.Repetitions; rep++ {
			seed := cfg.Seed + uint64(rep)
			c, err := createCoordinator(cfg, variant, factory, seed)
			if err != nil {
				return summaries, fmt.Errorf("failed to create %s: %w", variant.Name, err)
			}

			logger.Info().Msgf("starting variant %d of %d (%s) repetition %d of %d...", vi+1, len(cfg.Variants), c, rep+1, cfg.Repetitions)

			summary, err := runOnce(ctx, cfg, c, model, seed)
			if err != nil {
				return summaries, err
			}
			summary.RunID = runID
			summary.Repetition = rep
			summaries = append(summaries, summary)

			logSummary(logger, summary)
		}
	}

	logger.Info().Msg("completed experiment")
	return summaries, nil
}

func runOnce(ctx context.Context, cfg config.Config, c *multiplayer.Coordinator, model collision.Model, seed uint64) (Summary, error) {
	arms, err := engine.NewBernoulliArms(cfg.Means, seed^armSeedMask)
	if err != nil {
		return Summary{}, err
	}

	children := c.Children()
	e := engine.New(
		engine.Players(children),
		model,
		arms,
		engine.WithGoroutines(cfg.Goroutines),
		engine.WithMetrics(metrics.NewCollector()),
	)
	result, err := e.Run(ctx, cfg.Horizon)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to run %s: %w", c, err)
	}

	estimates := make([]int, len(children))
	for i, child := range children {
		estimates[i] = child.State().Estimate
	}
	return Summary{
		Variant:        c.String(),
		FinalEstimates: estimates,
		Metric:         result.Metric,
		Regret:         float64(result.Rounds)*arms.OptimalReward(cfg.Players) - result.Metric.Reward,
	}, nil
}

// Arms and players are seeded apart so that changing the number of players
// keeps the reward stream.
const armSeedMask = 0x5DEECE66D

func createCoordinator(cfg config.Config, variant config.VariantConfig, factory policy.Factory, seed uint64) (*multiplayer.Coordinator, error) {
	v, err := multiplayer.ParseVariant(variant.Name)
	if err != nil {
		return nil, err
	}

	options := []multiplayer.Option{
		multiplayer.WithSeed(seed),
		multiplayer.WithCollisionLearning(cfg.LearnOnCollisionOrDefault()),
	}

	switch v {
	case multiplayer.VariantRhoRand:
		if variant.MaxRank > 0 {
			options = append(options, multiplayer.WithMaxRank(variant.MaxRank))
		}
		return multiplayer.NewRhoRand(cfg.Players, len(cfg.Means), factory, options...)
	case multiplayer.VariantRhoEst:
		threshold, err := variant.ThresholdOrDefault()
		if err != nil {
			return nil, err
		}
		if threshold == multiplayer.ThresholdWithHorizon {
			options = append(options, multiplayer.WithHorizon(cfg.Horizon))
		}
		return multiplayer.NewRhoEst(cfg.Players, len(cfg.Means), factory, threshold, options...)
	case multiplayer.VariantRhoEstPlus:
		return multiplayer.NewRhoEstPlus(cfg.Players, len(cfg.Means), factory, cfg.Horizon, options...)
	default:
		panic(fmt.Sprintf("unknown variant %v", v))
	}
}

func logSummary(logger zerolog.Logger, s Summary) {
	logger.Info().
		Str("variant", s.Variant).
		Int("repetition", s.Repetition).
		Ints("estimates", s.FinalEstimates).
		Int("collisions", s.Metric.Collisions).
		Float64("collision_rate", s.Metric.CollisionRate()).
		Float64("reward", s.Metric.Reward).
		Float64("regret", s.Regret).
		Dur("duration", s.Metric.Duration).
		Msg("completed repetition")
}
