package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"bandit/config"
	"bandit/experiments"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML experiment config")
	envFile := flag.String("env", ".env", "optional .env file with BANDIT_* overrides")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn or error")
	outDir := flag.String("out", "", "directory to store csv results in, none if empty")
	throughput := flag.Bool("throughput", false, "compare engine goroutine counts instead of variants")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load environment")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *throughput {
		runThroughput(ctx, cfg, *outDir)
		return
	}

	summaries, err := experiments.Run(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("experiment failed")
	}
	for _, s := range summaries {
		fmt.Printf("%-40s rep=%d estimates=%v collisions=%d reward=%.0f regret=%.1f\n",
			s.Variant, s.Repetition, s.FinalEstimates, s.Metric.Collisions, s.Metric.Reward, s.Regret)
	}

	if *outDir != "" && len(summaries) > 0 {
		writer, err := experiments.NewWriter(*outDir, summaries[0].RunID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create experiment writer")
		}
		if err := writer.WriteSummaries(summaries); err != nil {
			log.Fatal().Err(err).Msg("failed to store summaries")
		}
		log.Info().Msgf("stored summaries in %s", writer.Dir())
	}
}

func runThroughput(ctx context.Context, cfg config.Config, outDir string) {
	runs, err := experiments.RunThroughput(ctx, cfg, experiments.THROUGHPUT_GOROUTINES)
	if err != nil {
		log.Fatal().Err(err).Msg("throughput experiment failed")
	}
	for _, m := range runs {
		fmt.Printf("goroutines=%-4d rounds=%d duration=%s\n", m.Goroutines, m.Rounds, m.Duration)
	}

	if outDir != "" {
		writer, err := experiments.NewWriter(outDir, uuid.New())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create experiment writer")
		}
		if err := writer.WriteThroughput(runs); err != nil {
			log.Fatal().Err(err).Msg("failed to store throughput")
		}
		log.Info().Msgf("stored throughput in %s", writer.Dir())
	}
}
