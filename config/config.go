package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"bandit/collision"
	"bandit/meta"
	"bandit/multiplayer"
	"bandit/policy"

	"github.com/joho/godotenv"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfiguration = multiplayer.ErrInvalidConfiguration

// Environment overrides, applied after the file.
const (
	ENV_SEED       = "BANDIT_SEED"
	ENV_HORIZON    = "BANDIT_HORIZON"
	ENV_GOROUTINES = "BANDIT_GOROUTINES"
)

type Config struct {
	Players          int             `yaml:"players"`
	Means            []float64       `yaml:"means"`
	Horizon          int             `yaml:"horizon"`
	Repetitions      int             `yaml:"repetitions"`
	Seed             uint64          `yaml:"seed"`
	Goroutines       int             `yaml:"goroutines"`
	Policy           PolicyConfig    `yaml:"policy"`
	Variants         []VariantConfig `yaml:"variants"`
	Collision        CollisionConfig `yaml:"collision"`
	LearnOnCollision *bool           `yaml:"learn_on_collision"`
}

// PolicyConfig selects the single-player policy every player runs. Unset
// parameters fall back to the policy's default.
type PolicyConfig struct {
	Name      string   `yaml:"name"`
	C         *float64 `yaml:"c"`
	Epsilon   *float64 `yaml:"epsilon"`
	Distances []string `yaml:"distances"`
}

type VariantConfig struct {
	Name      string `yaml:"name"`
	Threshold string `yaml:"threshold"` // rhoEst only
	MaxRank   int    `yaml:"max_rank"`  // rhoRand only
}

type CollisionConfig struct {
	Kind        string `yaml:"kind"`
	PassThrough bool   `yaml:"pass_through"`
}

func Default() Config {
	return Config{
		Players:     meta.PLAYERS,
		Means:       []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		Horizon:     meta.HORIZON,
		Repetitions: meta.REPETITIONS,
		Seed:        meta.SEED,
		Goroutines:  meta.GO_ROUTINES,
		Policy:      PolicyConfig{Name: "ucb"},
		Variants: []VariantConfig{
			{Name: multiplayer.VariantRhoRand.String()},
			{Name: multiplayer.VariantRhoEst.String(), Threshold: multiplayer.ThresholdDoublingTrick.String()},
			{Name: multiplayer.VariantRhoEstPlus.String()},
		},
		Collision: CollisionConfig{Kind: collision.OnlyUniqueUserGetsReward.String()},
	}
}

// Load reads a YAML file over the defaults, then applies the environment.
// An empty path only applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. Missing files are
// skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(ENV_SEED); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfiguration, ENV_SEED, v, err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv(ENV_HORIZON); ok {
		horizon, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfiguration, ENV_HORIZON, v, err)
		}
		c.Horizon = horizon
	}
	if v, ok := os.LookupEnv(ENV_GOROUTINES); ok {
		goroutines, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfiguration, ENV_GOROUTINES, v, err)
		}
		c.Goroutines = goroutines
	}
	return nil
}

func (c Config) Validate() error {
	if c.Players <= 0 {
		return fmt.Errorf("%w: players must be > 0, got %d", ErrInvalidConfiguration, c.Players)
	}
	if len(c.Means) == 0 {
		return fmt.Errorf("%w: need at least one arm", ErrInvalidConfiguration)
	}
	for arm, mean := range c.Means {
		if mean < 0 || mean > 1 {
			return fmt.Errorf("%w: mean of arm %d must be in [0, 1], got %g", ErrInvalidConfiguration, arm, mean)
		}
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("%w: horizon must be > 0, got %d", ErrInvalidConfiguration, c.Horizon)
	}
	if c.Repetitions <= 0 {
		return fmt.Errorf("%w: repetitions must be > 0, got %d", ErrInvalidConfiguration, c.Repetitions)
	}
	if c.Goroutines < 0 {
		return fmt.Errorf("%w: goroutines must be >= 0, got %d", ErrInvalidConfiguration, c.Goroutines)
	}

	factory, err := c.PolicyFactory()
	if err != nil {
		return err
	}
	if _, err := factory(len(c.Means), rand.New(rand.NewSource(c.Seed))); err != nil {
		return err
	}

	if len(c.Variants) == 0 {
		return fmt.Errorf("%w: need at least one variant", ErrInvalidConfiguration)
	}
	for _, v := range c.Variants {
		variant, err := multiplayer.ParseVariant(v.Name)
		if err != nil {
			return err
		}
		if variant == multiplayer.VariantRhoRand && (v.MaxRank < 0 || v.MaxRank > len(c.Means)) {
			return fmt.Errorf("%w: max rank must be in [1, %d], got %d", ErrInvalidConfiguration, len(c.Means), v.MaxRank)
		}
		if variant != multiplayer.VariantRhoRand && v.MaxRank != 0 {
			return fmt.Errorf("%w: max rank only applies to rhoRand", ErrInvalidConfiguration)
		}
		if _, err := v.ThresholdOrDefault(); err != nil {
			return err
		}
	}

	_, err = c.CollisionModel()
	return err
}

// PolicyFactory resolves the configured policy name: ucb, ucboost or
// epsilon-greedy.
func (c Config) PolicyFactory() (policy.Factory, error) {
	switch strings.ToLower(c.Policy.Name) {
	case "ucb":
		return policy.UCBFactory(valueOr(c.Policy.C, policy.C_SQUARED)), nil
	case "ucboost":
		distances := policy.Distances5
		if len(c.Policy.Distances) > 0 {
			distances = make([]policy.Distance, len(c.Policy.Distances))
			for i, name := range c.Policy.Distances {
				d, err := policy.ParseDistance(name)
				if err != nil {
					return nil, err
				}
				distances[i] = d
			}
		}
		return policy.UCBoostFactory(distances, valueOr(c.Policy.C, policy.UCBOOST_C)), nil
	case "epsilon-greedy":
		return policy.EpsilonGreedyFactory(valueOr(c.Policy.Epsilon, policy.EPSILON)), nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfiguration, c.Policy.Name)
	}
}

func (c Config) CollisionModel() (collision.Model, error) {
	kind, err := collision.ParseKind(c.Collision.Kind)
	if err != nil {
		return collision.Model{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	mode := collision.WithholdReward
	if c.Collision.PassThrough {
		mode = collision.PassThroughReward
	}
	return collision.NewModel(kind, mode), nil
}

// LearnOnCollisionOrDefault is true unless disabled explicitly.
func (c Config) LearnOnCollisionOrDefault() bool {
	return c.LearnOnCollision == nil || *c.LearnOnCollision
}

// ThresholdOrDefault defaults to the doubling trick.
func (v VariantConfig) ThresholdOrDefault() (multiplayer.Threshold, error) {
	if v.Threshold == "" {
		return multiplayer.ThresholdDoublingTrick, nil
	}
	return multiplayer.ParseThreshold(v.Threshold)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
