package multiplayer

import (
	"fmt"
	"strings"

	"bandit/policy"

	"golang.org/x/exp/rand"
)

var ErrInvalidConfiguration = policy.ErrInvalidConfiguration

// Variant names the decentralized protocol run by a coordinator.
type Variant int

const (
	VariantRhoRand Variant = iota
	VariantRhoEst
	VariantRhoEstPlus
)

var variants = []Variant{VariantRhoRand, VariantRhoEst, VariantRhoEstPlus}

func (v Variant) String() string {
	switch v {
	case VariantRhoRand:
		return "rhoRand"
	case VariantRhoEst:
		return "rhoEst"
	case VariantRhoEstPlus:
		return "rhoEstPlus"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

func ParseVariant(name string) (Variant, error) {
	for _, v := range variants {
		if strings.EqualFold(name, v.String()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown variant %q", ErrInvalidConfiguration, name)
}

type Option func(c *Coordinator)

// WithSeed sets the seed every player-local generator is derived from.
func WithSeed(seed uint64) Option {
	return func(c *Coordinator) {
		c.seed = seed
	}
}

// WithCollisionLearning decides whether the reward sensed during a collision
// feeds the wrapped policy.
func WithCollisionLearning(enabled bool) Option {
	return func(c *Coordinator) {
		c.settings.learnOnCollision = enabled
	}
}

// WithMaxRank bounds the ranks drawn by rhoRand children.
func WithMaxRank(maxRank int) Option {
	return func(c *Coordinator) {
		c.maxRank = maxRank
	}
}

// WithHorizon gives rhoEst children a known horizon for their threshold.
func WithHorizon(horizon int) Option {
	return func(c *Coordinator) {
		c.settings.horizon = horizon
	}
}

// Coordinator owns one policy per player and the children wrapping them. Only
// the children are meant to be driven by a simulation.
type Coordinator struct {
	nbPlayers int
	seed      uint64
	maxRank   int
	settings  *settings
	players   []policy.Policy
	children  []*Child
}

// NewRhoRand builds children drawing a uniform rank in [1, maxRank] after each
// collision. maxRank defaults to min(nbPlayers, nbArms).
func NewRhoRand(nbPlayers, nbArms int, factory policy.Factory, options ...Option) (*Coordinator, error) {
	return newCoordinator(VariantRhoRand, nbPlayers, nbArms, factory, ThresholdOnT, options)
}

// NewRhoEst builds children that estimate the number of players from the
// collisions they observe, starting from 1.
func NewRhoEst(nbPlayers, nbArms int, factory policy.Factory, threshold Threshold, options ...Option) (*Coordinator, error) {
	return newCoordinator(VariantRhoEst, nbPlayers, nbArms, factory, threshold, options)
}

// NewRhoEstPlus is rhoEst with the horizon-aware threshold and a known horizon.
func NewRhoEstPlus(nbPlayers, nbArms int, factory policy.Factory, horizon int, options ...Option) (*Coordinator, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: rhoEstPlus needs a horizon > 0, got %d", ErrInvalidConfiguration, horizon)
	}
	options = append(options, WithHorizon(horizon))
	return newCoordinator(VariantRhoEstPlus, nbPlayers, nbArms, factory, ThresholdWithHorizon, options)
}

func newCoordinator(variant Variant, nbPlayers, nbArms int, factory policy.Factory, threshold Threshold, options []Option) (*Coordinator, error) {
	if nbPlayers <= 0 {
		return nil, fmt.Errorf("%w: number of players must be > 0, got %d", ErrInvalidConfiguration, nbPlayers)
	}
	if nbArms <= 0 {
		return nil, fmt.Errorf("%w: number of arms must be > 0, got %d", ErrInvalidConfiguration, nbArms)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: missing policy factory", ErrInvalidConfiguration)
	}
	if !threshold.valid() {
		return nil, fmt.Errorf("%w: unknown threshold %d", ErrInvalidConfiguration, int(threshold))
	}

	c := &Coordinator{ // Default values
		nbPlayers: nbPlayers,
		seed:      1,
		settings: &settings{
			variant:          variant,
			nbArms:           nbArms,
			learnOnCollision: true,
			threshold:        threshold,
		},
	}
	for _, option := range options {
		option(c)
	}
	if err := c.resolveMaxRank(); err != nil {
		return nil, err
	}
	if c.settings.horizon < 0 {
		return nil, fmt.Errorf("%w: horizon must be >= 0, got %d", ErrInvalidConfiguration, c.settings.horizon)
	}

	// Player-local generators are split from one master stream so that a
	// player's randomness only depends on the seed and its id
	master := rand.New(rand.NewSource(c.seed))
	c.players = make([]policy.Policy, nbPlayers)
	c.children = make([]*Child, nbPlayers)
	for playerID := 0; playerID < nbPlayers; playerID++ {
		policyRng := rand.New(rand.NewSource(master.Uint64()))
		childRng := rand.New(rand.NewSource(master.Uint64()))

		p, err := factory(nbArms, policyRng)
		if err != nil {
			return nil, fmt.Errorf("failed to create policy for player %d: %w", playerID, err)
		}
		if _, ok := p.(policy.Orderer); !ok && variant != VariantRhoRand {
			return nil, fmt.Errorf("%w: %s needs a policy exposing its estimated order, got %v", ErrInvalidConfiguration, variant, p)
		}
		c.players[playerID] = p
		c.children[playerID] = newChild(playerID, p, c.settings, childRng)
	}
	return c, nil
}

func (c *Coordinator) resolveMaxRank() error {
	if c.settings.variant != VariantRhoRand {
		if c.maxRank != 0 {
			return fmt.Errorf("%w: max rank only applies to rhoRand", ErrInvalidConfiguration)
		}
		return nil
	}
	if c.maxRank == 0 {
		c.settings.maxRank = min(c.nbPlayers, c.settings.nbArms)
		return nil
	}
	if c.maxRank < 1 || c.maxRank > c.settings.nbArms {
		return fmt.Errorf("%w: max rank must be in [1, %d], got %d", ErrInvalidConfiguration, c.settings.nbArms, c.maxRank)
	}
	c.settings.maxRank = c.maxRank
	return nil
}

func (c *Coordinator) Variant() Variant {
	return c.settings.variant
}

func (c *Coordinator) NbPlayers() int {
	return c.nbPlayers
}

func (c *Coordinator) NbArms() int {
	return c.settings.nbArms
}

// Children returns the fronts to hand to the simulation.
func (c *Coordinator) Children() []*Child {
	return append([]*Child(nil), c.children...)
}

func (c *Coordinator) String() string {
	name := c.settings.variant.String()
	if c.settings.variant == VariantRhoEst {
		name = fmt.Sprintf("%s[%s]", name, c.settings.threshold)
	}
	if c.settings.horizon > 0 {
		name = fmt.Sprintf("%s(T=%d)", name, c.settings.horizon)
	}
	return fmt.Sprintf("%s(%d x %v)", name, c.nbPlayers, c.players[0])
}
