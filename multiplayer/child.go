package multiplayer

import (
	"fmt"

	"bandit/policy"
	"bandit/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// State is a snapshot of a child's coordination variables.
type State struct {
	PlayerID               int
	Rank                   int
	Estimate               int
	CollisionCount         int
	TimeSinceLastCollision int
}

// settings are shared by every child of one coordinator and never mutated
// after construction.
type settings struct {
	variant          Variant
	nbArms           int
	maxRank          int
	learnOnCollision bool
	threshold        Threshold
	horizon          int
}

// estimator holds the rhoEst population estimation state machine.
type estimator struct {
	estimate               int
	collisionCount         int
	timeSinceLastCollision int
}

// Child is the front the simulation drives for one player: it aims at the
// rank-th best arm of its policy and reacts to collisions.
type Child struct {
	playerID int
	policy   policy.Policy
	settings *settings
	rng      *rand.Rand
	rank     int
	est      *estimator // nil for rhoRand
}

func newChild(playerID int, p policy.Policy, s *settings, rng *rand.Rand) *Child {
	c := &Child{
		playerID: playerID,
		policy:   p,
		settings: s,
		rng:      rng,
		rank:     1,
	}
	if s.variant != VariantRhoRand {
		c.est = &estimator{estimate: 1}
	}
	return c
}

func (c *Child) PlayerID() int {
	return c.playerID
}

func (c *Child) String() string {
	return fmt.Sprintf("#%d<%s-%v(rank:%d)>", c.playerID+1, c.settings.variant, c.policy, c.rank)
}

// State returns the current rank, estimate and collision counters. For
// rhoRand the estimate is the fixed maximal rank.
func (c *Child) State() State {
	s := State{PlayerID: c.playerID, Rank: c.rank, Estimate: c.rankBound()}
	if c.est != nil {
		s.CollisionCount = c.est.collisionCount
		s.TimeSinceLastCollision = c.est.timeSinceLastCollision
	}
	return s
}

func (c *Child) StartGame() {
	c.policy.StartGame()
	c.rank = 1 // Assume alone
	if c.est != nil {
		c.est.estimate = 1
		c.est.collisionCount = 0
		c.est.timeSinceLastCollision = 0
	}
}

// Choice returns the arm at position rank in the policy's preference order.
func (c *Child) Choice() int {
	if r, ok := c.policy.(policy.Ranker); ok {
		return r.ChoiceWithRank(c.rank)
	}
	if o, ok := c.policy.(policy.Orderer); ok {
		order := o.EstimatedOrder()
		return order[utils.Clamp(c.rank, 1, len(order))-1]
	}
	return c.policy.Choice()
}

// GetReward is a transmission without collision.
func (c *Child) GetReward(arm int, reward float64) {
	if c.est != nil {
		c.est.timeSinceLastCollision++
	}
	c.policy.GetReward(arm, reward)
}

// HandleCollision draws a new rank after a collision on arm. When sensed is
// true, reward is what was sensed on the arm during the collision.
func (c *Child) HandleCollision(arm int, reward float64, sensed bool) {
	// Learning on sensing rather than on successful transmissions
	if sensed && c.settings.learnOnCollision {
		c.policy.GetReward(arm, reward)
	}

	c.rank = 1 + c.rng.Intn(c.rankBound())

	if c.est != nil {
		c.estimate(arm)
	}
}

func (c *Child) rankBound() int {
	if c.est != nil {
		return c.est.estimate
	}
	return c.settings.maxRank
}

func (c *Child) estimate(arm int) {
	e := c.est

	// Only collisions on one of the estimate best arms count
	if pos := c.position(arm); pos >= 0 && pos < e.estimate {
		e.collisionCount++
	}

	threshold := c.settings.threshold.Evaluate(e.timeSinceLastCollision, e.estimate, c.settings.horizon)
	if float64(e.collisionCount) > threshold {
		e.estimate = min(e.estimate+1, c.settings.nbArms)
		e.collisionCount = 0
		log.Debug().
			Int("player", c.playerID).
			Int("estimate", e.estimate).
			Float64("threshold", threshold).
			Msg("increased players estimate")
	}
	e.timeSinceLastCollision = 0
}

// position prefers the tie-aware rank of the policy over the arm's place in
// its estimated order.
func (c *Child) position(arm int) int {
	if p, ok := c.policy.(policy.Positioner); ok {
		return p.Position(arm)
	}
	return utils.FindIndex(c.policy.(policy.Orderer).EstimatedOrder(), arm)
}
