package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

const C_SQUARED = 2.0 // Exploration constant of UCB1

// UCB is the UCB1 index policy: mean + sqrt(c ln(t) / N).
type UCB struct {
	*IndexPolicy
	c float64
}

func NewUCB(nbArms int, c float64, rng *rand.Rand) (*UCB, error) {
	if c < 0 {
		return nil, fmt.Errorf("%w: UCB exploration constant must be >= 0, got %g", ErrInvalidConfiguration, c)
	}
	base, err := newIndexPolicy(nbArms, rng)
	if err != nil {
		return nil, err
	}
	u := &UCB{IndexPolicy: base, c: c}
	base.compute = u.computeIndex
	return u, nil
}

func UCBFactory(c float64) Factory {
	return func(nbArms int, rng *rand.Rand) (Policy, error) {
		return NewUCB(nbArms, c, rng)
	}
}

func (u *UCB) String() string {
	return fmt.Sprintf("UCB(c=%.3g)", u.c)
}

func (u *UCB) computeIndex(arm int) float64 {
	return ucb1(u.rewards[arm], u.pulls[arm], u.c*math.Log(float64(u.t)))
}

func ucb1(rewards float64, pulls int, cLnT float64) float64 {
	// Prioritize unexplored arms
	if pulls == 0 {
		return math.Inf(1)
	}

	return rewards/float64(pulls) + math.Sqrt(cLnT/float64(pulls))
}
