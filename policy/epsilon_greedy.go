package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
)

const EPSILON = 0.1

// EpsilonGreedy explores a uniformly random arm with probability epsilon and
// otherwise exploits the best empirical mean.
type EpsilonGreedy struct {
	*IndexPolicy
	epsilon float64
}

func NewEpsilonGreedy(nbArms int, epsilon float64, rng *rand.Rand) (*EpsilonGreedy, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("%w: epsilon must be in [0, 1], got %g", ErrInvalidConfiguration, epsilon)
	}
	base, err := newIndexPolicy(nbArms, rng)
	if err != nil {
		return nil, err
	}
	e := &EpsilonGreedy{IndexPolicy: base, epsilon: epsilon}
	base.compute = e.Mean
	return e, nil
}

func EpsilonGreedyFactory(epsilon float64) Factory {
	return func(nbArms int, rng *rand.Rand) (Policy, error) {
		return NewEpsilonGreedy(nbArms, epsilon, rng)
	}
}

func (e *EpsilonGreedy) String() string {
	return fmt.Sprintf("EpsilonGreedy(%.3g)", e.epsilon)
}

func (e *EpsilonGreedy) Choice() int {
	if e.explore() {
		return e.rng.Intn(e.nbArms)
	}
	return e.IndexPolicy.Choice()
}

func (e *EpsilonGreedy) ChoiceWithRank(rank int) int {
	if e.explore() {
		return e.rng.Intn(e.nbArms)
	}
	return e.IndexPolicy.ChoiceWithRank(rank)
}

func (e *EpsilonGreedy) explore() bool {
	return e.rng.Float64() < e.epsilon
}
