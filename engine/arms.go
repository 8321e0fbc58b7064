package engine

import (
	"cmp"
	"fmt"
	"slices"

	"bandit/multiplayer"

	"golang.org/x/exp/rand"
)

// BernoulliArms draws 1 with probability mean and 0 otherwise.
type BernoulliArms struct {
	means []float64
	rng   *rand.Rand
}

func NewBernoulliArms(means []float64, seed uint64) (*BernoulliArms, error) {
	if len(means) == 0 {
		return nil, fmt.Errorf("%w: need at least one arm", multiplayer.ErrInvalidConfiguration)
	}
	for arm, mean := range means {
		if mean < 0 || mean > 1 {
			return nil, fmt.Errorf("%w: mean of arm %d must be in [0, 1], got %g", multiplayer.ErrInvalidConfiguration, arm, mean)
		}
	}
	return &BernoulliArms{
		means: slices.Clone(means),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

func (b *BernoulliArms) NbArms() int {
	return len(b.means)
}

func (b *BernoulliArms) Means() []float64 {
	return slices.Clone(b.means)
}

func (b *BernoulliArms) Draw(arm int) float64 {
	if b.rng.Float64() < b.means[arm] {
		return 1
	}
	return 0
}

// OptimalReward is the expected reward per round of nbPlayers players
// sitting on the best distinct arms.
func (b *BernoulliArms) OptimalReward(nbPlayers int) float64 {
	sorted := slices.Clone(b.means)
	slices.SortFunc(sorted, func(x, y float64) int { return cmp.Compare(y, x) })
	total := 0.0
	for _, mean := range sorted[:min(nbPlayers, len(sorted))] {
		total += mean
	}
	return total
}
