package policy

import (
	"errors"

	"golang.org/x/exp/rand"
)

// ErrInvalidConfiguration is returned when a policy, coordinator or experiment
// is constructed with parameters outside their domain.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Policy is the capability every single-player decision algorithm must offer
// to be wrapped by a multi-player coordinator.
type Policy interface {
	// StartGame resets the internal learning state
	StartGame()
	// Choice returns the arm to pull at the current step
	Choice() int
	// GetReward feeds one observation of the given arm
	GetReward(arm int, reward float64)
}

// Ranker is implemented by policies that can aim at the rank-th best arm
// instead of the best one.
type Ranker interface {
	ChoiceWithRank(rank int) int
}

// Orderer is implemented by policies exposing their current estimated
// ranking of the arms, best first.
type Orderer interface {
	EstimatedOrder() []int
}

// Positioner is implemented by policies that can tell how many arms they
// strictly prefer to a given arm. Arms tied with it do not count.
type Positioner interface {
	Position(arm int) int
}

// Factory builds one independent policy instance. The generator is owned by
// the returned policy and must not be shared.
type Factory func(nbArms int, rng *rand.Rand) (Policy, error)
