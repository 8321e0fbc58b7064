package multiplayer

import (
	"slices"

	"bandit/policy"

	"golang.org/x/exp/rand"
)

// mockPolicy prefers arms in a fixed order and records what it learns.
type mockPolicy struct {
	order    []int
	observed []int
	started  int
}

func (m *mockPolicy) StartGame() {
	m.started++
	m.observed = nil
}

func (m *mockPolicy) Choice() int {
	return m.order[0]
}

func (m *mockPolicy) GetReward(arm int, reward float64) {
	m.observed = append(m.observed, arm)
}

func (m *mockPolicy) ChoiceWithRank(rank int) int {
	return m.order[min(rank, len(m.order))-1]
}

func (m *mockPolicy) EstimatedOrder() []int {
	return slices.Clone(m.order)
}

func (m *mockPolicy) String() string {
	return "Mock"
}

func mockFactory(nbArms int, rng *rand.Rand) (policy.Policy, error) {
	order := make([]int, nbArms)
	for arm := range order {
		order[arm] = arm
	}
	return &mockPolicy{order: order}, nil
}

// chooserPolicy only implements the base capability.
type chooserPolicy struct{ arm int }

func (c *chooserPolicy) StartGame()                        {}
func (c *chooserPolicy) Choice() int                       { return c.arm }
func (c *chooserPolicy) GetReward(arm int, reward float64) {}

func chooserFactory(nbArms int, rng *rand.Rand) (policy.Policy, error) {
	return &chooserPolicy{}, nil
}

func mockOf(c *Child) *mockPolicy {
	return c.policy.(*mockPolicy)
}
