package multiplayer

import (
	"testing"

	"bandit/policy"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// orderOnlyPolicy exposes an order but cannot choose with a rank.
type orderOnlyPolicy struct {
	chooserPolicy
	order []int
}

func (o *orderOnlyPolicy) EstimatedOrder() []int {
	return o.order
}

func requireInvariant(t *testing.T, c *Child, nbArms int) {
	t.Helper()
	s := c.State()
	require.GreaterOrEqual(t, s.Rank, 1, "rank should be >= 1")
	require.LessOrEqual(t, s.Rank, s.Estimate, "rank should be <= estimate")
	require.LessOrEqual(t, s.Estimate, nbArms, "estimate should be <= number of arms")
}

func TestChildRhoRand(t *testing.T) {
	t.Run("start game resets the policy and the rank", func(t *testing.T) {
		coord, err := NewRhoRand(3, 5, mockFactory)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.HandleCollision(0, 0, false)

		child.StartGame()

		require.Equal(t, 1, child.State().Rank, "Should assume being alone")
		require.Equal(t, 1, mockOf(child).started, "Should reset the wrapped policy")
	})

	t.Run("collisions resample the rank over the fixed bound", func(t *testing.T) {
		coord, err := NewRhoRand(3, 5, mockFactory)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		seen := map[int]bool{}
		for i := 0; i < 200; i++ {
			child.HandleCollision(1, 0, false)
			requireInvariant(t, child, 5)
			require.Equal(t, 3, child.State().Estimate, "rhoRand bound should not adapt")
			seen[child.State().Rank] = true
		}
		require.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen, "Every rank in [1, 3] should be drawn")
	})

	t.Run("choice aims at the rank-th best arm", func(t *testing.T) {
		coord, err := NewRhoRand(2, 4, mockFactory)
		require.NoError(t, err)
		child := coord.Children()[1]
		child.StartGame()
		require.Equal(t, 0, child.Choice(), "Rank 1 targets the best arm")

		child.rank = 2
		require.Equal(t, 1, child.Choice(), "Rank 2 targets the second best arm")
	})

	t.Run("rewards are forwarded unchanged and keep the rank", func(t *testing.T) {
		coord, err := NewRhoRand(2, 4, mockFactory)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()
		child.rank = 2

		child.GetReward(3, 1)

		require.Equal(t, []int{3}, mockOf(child).observed)
		require.Equal(t, 2, child.State().Rank)
	})
}

func TestChildChoiceFallback(t *testing.T) {
	s := &settings{variant: VariantRhoRand, nbArms: 3, maxRank: 3}

	t.Run("order past its end falls back to the last arm", func(t *testing.T) {
		p := &orderOnlyPolicy{order: []int{2, 0, 1}}
		child := newChild(0, p, s, rand.New(rand.NewSource(1)))
		child.rank = 5

		require.Equal(t, 1, child.Choice(), "Should never index past the order")
	})

	t.Run("order is used when the policy cannot rank", func(t *testing.T) {
		p := &orderOnlyPolicy{order: []int{2, 0, 1}}
		child := newChild(0, p, s, rand.New(rand.NewSource(1)))
		child.rank = 2

		require.Equal(t, 0, child.Choice())
	})

	t.Run("plain policy choice is used as a last resort", func(t *testing.T) {
		child := newChild(0, &chooserPolicy{arm: 2}, s, rand.New(rand.NewSource(1)))

		require.Equal(t, 2, child.Choice())
	})
}

func TestChildCollisionLearning(t *testing.T) {
	t.Run("sensed reward feeds the policy by default", func(t *testing.T) {
		coord, err := NewRhoEst(2, 3, mockFactory, ThresholdOnT)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		child.HandleCollision(1, 0.7, true)

		require.Equal(t, []int{1}, mockOf(child).observed, "Learning should happen on sensing")
	})

	t.Run("missing reward is not forwarded", func(t *testing.T) {
		coord, err := NewRhoEst(2, 3, mockFactory, ThresholdOnT)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		child.HandleCollision(1, 0, false)

		require.Empty(t, mockOf(child).observed)
	})

	t.Run("disabled collision learning drops the sensed reward", func(t *testing.T) {
		coord, err := NewRhoRand(2, 3, mockFactory, WithCollisionLearning(false))
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		child.HandleCollision(1, 0.7, true)

		require.Empty(t, mockOf(child).observed, "Learning should only happen on transmissions")
	})
}

func TestChildRhoEst(t *testing.T) {
	t.Run("start game resets the estimation state", func(t *testing.T) {
		coord, err := NewRhoEst(2, 3, mockFactory, ThresholdOnT)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()
		child.GetReward(0, 1)
		child.HandleCollision(0, 0, false)
		child.GetReward(0, 1)

		child.StartGame()

		require.Equal(t, State{PlayerID: 0, Rank: 1, Estimate: 1}, child.State())
	})

	t.Run("rewards count steps without collision", func(t *testing.T) {
		coord, err := NewRhoEst(1, 3, mockFactory, ThresholdDoublingTrick)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		for i := 0; i < 3; i++ {
			child.GetReward(0, 1)
		}
		require.Equal(t, 3, child.State().TimeSinceLastCollision)

		child.HandleCollision(0, 0, false)
		require.Equal(t, 0, child.State().TimeSinceLastCollision, "A collision restarts the count")
	})

	t.Run("two players colliding on the best arm reach an estimate of two", func(t *testing.T) {
		coord, err := NewRhoEst(2, 3, mockFactory, ThresholdDoublingTrick)
		require.NoError(t, err)
		children := coord.Children()
		for _, child := range children {
			child.StartGame()
		}

		// ln(65) ~ 4.17: the 5th consecutive collision exceeds the threshold
		for round := 1; round <= 5; round++ {
			for _, child := range children {
				require.Equal(t, 0, child.Choice(), "Both players aim at arm 0")
			}
			for _, child := range children {
				child.HandleCollision(0, 0, false)
			}
			for _, child := range children {
				expected := 1
				if round == 5 {
					expected = 2
				}
				require.Equal(t, expected, child.State().Estimate, "round %d", round)
			}
		}
		for _, child := range children {
			require.Equal(t, 0, child.State().CollisionCount, "Count restarts after an increase")
		}
	})

	t.Run("collisions outside the estimated best arms are not counted", func(t *testing.T) {
		coord, err := NewRhoEst(1, 3, mockFactory, ThresholdOnT)
		require.NoError(t, err)
		child := coord.Children()[0]
		child.StartGame()

		for i := 0; i < 10; i++ {
			child.HandleCollision(2, 0, false)
		}
		require.Equal(t, 1, child.State().Estimate)
		require.Equal(t, 0, child.State().CollisionCount)
	})

	t.Run("horizon-aware threshold reaches the number of players within its bound", func(t *testing.T) {
		const nbPlayers, horizon = 3, 100
		coord, err := NewRhoEstPlus(nbPlayers, 3, mockFactory, horizon)
		require.NoError(t, err)

		// With no reward between collisions, estimate m needs floor(m ln(1+T)) + 1 collisions
		bound := 0
		for m := 1; m < nbPlayers; m++ {
			bound += int(ThresholdWithHorizon.Evaluate(0, m, horizon)) + 1
		}

		for _, child := range coord.Children() {
			child.StartGame()
			collisions := 0
			for child.State().Estimate < nbPlayers {
				child.HandleCollision(0, 0, false)
				collisions++
				require.LessOrEqual(t, collisions, bound, "Estimate should reach %d within %d collisions", nbPlayers, bound)
			}
			require.Equal(t, bound, collisions)

			for i := 0; i < 100; i++ {
				child.HandleCollision(0, 0, false)
				requireInvariant(t, child, 3)
			}
			require.Equal(t, nbPlayers, child.State().Estimate, "Estimate is capped by the number of arms")
		}
	})

	t.Run("collisions count on every arm of a tie for the best index", func(t *testing.T) {
		const nbArms = 3
		for arm := 0; arm < nbArms; arm++ {
			coord, err := NewRhoEst(2, nbArms, policy.UCBFactory(policy.C_SQUARED), ThresholdOnT, WithSeed(5))
			require.NoError(t, err)
			child := coord.Children()[0]
			child.StartGame()

			// Nothing is pulled yet, so every index is +Inf and rank 1 may pick any arm
			require.Contains(t, []int{0, 1, 2}, child.Choice())

			child.HandleCollision(arm, 0, false)
			require.Equal(t, 2, child.State().Estimate, "Collision on tied arm %d should count", arm)
		}
	})

	t.Run("threshold on t reaches the number of players while collisions continue", func(t *testing.T) {
		const nbPlayers, nbArms = 3, 5
		coord, err := NewRhoEst(nbPlayers, nbArms, mockFactory, ThresholdOnT)
		require.NoError(t, err)

		for _, child := range coord.Children() {
			child.StartGame()
			for step := 0; step < 100 && child.State().Estimate < nbPlayers; step++ {
				// Two transmissions between collisions keep t > 0
				child.GetReward(1, 1)
				child.GetReward(2, 1)
				child.HandleCollision(0, 0, false)
				requireInvariant(t, child, nbArms)
			}
			require.Equal(t, nbPlayers, child.State().Estimate, "Estimate should reach the number of players")
		}
	})

	t.Run("invariants hold and the estimate never decreases", func(t *testing.T) {
		const nbArms = 4
		coord, err := NewRhoEst(6, nbArms, policy.UCBFactory(policy.C_SQUARED), ThresholdOnT, WithSeed(42))
		require.NoError(t, err)
		script := rand.New(rand.NewSource(9))

		for _, child := range coord.Children() {
			child.StartGame()
			requireInvariant(t, child, nbArms)
			previous := child.State().Estimate
			for step := 0; step < 500; step++ {
				arm := child.Choice()
				if script.Float64() < 0.3 {
					child.HandleCollision(arm, script.Float64(), script.Intn(2) == 0)
				} else {
					child.GetReward(arm, script.Float64())
				}
				requireInvariant(t, child, nbArms)
				require.GreaterOrEqual(t, child.State().Estimate, previous, "Estimate should be non-decreasing")
				previous = child.State().Estimate
			}
		}
	})
}
