package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestNewUCB(t *testing.T) {
	t.Run("rejects a non-positive arm count", func(t *testing.T) {
		_, err := NewUCB(0, C_SQUARED, newRand(1))
		require.ErrorIs(t, err, ErrInvalidConfiguration, "Should fail with zero arms")
	})

	t.Run("rejects a negative exploration constant", func(t *testing.T) {
		_, err := NewUCB(3, -1, newRand(1))
		require.ErrorIs(t, err, ErrInvalidConfiguration, "Should fail with c < 0")
	})

	t.Run("rejects a missing generator", func(t *testing.T) {
		_, err := NewUCB(3, C_SQUARED, nil)
		require.ErrorIs(t, err, ErrInvalidConfiguration, "Should fail without a generator")
	})
}

func TestUCB1(t *testing.T) {
	t.Run("computing UCB1 value", func(t *testing.T) {
		got := ucb1(5.0, 10, 2.0*math.Log(100))

		expected := 5.0/10 + math.Sqrt(2.0*math.Log(100)/10.0)
		require.InDelta(t, expected, got, 0.0001,
			"Should compute X/N + sqrt(c*ln(t)/N)")
	})

	t.Run("unpulled arm has infinite priority", func(t *testing.T) {
		require.Equal(t, math.Inf(1), ucb1(0, 0, 2.0*math.Log(100)),
			"Should return +Inf for an arm never pulled")
	})

	t.Run("exploration term decreases with pulls", func(t *testing.T) {
		cLnT := 2.0 * math.Log(100)
		score1 := ucb1(5.0, 10, cLnT)
		score2 := ucb1(10.0, 20, cLnT)

		require.Greater(t, score1, score2,
			"More pulls at the same mean should decrease the index")
	})

	t.Run("exploitation term increases with rewards", func(t *testing.T) {
		cLnT := 2.0 * math.Log(100)
		require.Greater(t, ucb1(8.0, 10, cLnT), ucb1(5.0, 10, cLnT),
			"More rewards should increase the index")
	})
}

func TestUCBChoice(t *testing.T) {
	t.Run("pulls every arm once before exploiting", func(t *testing.T) {
		u, err := NewUCB(4, C_SQUARED, newRand(7))
		require.NoError(t, err)
		u.StartGame()

		seen := map[int]bool{}
		for i := 0; i < 4; i++ {
			arm := u.Choice()
			require.False(t, seen[arm], "Should not pick an arm twice before all arms are explored")
			seen[arm] = true
			u.GetReward(arm, 0.5)
		}
		require.Len(t, seen, 4, "Should explore all arms")
	})

	t.Run("converges to the best arm", func(t *testing.T) {
		means := []float64{0.1, 0.9, 0.2}
		u, err := NewUCB(3, C_SQUARED, newRand(3))
		require.NoError(t, err)
		u.StartGame()

		for i := 0; i < 2000; i++ {
			arm := u.Choice()
			u.GetReward(arm, means[arm])
		}
		require.Greater(t, u.Pulls(1), u.Pulls(0)+u.Pulls(2),
			"Best arm should be pulled most")
	})

	t.Run("start game clears statistics", func(t *testing.T) {
		u, err := NewUCB(2, C_SQUARED, newRand(3))
		require.NoError(t, err)
		u.GetReward(0, 1)
		u.StartGame()

		require.Equal(t, 0, u.T(), "Time should reset")
		require.Equal(t, 0, u.Pulls(0), "Pulls should reset")
		require.Equal(t, math.Inf(1), u.Mean(0), "Mean of an unpulled arm is +Inf")
	})
}
