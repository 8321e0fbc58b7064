package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEpsilonGreedy(t *testing.T) {
	t.Run("rejects epsilon outside [0, 1]", func(t *testing.T) {
		for _, epsilon := range []float64{-0.1, 1.1} {
			_, err := NewEpsilonGreedy(3, epsilon, newRand(1))
			require.ErrorIs(t, err, ErrInvalidConfiguration, "epsilon=%g should be rejected", epsilon)
		}
	})

	t.Run("accepts the bounds", func(t *testing.T) {
		for _, epsilon := range []float64{0, 1} {
			_, err := NewEpsilonGreedy(3, epsilon, newRand(1))
			require.NoError(t, err)
		}
	})
}

func TestEpsilonGreedyChoice(t *testing.T) {
	t.Run("zero epsilon always exploits", func(t *testing.T) {
		e, err := NewEpsilonGreedy(3, 0, newRand(1))
		require.NoError(t, err)
		e.GetReward(0, 0.1)
		e.GetReward(1, 0.9)
		e.GetReward(2, 0.4)

		for i := 0; i < 50; i++ {
			require.Equal(t, 1, e.Choice(), "Should exploit the best mean")
			require.Equal(t, 2, e.ChoiceWithRank(2), "Should exploit the second best mean")
		}
	})

	t.Run("full epsilon explores every arm", func(t *testing.T) {
		e, err := NewEpsilonGreedy(3, 1, newRand(5))
		require.NoError(t, err)
		e.GetReward(0, 0.1)
		e.GetReward(1, 0.9)
		e.GetReward(2, 0.4)

		seen := map[int]bool{}
		for i := 0; i < 200; i++ {
			seen[e.Choice()] = true
		}
		require.Len(t, seen, 3, "Pure exploration should reach every arm")
	})
}
