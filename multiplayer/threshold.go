package multiplayer

import (
	"fmt"
	"math"
	"strings"
)

// Threshold selects the rule converting the time since the last collision and
// the current population estimate into a collision-count tolerance.
type Threshold int

const (
	// ThresholdWithHorizon grows with ln(1 + T) scaled by the estimate.
	ThresholdWithHorizon Threshold = iota
	// ThresholdDoublingTrick replaces the horizon by an exponentially growing
	// phase bound.
	ThresholdDoublingTrick
	// ThresholdOnT only depends on the time since the last collision.
	ThresholdOnT
)

const (
	doublingBase   = 2.0
	minFakeHorizon = 64.0
)

var thresholds = []Threshold{ThresholdWithHorizon, ThresholdDoublingTrick, ThresholdOnT}

func (th Threshold) String() string {
	switch th {
	case ThresholdWithHorizon:
		return "with-horizon"
	case ThresholdDoublingTrick:
		return "doubling-trick"
	case ThresholdOnT:
		return "on-t"
	default:
		return fmt.Sprintf("Threshold(%d)", int(th))
	}
}

func ParseThreshold(name string) (Threshold, error) {
	for _, th := range thresholds {
		if strings.EqualFold(name, th.String()) {
			return th, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown threshold %q", ErrInvalidConfiguration, name)
}

func (th Threshold) valid() bool {
	return th >= ThresholdWithHorizon && th <= ThresholdOnT
}

// Evaluate returns the tolerance for t steps since the last collision, an
// estimate of the number of players, and a horizon (<= 0 when unknown).
func (th Threshold) Evaluate(t, estimate, horizon int) float64 {
	if t < 0 {
		panic(fmt.Sprintf("time since last collision cannot be negative: %d", t))
	}
	if estimate < 1 {
		panic(fmt.Sprintf("players estimate must be >= 1: %d", estimate))
	}

	switch th {
	case ThresholdWithHorizon:
		if horizon <= 0 {
			return withHorizon(estimate, float64(t))
		}
		return withHorizon(estimate, float64(horizon))
	case ThresholdDoublingTrick:
		phase := math.Ceil(math.Log1p(float64(t)) / math.Log(doublingBase))
		return withHorizon(estimate, math.Max(math.Pow(doublingBase, phase), minFakeHorizon))
	case ThresholdOnT:
		return math.Log1p(float64(t))
	default:
		panic(fmt.Sprintf("unknown threshold %d", int(th)))
	}
}

func withHorizon(estimate int, horizon float64) float64 {
	return float64(estimate) * math.Log1p(horizon)
}
