package policy

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
)

// UCBOOST_C is the constant for which the regret theorems hold.
const UCBOOST_C = 3.0

// Everything in [0, 1] is truncated to [eps, 1 - eps] before evaluating a
// distance or its solver.
const eps = 1e-15

// Distance identifies a kl-dominated semi-distance with a closed-form
// solution to max{q : d(p, q) <= delta}.
type Distance int

const (
	DistanceSq Distance = iota
	DistanceBq
	DistanceHellinger
	DistanceKLLB
	DistanceT
)

// Distance sets of size 3, 4 and 5 from the UCBoost paper.
var (
	Distances3 = []Distance{DistanceBq, DistanceHellinger, DistanceKLLB}
	Distances4 = []Distance{DistanceBq, DistanceHellinger, DistanceKLLB, DistanceT}
	Distances5 = []Distance{DistanceSq, DistanceBq, DistanceHellinger, DistanceKLLB, DistanceT}
)

func (d Distance) String() string {
	switch d {
	case DistanceSq:
		return "sq"
	case DistanceBq:
		return "bq"
	case DistanceHellinger:
		return "hellinger"
	case DistanceKLLB:
		return "kllb"
	case DistanceT:
		return "t"
	default:
		return fmt.Sprintf("Distance(%d)", int(d))
	}
}

func ParseDistance(name string) (Distance, error) {
	for _, d := range Distances5 {
		if strings.EqualFold(name, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown distance %q", ErrInvalidConfiguration, name)
}

// Semi evaluates d(p, q).
func (d Distance) Semi(p, q float64) float64 {
	p, q = truncate(p), truncate(q)
	switch d {
	case DistanceSq:
		return 2 * (p - q) * (p - q)
	case DistanceBq:
		sq := 2 * (p - q) * (p - q)
		return sq + sq*sq/9
	case DistanceHellinger:
		a := math.Sqrt(p) - math.Sqrt(q)
		b := math.Sqrt(1-p) - math.Sqrt(1-q)
		return a*a + b*b
	case DistanceKLLB:
		return p*math.Log(p) + (1-p)*math.Log((1-p)/(1-q))
	case DistanceT:
		return 2*q/(p+1) + p*math.Log(p/(p+1)) + math.Log(2/(p+1)) - 1
	default:
		panic(fmt.Sprintf("unknown distance %d", int(d)))
	}
}

// Solve returns the largest q such that d(p, q) <= delta.
func (d Distance) Solve(p, delta float64) float64 {
	if delta < 0 {
		return math.NaN()
	}
	switch d {
	case DistanceSq:
		return p + math.Sqrt(delta/2)
	case DistanceBq:
		p = truncate(p)
		return math.Min(1, p+math.Sqrt(-2.25+math.Sqrt(5.0625+2.25*delta)))
	case DistanceHellinger:
		p = truncate(p)
		sqrtP := math.Sqrt(p)
		if delta >= 2-2*sqrtP {
			return 1
		}
		root := (1-delta/2)*sqrtP + math.Sqrt((1-p)*(delta-delta*delta/4))
		return root * root
	case DistanceKLLB:
		p = truncate(p)
		return 1 - (1-p)*math.Exp((p*math.Log(p)-delta)/(1-p))
	case DistanceT:
		p = truncate(p)
		return math.Min(1, (p+1)/2*(delta-p*math.Log(p/(p+1))-math.Log(2/(1+p))+1))
	default:
		panic(fmt.Sprintf("unknown distance %d", int(d)))
	}
}

func truncate(x float64) float64 {
	return math.Min(math.Max(x, eps), 1-eps)
}

// UCBoost takes, for every arm, the smallest upper confidence bound given by
// a set of semi-distances.
type UCBoost struct {
	*IndexPolicy
	distances []Distance
	c         float64
}

func NewUCBoost(nbArms int, distances []Distance, c float64, rng *rand.Rand) (*UCBoost, error) {
	if len(distances) == 0 {
		return nil, fmt.Errorf("%w: UCBoost needs at least one distance", ErrInvalidConfiguration)
	}
	for _, d := range distances {
		if d < DistanceSq || d > DistanceT {
			return nil, fmt.Errorf("%w: unknown distance %d", ErrInvalidConfiguration, int(d))
		}
	}
	if c < 0 {
		return nil, fmt.Errorf("%w: UCBoost constant must be >= 0, got %g", ErrInvalidConfiguration, c)
	}
	base, err := newIndexPolicy(nbArms, rng)
	if err != nil {
		return nil, err
	}
	u := &UCBoost{IndexPolicy: base, distances: append([]Distance(nil), distances...), c: c}
	base.compute = u.computeIndex
	return u, nil
}

func UCBoostFactory(distances []Distance, c float64) Factory {
	return func(nbArms int, rng *rand.Rand) (Policy, error) {
		return NewUCBoost(nbArms, distances, c, rng)
	}
}

func (u *UCBoost) String() string {
	return fmt.Sprintf("UCBoost(|D|=%d, c=%.3g)", len(u.distances), u.c)
}

func (u *UCBoost) computeIndex(arm int) float64 {
	if u.pulls[arm] < 1 {
		return math.Inf(1)
	}
	p := u.rewards[arm] / float64(u.pulls[arm])
	delta := u.explorationTerm(u.c) / float64(u.pulls[arm])
	index := math.Inf(1)
	for _, d := range u.distances {
		index = math.Min(index, d.Solve(p, delta))
	}
	return index
}
