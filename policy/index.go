package policy

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/rand"
)

// IndexPolicy holds the per-arm statistics shared by every index policy and
// picks arms by maximizing an index computed from them.
type IndexPolicy struct {
	nbArms  int
	rewards []float64
	pulls   []int
	t       int
	index   []float64
	rng     *rand.Rand
	compute func(arm int) float64
}

func newIndexPolicy(nbArms int, rng *rand.Rand) (*IndexPolicy, error) {
	if nbArms <= 0 {
		return nil, fmt.Errorf("%w: number of arms must be > 0, got %d", ErrInvalidConfiguration, nbArms)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: policy needs its own random generator", ErrInvalidConfiguration)
	}
	return &IndexPolicy{
		nbArms:  nbArms,
		rewards: make([]float64, nbArms),
		pulls:   make([]int, nbArms),
		index:   make([]float64, nbArms),
		rng:     rng,
	}, nil
}

func (p *IndexPolicy) NbArms() int {
	return p.nbArms
}

// T is the number of observations received since the last StartGame.
func (p *IndexPolicy) T() int {
	return p.t
}

func (p *IndexPolicy) Pulls(arm int) int {
	return p.pulls[arm]
}

// Mean is the empirical mean of the arm, +Inf when it was never pulled.
func (p *IndexPolicy) Mean(arm int) float64 {
	if p.pulls[arm] == 0 {
		return math.Inf(1)
	}
	return p.rewards[arm] / float64(p.pulls[arm])
}

func (p *IndexPolicy) StartGame() {
	p.t = 0
	clear(p.rewards)
	clear(p.pulls)
	clear(p.index)
}

func (p *IndexPolicy) GetReward(arm int, reward float64) {
	p.t++
	p.pulls[arm]++
	p.rewards[arm] += reward
}

func (p *IndexPolicy) computeAllIndex() {
	for arm := range p.index {
		p.index[arm] = p.compute(arm)
	}
}

// Choice picks uniformly among the arms with maximal index.
func (p *IndexPolicy) Choice() int {
	p.computeAllIndex()
	return p.pickAmong(slices.Max(p.index))
}

// ChoiceWithRank picks uniformly among the arms holding the rank-th largest
// distinct index value. When ties leave fewer distinct values than rank, the
// rank-th largest value (counting ties) is used, and past the end of the arms
// the smallest index is used.
func (p *IndexPolicy) ChoiceWithRank(rank int) int {
	if rank <= 1 {
		return p.Choice()
	}
	p.computeAllIndex()

	values := slices.Clone(p.index)
	slices.SortFunc(values, func(a, b float64) int { return cmp.Compare(b, a) })
	distinct := slices.Compact(slices.Clone(values))

	var target float64
	if rank <= len(distinct) {
		target = distinct[rank-1]
	} else {
		target = values[min(rank, len(values))-1]
	}
	return p.pickAmong(target)
}

// EstimatedOrder returns the arms sorted by decreasing index, ties broken by
// arm id.
func (p *IndexPolicy) EstimatedOrder() []int {
	p.computeAllIndex()
	order := make([]int, p.nbArms)
	for arm := range order {
		order[arm] = arm
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(p.index[b], p.index[a])
	})
	return order
}

// Position is the number of arms with a strictly greater index, so every arm
// of a tie shares the position of the best one.
func (p *IndexPolicy) Position(arm int) int {
	p.computeAllIndex()
	position := 0
	for _, v := range p.index {
		if v > p.index[arm] {
			position++
		}
	}
	return position
}

func (p *IndexPolicy) pickAmong(value float64) int {
	candidates := make([]int, 0, p.nbArms)
	for arm, v := range p.index {
		if v == value {
			candidates = append(candidates, arm)
		}
	}
	if len(candidates) == 0 { // NaN index
		return p.rng.Intn(p.nbArms)
	}
	return candidates[p.rng.Intn(len(candidates))]
}

// explorationTerm is ln(t) + c ln(max(1, ln(t))), the confidence level used by
// the kl-dominated UCB family.
func (p *IndexPolicy) explorationTerm(c float64) float64 {
	logT := math.Log(float64(p.t))
	return logT + c*math.Log(max(1, logT))
}
