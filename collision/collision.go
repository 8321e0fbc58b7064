package collision

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var ErrInvalidChoice = errors.New("invalid choice")

// Kind selects how simultaneous choices of the same arm are resolved.
type Kind int

const (
	// OnlyUniqueUserGetsReward marks every agent sharing an arm as collided.
	OnlyUniqueUserGetsReward Kind = iota
	// NoCollision lets every agent receive the arm's reward.
	NoCollision
)

var kinds = []Kind{OnlyUniqueUserGetsReward, NoCollision}

func (k Kind) String() string {
	switch k {
	case OnlyUniqueUserGetsReward:
		return "only-unique"
	case NoCollision:
		return "none"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(name string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown collision model %q", name)
}

// RewardMode decides what collided agents observe.
type RewardMode int

const (
	// WithholdReward gives collided agents no reward value.
	WithholdReward RewardMode = iota
	// PassThroughReward gives collided agents the reward sensed on the arm.
	PassThroughReward
)

// Choice is one agent's arm for the round.
type Choice struct {
	Agent int
	Arm   int
}

// Feedback is what one agent observes at the end of a round. Sensed tells
// whether Reward carries a value.
type Feedback struct {
	Arm      int
	Reward   float64
	Sensed   bool
	Collided bool
}

// Sampler draws the reward of an arm for the current round.
type Sampler interface {
	Draw(arm int) float64
}

type Model struct {
	kind Kind
	mode RewardMode
}

func NewModel(kind Kind, mode RewardMode) Model {
	return Model{kind: kind, mode: mode}
}

func (m Model) Kind() Kind {
	return m.kind
}

func (m Model) Mode() RewardMode {
	return m.mode
}

// Resolve groups the round's choices by arm and returns each agent's
// feedback. Rewards are drawn once per chosen arm in increasing arm order, so
// the result does not depend on the order of choices.
func (m Model) Resolve(choices []Choice, sampler Sampler) (map[int]Feedback, error) {
	if sampler == nil {
		return nil, fmt.Errorf("%w: missing reward sampler", ErrInvalidChoice)
	}
	occupancy, err := group(choices)
	if err != nil {
		return nil, err
	}

	rewards := make(map[int]float64, len(occupancy))
	for _, arm := range slices.Sorted(maps.Keys(occupancy)) {
		rewards[arm] = sampler.Draw(arm)
	}

	feedback := make(map[int]Feedback, len(choices))
	for _, choice := range choices {
		collided := m.kind == OnlyUniqueUserGetsReward && occupancy[choice.Arm] > 1
		fb := Feedback{Arm: choice.Arm, Collided: collided}
		if !collided || m.mode == PassThroughReward {
			fb.Reward = rewards[choice.Arm]
			fb.Sensed = true
		}
		feedback[choice.Agent] = fb
	}
	return feedback, nil
}

// Collisions returns the arms chosen by more than one agent.
func Collisions(choices []Choice) (map[int]bool, error) {
	occupancy, err := group(choices)
	if err != nil {
		return nil, err
	}
	collided := make(map[int]bool)
	for arm, count := range occupancy {
		if count > 1 {
			collided[arm] = true
		}
	}
	return collided, nil
}

func group(choices []Choice) (map[int]int, error) {
	agents := make(map[int]bool, len(choices))
	occupancy := make(map[int]int)
	for _, choice := range choices {
		if choice.Arm < 0 {
			return nil, fmt.Errorf("%w: agent %d chose arm %d", ErrInvalidChoice, choice.Agent, choice.Arm)
		}
		if agents[choice.Agent] {
			return nil, fmt.Errorf("%w: agent %d chose twice", ErrInvalidChoice, choice.Agent)
		}
		agents[choice.Agent] = true
		occupancy[choice.Arm]++
	}
	return occupancy, nil
}
