package engine

import (
	"bandit/collision"
	"bandit/experiments/metrics"
	"bandit/meta"
	"bandit/multiplayer"
)

// Player is the front a simulation drives for one agent.
type Player interface {
	StartGame()
	Choice() int
	GetReward(arm int, reward float64)
	HandleCollision(arm int, reward float64, sensed bool)
}

// Observable players expose their coordination state for trajectories.
type Observable interface {
	State() multiplayer.State
}

// Arms is the reward source of the bandit problem.
type Arms interface {
	collision.Sampler
	NbArms() int
}

// Round records one step of a run.
type Round struct {
	Step     int
	Choices  []collision.Choice
	Feedback map[int]collision.Feedback
	States   []multiplayer.State // only for Observable players
}

type Result struct {
	Rounds     int
	Trajectory []Round
	Metric     metrics.RunMetric
}

type Option func(e *Engine)

// WithGoroutines bounds how many players act concurrently within a phase.
func WithGoroutines(goroutines int) Option {
	return func(e *Engine) {
		if goroutines > 0 {
			e.goroutines = goroutines
		}
	}
}

// WithTrajectory records every round in the result.
func WithTrajectory() Option {
	return func(e *Engine) {
		e.record = true
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(e *Engine) {
		if collector != nil {
			e.metrics = collector
		}
	}
}

func New(players []Player, model collision.Model, arms Arms, options ...Option) *Engine {
	if len(players) == 0 {
		panic("need at least one player")
	}
	if arms == nil {
		panic("need arms to draw rewards from")
	}

	e := &Engine{ // Default values
		players:    players,
		model:      model,
		arms:       arms,
		goroutines: meta.GO_ROUTINES,
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Players adapts coordinator children to engine players.
func Players(children []*multiplayer.Child) []Player {
	players := make([]Player, len(children))
	for i, child := range children {
		players[i] = child
	}
	return players
}
