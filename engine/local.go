package engine

import (
	"context"
	"fmt"

	"bandit/collision"
	"bandit/experiments/metrics"
	"bandit/multiplayer"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Engine struct {
	players    []Player
	model      collision.Model
	arms       Arms
	goroutines int
	record     bool
	metrics    metrics.Collector
}

// Run starts a game and plays horizon rounds, unless the context is done
// first.
func (e *Engine) Run(ctx context.Context, horizon int) (Result, error) {
	if horizon <= 0 {
		return Result{}, fmt.Errorf("%w: horizon must be > 0, got %d", multiplayer.ErrInvalidConfiguration, horizon)
	}

	for _, p := range e.players {
		p.StartGame()
	}
	e.metrics.Start(e.goroutines)

	result := Result{}
	for step := 1; step <= horizon; step++ {
		round, err := e.Step(ctx, step)
		if err != nil {
			result.Metric = e.metrics.Complete()
			return result, err
		}
		result.Rounds++
		if e.record {
			result.Trajectory = append(result.Trajectory, round)
		}
	}
	result.Metric = e.metrics.Complete()

	log.Debug().
		Int("rounds", result.Rounds).
		Int("collisions", result.Metric.Collisions).
		Float64("reward", result.Metric.Reward).
		Msg("run completed")
	return result, nil
}

// Step plays one round: every player chooses, then all choices are resolved
// together, then every player receives its feedback.
func (e *Engine) Step(ctx context.Context, step int) (Round, error) {
	if err := ctx.Err(); err != nil {
		return Round{}, fmt.Errorf("stopped at round %d: %w", step, err)
	}

	choices, err := e.choose()
	if err != nil {
		return Round{}, err
	}

	feedback, err := e.model.Resolve(choices, e.arms)
	if err != nil {
		return Round{}, fmt.Errorf("failed to resolve round %d: %w", step, err)
	}

	if err := e.deliver(feedback); err != nil {
		return Round{}, err
	}
	e.metrics.AddRound()

	round := Round{Step: step, Choices: choices, Feedback: feedback}
	if e.record {
		round.States = e.states()
	}
	log.Trace().Int("step", step).Interface("choices", choices).Msg("round played")
	return round, nil
}

// choose collects every player's arm; it returns only once all choices are in.
func (e *Engine) choose() ([]collision.Choice, error) {
	choices := make([]collision.Choice, len(e.players))
	g := new(errgroup.Group)
	g.SetLimit(e.goroutines)
	for i, p := range e.players {
		g.Go(func() error {
			arm := p.Choice()
			if arm < 0 || arm >= e.arms.NbArms() {
				return fmt.Errorf("%w: player %d chose arm %d out of %d", collision.ErrInvalidChoice, i, arm, e.arms.NbArms())
			}
			choices[i] = collision.Choice{Agent: i, Arm: arm}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return choices, nil
}

// deliver hands each player its own feedback, one goroutine per player at
// most, so that a player's state is never mutated concurrently.
func (e *Engine) deliver(feedback map[int]collision.Feedback) error {
	for i := range e.players {
		if _, ok := feedback[i]; !ok {
			return fmt.Errorf("no feedback for player %d", i)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(e.goroutines)
	for i, p := range e.players {
		fb := feedback[i]
		g.Go(func() error {
			if fb.Collided {
				p.HandleCollision(fb.Arm, fb.Reward, fb.Sensed)
				e.metrics.AddCollision()
			} else {
				p.GetReward(fb.Arm, fb.Reward)
				e.metrics.AddSuccess(fb.Reward)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) states() []multiplayer.State {
	var states []multiplayer.State
	for _, p := range e.players {
		if o, ok := p.(Observable); ok {
			states = append(states, o.State())
		}
	}
	return states
}
