package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type RunMetric struct {
	Goroutines int
	Duration   time.Duration
	Rounds     int
	Successes  int
	Collisions int
	Reward     float64
}

// CollisionRate is the fraction of agent-rounds that ended in a collision.
func (m RunMetric) CollisionRate() float64 {
	total := m.Successes + m.Collisions
	if total == 0 {
		return 0
	}
	return float64(m.Collisions) / float64(total)
}

type Collector interface {
	Start(goroutines int)
	AddRound()
	AddSuccess(reward float64)
	AddCollision()
	Complete() RunMetric
}

type collector struct {
	goroutines int
	startTime  time.Time
	rounds     atomic.Int32
	successes  atomic.Int32
	collisions atomic.Int32
	mu         sync.Mutex
	reward     float64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(goroutines int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
}

func (m *collector) AddRound() {
	m.rounds.Add(1)
}

func (m *collector) AddSuccess(reward float64) {
	m.successes.Add(1)
	m.mu.Lock()
	m.reward += reward
	m.mu.Unlock()
}

func (m *collector) AddCollision() {
	m.collisions.Add(1)
}

func (m *collector) Complete() RunMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return RunMetric{
		Goroutines: m.goroutines,
		Duration:   time.Since(m.startTime),
		Rounds:     int(m.rounds.Load()),
		Successes:  int(m.successes.Load()),
		Collisions: int(m.collisions.Load()),
		Reward:     m.reward,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines int)      {}
func (m *dummyCollector) AddRound()                 {}
func (m *dummyCollector) AddSuccess(reward float64) {}
func (m *dummyCollector) AddCollision()             {}
func (m *dummyCollector) Complete() RunMetric       { return RunMetric{} }
