// meta/meta.go
package meta

// GO_ROUTINES defines the number of goroutines a simulation step may use.
const GO_ROUTINES = 8

// HORIZON defines the number of rounds of a run.
const HORIZON = 1000

// REPETITIONS defines how many independent runs each variant plays.
const REPETITIONS = 4

// SEED defines the master seed of an experiment.
const SEED = 42

// PLAYERS defines the default number of players.
const PLAYERS = 3
