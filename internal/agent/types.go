package agent

import (
	"errors"
	"fmt"
)

// #region config

// Config holds the generative engine's tuning knobs.
type Config struct {
	SampleInterval float64 // seconds between generated points
	MaxNoteSeconds float64 // caps a mutated point count at SampleInterval⁻¹·MaxNoteSeconds
	StepRange      float64 // mutated step components are drawn from [-StepRange, StepRange]
	MaxPause       float64 // mutated pause_after is drawn from [0, MaxPause]
	Crossovers     int     // default count for GenerateCrossovers
	CountSpread    float64 // phrase size varies by ±CountSpread·n
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SampleInterval: 0.02,
		MaxNoteSeconds: 8,
		StepRange:      0.3,
		MaxPause:       5,
		Crossovers:     6,
		CountSpread:    0.5,
	}
}

// MaxPoints is the upper bound for a mutated point count, never below 2.
func (c Config) MaxPoints() int {
	if c.SampleInterval <= 0 {
		return 2
	}
	return max(2, int(1/c.SampleInterval*c.MaxNoteSeconds))
}

// #endregion config

// #region errors

var (
	ErrNoNotes     = errors.New("no notes with data points")
	ErrEmptyPhrase = errors.New("last phrase has no notes")
	ErrEmptyParent = errors.New("parent note has no data points")
)

// Stage names where generation failed.
type Stage string

const (
	StageCount     Stage = "count"
	StageSelect    Stage = "select"
	StageCrossover Stage = "crossover"
)

// GenerationError wraps a failure at one stage of phrase generation. Index is
// the slot being generated, -1 when the failure precedes the loop.
type GenerationError struct {
	Stage Stage
	Index int
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("generate %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("generate %s [%d]: %v", e.Stage, e.Index, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// #endregion errors
