package eval

import "github.com/danielpatrickdp/gesture-agent/internal/note"

// #region eval-config
// EvalConfig holds the bounds a generated note must respect before playback.
type EvalConfig struct {
	SampleInterval float64 // minimum duration of a generated note
	MaxPoints      int     // reject notes longer than this
	MaxCohesion    float64 // warn if the generated phrase is more cohesive than this
}

// DefaultEvalConfig matches the generative engine defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		SampleInterval: 0.02,
		MaxPoints:      400,
		MaxCohesion:    0.95,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of validating one generated phrase. Valid holds
// the notes that passed every check, in input order.
type EvalResult struct {
	Passed   bool
	Metrics  []EvalMetric
	Reason   string
	Valid    []note.Note
	Rejected []Rejection
}

// Rejection names a dropped note and the first check it failed.
type Rejection struct {
	Index  int
	NoteID string
	Reason string
}

// #endregion eval-result
