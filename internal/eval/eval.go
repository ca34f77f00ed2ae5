package eval

import (
	"fmt"

	"github.com/danielpatrickdp/gesture-agent/internal/cohesion"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region eval-harness
// EvalHarness validates generated notes before they reach a sink.
type EvalHarness struct {
	config EvalConfig
	scorer *cohesion.Scorer
}

// NewEvalHarness creates an eval harness. scorer may be nil, which skips the
// informational cohesion metric.
func NewEvalHarness(config EvalConfig, scorer *cohesion.Scorer) *EvalHarness {
	return &EvalHarness{config: config, scorer: scorer}
}

// Run checks every note and keeps the ones that pass. The phrase passes when
// at least one note survives.
func (h *EvalHarness) Run(notes []note.Note) EvalResult {
	var (
		metrics     []EvalMetric
		valid       []note.Note
		rejected    []Rejection
		pointsTotal int
	)

	for i, n := range notes {
		if reason := h.check(n); reason != "" {
			rejected = append(rejected, Rejection{Index: i, NoteID: n.ID, Reason: reason})
			continue
		}
		valid = append(valid, n)
		pointsTotal += len(n.Points)
	}

	passed := len(valid) > 0
	metrics = append(metrics,
		EvalMetric{Name: "valid_notes", Value: float64(len(valid)), Pass: passed},
		EvalMetric{Name: "rejected_notes", Value: float64(len(rejected)), Pass: len(rejected) == 0},
	)
	if len(valid) > 0 {
		metrics = append(metrics, EvalMetric{
			Name:  "mean_points",
			Value: float64(pointsTotal) / float64(len(valid)),
			Pass:  true,
		})
	}

	// Informational only: a very cohesive answer is allowed, just flagged.
	if h.scorer != nil && len(valid) > 1 {
		c := h.scorer.Cohesion(valid)
		metrics = append(metrics, EvalMetric{
			Name:  "phrase_cohesion",
			Value: c,
			Pass:  c <= h.config.MaxCohesion,
		})
	}

	reason := "all checks passed"
	switch {
	case !passed && len(notes) == 0:
		reason = "eval failed: no notes"
	case !passed:
		reason = fmt.Sprintf("eval failed: all %d notes rejected: %s", len(rejected), rejected[0].Reason)
	case len(rejected) > 0:
		reason = fmt.Sprintf("dropped %d of %d notes: %s", len(rejected), len(notes), rejected[0].Reason)
	}

	return EvalResult{
		Passed:   passed,
		Metrics:  metrics,
		Reason:   reason,
		Valid:    valid,
		Rejected: rejected,
	}
}

// #endregion eval-harness

// #region checks
// check returns the first failed check, or "" when the note is playable.
func (h *EvalHarness) check(n note.Note) string {
	if err := n.Validate(); err != nil {
		return err.Error()
	}
	if n.Source != note.AI {
		return fmt.Sprintf("source %q is not ai", n.Source)
	}
	if h.config.MaxPoints > 0 && len(n.Points) > h.config.MaxPoints {
		return fmt.Sprintf("%d points exceeds %d", len(n.Points), h.config.MaxPoints)
	}
	if n.Duration < h.config.SampleInterval-1e-9 {
		return fmt.Sprintf("duration %.4f below interval %.4f", n.Duration, h.config.SampleInterval)
	}
	return ""
}

// #endregion checks
