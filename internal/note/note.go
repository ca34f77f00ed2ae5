package note

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"github.com/google/uuid"
)

// #region errors
var (
	ErrNoPoints       = errors.New("note has no data points")
	ErrFirstPointTime = errors.New("first point must have relative time 0")
	ErrParamRange     = errors.New("point parameter outside [0,1]")
	ErrFingerRange    = errors.New("finger outside 1..4")
	ErrNegativeTiming = errors.New("negative duration or pause")
)

// #endregion errors

// #region constructor
// NewID returns a fresh note identifier.
func NewID() string {
	return uuid.New().String()
}

// #endregion constructor

// #region clone
// Clone returns a deep copy so snapshots never alias recorder state.
func (n Note) Clone() Note {
	out := n
	out.Fingers = n.Fingers.Clone()
	if n.Points != nil {
		out.Points = make([]Point, len(n.Points))
		copy(out.Points, n.Points)
	}
	return out
}

// CloneAll deep-copies a slice of notes.
func CloneAll(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// #endregion clone

// #region validate
// Validate checks the structural invariants of a note.
func (n Note) Validate() error {
	if len(n.Points) == 0 {
		return ErrNoPoints
	}
	if n.Points[0].Time != 0 {
		return ErrFirstPointTime
	}
	for i, p := range n.Points {
		for j, v := range p.Params() {
			if v < 0 || v > 1 {
				return fmt.Errorf("point %d %s=%.4f: %w", i, ParamNames[j], v, ErrParamRange)
			}
		}
		if p.Time < 0 {
			return fmt.Errorf("point %d time=%.4f: %w", i, p.Time, ErrNegativeTiming)
		}
	}
	for _, f := range n.Fingers {
		if f < MinFinger || f > MaxFinger {
			return fmt.Errorf("finger %d: %w", f, ErrFingerRange)
		}
	}
	if n.Duration < 0 || n.PauseAfter < 0 {
		return ErrNegativeTiming
	}
	return nil
}

// #endregion validate

// #region trajectory
// Steps returns the finite differences between consecutive points in
// parameter space. Nil for fewer than two points.
func (n Note) Steps() [][]float64 {
	if len(n.Points) < 2 {
		return nil
	}
	steps := make([][]float64, 0, len(n.Points)-1)
	for i := 1; i < len(n.Points); i++ {
		steps = append(steps, StepBetween(n.Points[i-1], n.Points[i]))
	}
	return steps
}

// StepBetween returns b - a over the five parameters.
func StepBetween(a, b Point) []float64 {
	pa, pb := a.Params(), b.Params()
	out := make([]float64, NumParams)
	for i := range out {
		out[i] = pb[i] - pa[i]
	}
	return out
}

// PathLength is the summed Euclidean length of every step.
func (n Note) PathLength() float64 {
	steps := n.Steps()
	if len(steps) == 0 {
		return 0
	}
	lengths := make([]float64, len(steps))
	for i, d := range steps {
		lengths[i] = math.Sqrt(vecmath.DotProduct(d, d))
	}
	return vecmath.Sum(lengths)
}

// MeanStep is the average step vector, nil for fewer than two points.
func (n Note) MeanStep() []float64 {
	steps := n.Steps()
	if len(steps) == 0 {
		return nil
	}
	mean := make([]float64, NumParams)
	for _, d := range steps {
		vecmath.AddBlockInPlace(mean, d)
	}
	vecmath.ScaleBlockInPlace(mean, 1/float64(len(steps)))
	return mean
}

// LastTime returns the relative time of the final point.
func (n Note) LastTime() float64 {
	if len(n.Points) == 0 {
		return 0
	}
	return n.Points[len(n.Points)-1].Time
}

// #endregion trajectory

// #region filters
// BySource returns the notes produced by src.
func BySource(notes []Note, src Source) []Note {
	var out []Note
	for _, n := range notes {
		if n.Source == src {
			out = append(out, n)
		}
	}
	return out
}

// InPhrase returns the notes tagged with phrase.
func InPhrase(notes []Note, phrase int) []Note {
	var out []Note
	for _, n := range notes {
		if n.Phrase == phrase {
			out = append(out, n)
		}
	}
	return out
}

// WithPoints drops notes that carry no data points.
func WithPoints(notes []Note) []Note {
	var out []Note
	for _, n := range notes {
		if len(n.Points) > 0 {
			out = append(out, n)
		}
	}
	return out
}

// #endregion filters
