package agent

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region crossover

// Crossover breeds one note from two parents.
func (a *Agent) Crossover(p1, p2 note.Note) (note.Note, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.crossover(a.Hotness(), p1, p2)
}

// GenerateCrossovers breeds count independent children of the same parents.
// A count of 0 or less uses Config.Crossovers.
func (a *Agent) GenerateCrossovers(p1, p2 note.Note, count int) ([]note.Note, error) {
	if count <= 0 {
		count = a.config.Crossovers
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.Hotness()
	out := make([]note.Note, 0, count)
	for i := 0; i < count; i++ {
		child, err := a.crossover(h, p1, p2)
		if err != nil {
			return out, &GenerationError{Stage: StageCrossover, Index: i, Err: err}
		}
		out = append(out, child)
	}
	return out, nil
}

// crossover assumes a.mu is held.
func (a *Agent) crossover(h float64, p1, p2 note.Note) (note.Note, error) {
	if len(p1.Points) == 0 || len(p2.Points) == 0 {
		return note.Note{}, ErrEmptyParent
	}

	fingers := a.crossFingers(h, p1.Fingers, p2.Fingers)
	first := a.crossFirstPoint(h, p1.Points[0], p2.Points[0])
	count := a.crossCount(h, len(p1.Points), len(p2.Points))
	points := a.walk(h, first, count, p1.Points, p2.Points)

	var pause float64
	if a.gate.Fires(h) {
		pause = a.rng.Float64() * a.config.MaxPause
	} else {
		pause = max(0, a.interpolate(h, p1.PauseAfter, p2.PauseAfter))
	}

	duration := a.config.SampleInterval
	if len(points) > 1 {
		duration = float64(len(points)-1) * a.config.SampleInterval
	}

	child := note.Note{
		ID:         note.NewID(),
		Fingers:    fingers,
		Points:     points,
		Duration:   duration,
		PauseAfter: pause,
		Source:     note.AI,
	}
	a.logger.Debug("crossover",
		zap.String("fingers", fingers.String()),
		zap.Int("points", len(points)),
		zap.Float64("pause_after", pause),
		zap.Float64("hotness", h),
	)
	return child, nil
}

// #endregion crossover

// #region attributes

func (a *Agent) crossFingers(h float64, f1, f2 note.FingerSet) note.FingerSet {
	if a.gate.Fires(h) {
		return a.randomFingers()
	}
	if a.rng.Float64() < h {
		union := f1.Union(f2)
		if union.Empty() {
			return a.pickParent(f1, f2)
		}
		var kept []int
		for _, f := range union {
			if a.rng.Float64() < 0.5 {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			kept = []int{union[a.rng.IntN(len(union))]}
		}
		return note.NewFingerSet(kept...)
	}
	return a.pickParent(f1, f2)
}

func (a *Agent) pickParent(f1, f2 note.FingerSet) note.FingerSet {
	if a.rng.Float64() < 0.5 {
		return f1.Clone()
	}
	return f2.Clone()
}

// randomFingers returns a uniformly sized, non-empty random subset of 1..4.
func (a *Agent) randomFingers() note.FingerSet {
	all := []int{1, 2, 3, 4}
	a.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	k := 1 + a.rng.IntN(len(all))
	return note.NewFingerSet(all[:k]...)
}

func (a *Agent) crossFirstPoint(h float64, q1, q2 note.Point) note.Point {
	v1, v2 := q1.Params(), q2.Params()
	var out [note.NumParams]float64
	for i := range out {
		if a.gate.Fires(h) {
			out[i] = a.rng.Float64()
			continue
		}
		out[i] = clamp(a.interpolate(h, v1[i], v2[i]))
	}
	return note.PointFromParams(out, 0)
}

func (a *Agent) crossCount(h float64, n1, n2 int) int {
	if a.gate.Fires(h) {
		return 2 + a.rng.IntN(a.config.MaxPoints()-1)
	}
	return max(2, int(a.interpolate(h, float64(n1), float64(n2))))
}

// walk builds count points from first, stepping by mutated or inherited
// finite differences and clipping to [0,1] after every step.
func (a *Agent) walk(h float64, first note.Point, count int, s1, s2 []note.Point) []note.Point {
	points := make([]note.Point, 1, count)
	points[0] = first
	current := first.Params()
	for i := 1; i < count; i++ {
		var step []float64
		if a.gate.Fires(h) {
			step = make([]float64, note.NumParams)
			for k := range step {
				step[k] = (a.rng.Float64()*2 - 1) * a.config.StepRange
			}
		} else {
			d1 := parentStep(s1, i, count)
			d2 := parentStep(s2, i, count)
			step = a.interpolateVector(h, d1, d2)
		}
		for k := range current {
			current[k] = clamp(current[k] + step[k])
		}
		points = append(points, note.PointFromParams(current, float64(i)*a.config.SampleInterval))
	}
	return points
}

// parentStep maps step i of count proportionally into a parent's points and
// returns the finite difference ending there. A single-point parent yields a
// zero step.
func parentStep(pts []note.Point, i, count int) []float64 {
	if len(pts) < 2 {
		return make([]float64, note.NumParams)
	}
	idx := int(float64(i) / float64(count) * float64(len(pts)))
	idx = min(idx, len(pts)-1)
	idx = max(idx, 1)
	return note.StepBetween(pts[idx-1], pts[idx])
}

// #endregion attributes

// #region helpers

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
