package cohesion

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region scorer

// Scorer rates how similar notes are to one another.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config { return s.config }

// #endregion scorer

// #region similarity

// Similarity returns a symmetric score in [0,1]. Degenerate terms (empty
// finger sets, zero path length, fewer than two points) contribute 0.
func (s *Scorer) Similarity(a, b note.Note) float64 {
	return s.Explain(a, b).Total
}

// Explain returns Similarity together with its per-term contributions.
func (s *Scorer) Explain(a, b note.Note) Breakdown {
	bd := Breakdown{
		Fingers:   jaccard(a.Fingers, b.Fingers),
		Path:      pathRatio(a.PathLength(), b.PathLength()),
		Direction: direction(a.MeanStep(), b.MeanStep()),
	}
	bd.Total = clamp(s.config.FingerWeight*bd.Fingers +
		s.config.PathWeight*bd.Path +
		s.config.DirectionWeight*bd.Direction)
	return bd
}

// #endregion similarity

// #region cohesion

// Cohesion is the mean similarity of consecutive note pairs; 0 for fewer
// than two notes.
func (s *Scorer) Cohesion(notes []note.Note) float64 {
	if len(notes) < 2 {
		return 0
	}
	scores := make([]float64, len(notes)-1)
	for i := 1; i < len(notes); i++ {
		scores[i-1] = s.Similarity(notes[i-1], notes[i])
	}
	return vecmath.Sum(scores) / float64(len(scores))
}

// Hotness maps a phrase's cohesion to the engine's hotness: cohesive phrases
// cool the engine, scattered ones heat it.
func (s *Scorer) Hotness(cohesion float64) float64 {
	return clamp(s.config.HotnessGain * (s.config.TargetCohesion - cohesion))
}

// #endregion cohesion

// #region helpers

func jaccard(a, b note.FingerSet) float64 {
	union := a.Union(b)
	if len(union) == 0 {
		return 0
	}
	return float64(len(a.Intersect(b))) / float64(len(union))
}

func pathRatio(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return math.Min(a, b) / hi
}

// direction rescales the cosine of two mean step vectors from [-1,1] to [0,1].
func direction(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	denom := math.Sqrt(vecmath.DotProduct(a, a)) * math.Sqrt(vecmath.DotProduct(b, b))
	if denom == 0 {
		return 0
	}
	cos := vecmath.DotProduct(a, b) / denom
	return clamp((cos + 1) / 2)
}

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
