package cohesion

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

func line(fingers note.FingerSet, dx, dy float64, n int) note.Note {
	pts := make([]note.Point, n)
	for i := range pts {
		pts[i] = note.Point{X: 0.1 + dx*float64(i), Y: 0.1 + dy*float64(i), Time: 0.02 * float64(i)}
	}
	return note.Note{Fingers: fingers, Points: pts, Source: note.Human}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSimilarity_Self(t *testing.T) {
	s := NewScorer(DefaultConfig())
	n := line(note.NewFingerSet(1, 2), 0.01, 0.02, 20)
	if got := s.Similarity(n, n); !approx(got, 1) {
		t.Errorf("expected self-similarity 1, got %f", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	s := NewScorer(DefaultConfig())
	a := line(note.NewFingerSet(1), 0.01, 0, 10)
	b := line(note.NewFingerSet(1, 3), -0.005, 0.02, 30)
	ab, ba := s.Similarity(a, b), s.Similarity(b, a)
	if !approx(ab, ba) {
		t.Errorf("asymmetric: %f vs %f", ab, ba)
	}
	if ab < 0 || ab > 1 {
		t.Errorf("out of range: %f", ab)
	}
}

func TestSimilarity_Terms(t *testing.T) {
	s := NewScorer(DefaultConfig())
	// Same fingers, opposite direction, path ratio 1/2.
	a := line(note.NewFingerSet(2), 0.01, 0, 11)
	b := line(note.NewFingerSet(2), -0.01, 0, 6)
	bd := s.Explain(a, b)
	if !approx(bd.Fingers, 1) {
		t.Errorf("fingers: expected 1, got %f", bd.Fingers)
	}
	if !approx(bd.Path, 0.5) {
		t.Errorf("path: expected 0.5, got %f", bd.Path)
	}
	if !approx(bd.Direction, 0) {
		t.Errorf("direction: expected 0, got %f", bd.Direction)
	}
	if !approx(bd.Total, 0.3+0.15) {
		t.Errorf("total: expected 0.45, got %f", bd.Total)
	}
}

func TestSimilarity_Degenerate(t *testing.T) {
	s := NewScorer(DefaultConfig())
	single := note.Note{Points: []note.Point{{X: 0.5}}}
	if got := s.Similarity(single, single); got != 0 {
		t.Errorf("expected 0 for empty fingers and single points, got %f", got)
	}
	still := note.Note{Fingers: note.NewFingerSet(1), Points: []note.Point{{X: 0.5}, {X: 0.5, Time: 0.02}}}
	if got := s.Similarity(still, still); !approx(got, 0.3) {
		t.Errorf("expected only finger term 0.3 for stationary notes, got %f", got)
	}
}

func TestCohesion(t *testing.T) {
	s := NewScorer(DefaultConfig())
	n := line(note.NewFingerSet(1), 0.01, 0.01, 10)
	if got := s.Cohesion(nil); got != 0 {
		t.Errorf("expected 0 for no notes, got %f", got)
	}
	if got := s.Cohesion([]note.Note{n}); got != 0 {
		t.Errorf("expected 0 for one note, got %f", got)
	}
	if got := s.Cohesion([]note.Note{n, n, n}); !approx(got, 1) {
		t.Errorf("expected 1 for identical notes, got %f", got)
	}
}

func TestHotness(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		cohesion float64
		want     float64
	}{
		{1.0, 0},
		{0.8, 0},
		{0.55, 0.5},
		{0.3, 1},
		{0, 1},
	}
	for _, tt := range tests {
		if got := s.Hotness(tt.cohesion); !approx(got, tt.want) {
			t.Errorf("Hotness(%.2f): expected %.2f, got %f", tt.cohesion, tt.want, got)
		}
	}
}
