package note

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNewFingerSet_NormalizesInput(t *testing.T) {
	fs := NewFingerSet(3, 1, 3, 7, 0, 2)
	want := FingerSet{1, 2, 3}
	if !fs.Equal(want) || len(fs) != 3 {
		t.Fatalf("expected %v, got %v", want, fs)
	}
	if fs.String() != "1,2,3" {
		t.Errorf("expected \"1,2,3\", got %q", fs.String())
	}
}

func TestFingerSet_UnionIntersect(t *testing.T) {
	a := NewFingerSet(1, 2)
	b := NewFingerSet(2, 4)
	if got := a.Union(b); !got.Equal(FingerSet{1, 2, 4}) {
		t.Errorf("union: got %v", got)
	}
	if got := a.Intersect(b); !got.Equal(FingerSet{2}) {
		t.Errorf("intersect: got %v", got)
	}
	if got := a.Intersect(NewFingerSet(3)); !got.Empty() {
		t.Errorf("expected empty intersect, got %v", got)
	}
}

func TestParseFingerSet(t *testing.T) {
	fs, err := ParseFingerSet("4, 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fs.Equal(FingerSet{1, 4}) {
		t.Errorf("got %v", fs)
	}
	empty, err := ParseFingerSet("")
	if err != nil || !empty.Empty() {
		t.Errorf("expected empty set, got %v (%v)", empty, err)
	}
	if _, err := ParseFingerSet("1,x"); err == nil {
		t.Error("expected parse error")
	}
}

func TestPointJSON_FiveAndSixTuples(t *testing.T) {
	var p Point
	if err := json.Unmarshal([]byte(`[0.1,0.2,0.3,0.4,0.5]`), &p); err != nil {
		t.Fatalf("decode 5-tuple: %v", err)
	}
	if p.Velocity != 0.5 || p.Time != 0 {
		t.Errorf("unexpected point %+v", p)
	}
	if err := json.Unmarshal([]byte(`[0.1,0.2,0.3,0.4,0.5,1.25]`), &p); err != nil {
		t.Fatalf("decode 6-tuple: %v", err)
	}
	if p.Time != 1.25 {
		t.Errorf("expected time 1.25, got %f", p.Time)
	}
	if err := json.Unmarshal([]byte(`[0.1,0.2]`), &p); err == nil {
		t.Error("expected error for short tuple")
	}

	data, err := json.Marshal(Point{X: 1, Time: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "[1,0,0,0,0,2]" {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestValidate(t *testing.T) {
	good := Note{
		Fingers: NewFingerSet(1),
		Points:  []Point{{X: 0.5}, {X: 0.6, Time: 0.1}},
		Source:  Human,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid note, got %v", err)
	}

	tests := []struct {
		name string
		mut  func(n *Note)
		want error
	}{
		{"no points", func(n *Note) { n.Points = nil }, ErrNoPoints},
		{"first time", func(n *Note) { n.Points[0].Time = 0.2 }, ErrFirstPointTime},
		{"param range", func(n *Note) { n.Points[1].Y = 1.5 }, ErrParamRange},
		{"finger range", func(n *Note) { n.Fingers = FingerSet{5} }, ErrFingerRange},
		{"negative pause", func(n *Note) { n.PauseAfter = -1 }, ErrNegativeTiming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := good.Clone()
			tt.mut(&n)
			if err := n.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	orig := Note{Fingers: NewFingerSet(1, 2), Points: []Point{{X: 0.1}}}
	c := orig.Clone()
	c.Points[0].X = 0.9
	c.Fingers[0] = 4
	if orig.Points[0].X != 0.1 || orig.Fingers[0] != 1 {
		t.Error("clone aliases original")
	}
}

func TestSteps(t *testing.T) {
	n := Note{Points: []Point{{X: 0.1}, {X: 0.3, Y: 0.1}, {X: 0.2, Y: 0.1}}}
	steps := n.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if diff := steps[0][0] - 0.2; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected dx=0.2, got %f", steps[0][0])
	}
	if (Note{Points: []Point{{}}}).Steps() != nil {
		t.Error("expected nil steps for single point")
	}
}

func TestFilters(t *testing.T) {
	notes := []Note{
		{Source: Human, Phrase: 1, Points: []Point{{}}},
		{Source: AI},
		{Source: Human, Phrase: 2, Points: []Point{{}}},
	}
	if got := len(BySource(notes, Human)); got != 2 {
		t.Errorf("BySource human: got %d", got)
	}
	if got := len(InPhrase(notes, 2)); got != 1 {
		t.Errorf("InPhrase: got %d", got)
	}
	if got := len(WithPoints(notes)); got != 2 {
		t.Errorf("WithPoints: got %d", got)
	}
}

func TestPathLengthAndMeanStep(t *testing.T) {
	n := Note{Points: []Point{{X: 0}, {X: 0.3}, {X: 0.3, Y: 0.4}}}
	if got := n.PathLength(); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected path 0.7, got %f", got)
	}
	mean := n.MeanStep()
	if len(mean) != NumParams {
		t.Fatalf("expected %d components, got %d", NumParams, len(mean))
	}
	if math.Abs(mean[0]-0.15) > 1e-9 || math.Abs(mean[1]-0.2) > 1e-9 {
		t.Errorf("unexpected mean step %v", mean)
	}
	single := Note{Points: []Point{{X: 0.5}}}
	if single.PathLength() != 0 || single.MeanStep() != nil {
		t.Error("expected zero path and nil mean for a single point")
	}
}
