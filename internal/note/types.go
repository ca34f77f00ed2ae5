package note

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// #region source
// Source tags who produced a note.
type Source string

const (
	Human Source = "human"
	AI    Source = "ai"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s == Human || s == AI
}

// #endregion source

// #region constants
const (
	MinFinger = 1
	MaxFinger = 4

	// NumParams is the number of gesture parameters carried by a point.
	NumParams = 5
)

// ParamNames lists the gesture parameters in point order.
var ParamNames = [NumParams]string{"x", "y", "z", "angle", "velocity"}

// #endregion constants

// #region point
// Point is one stored sample of a note's trajectory. Time is seconds since the
// note started.
type Point struct {
	X        float64
	Y        float64
	Z        float64
	Angle    float64
	Velocity float64
	Time     float64
}

// Params returns the five gesture parameters, excluding time.
func (p Point) Params() [NumParams]float64 {
	return [NumParams]float64{p.X, p.Y, p.Z, p.Angle, p.Velocity}
}

// PointFromParams builds a point from a parameter vector and a relative time.
func PointFromParams(v [NumParams]float64, t float64) Point {
	return Point{X: v[0], Y: v[1], Z: v[2], Angle: v[3], Velocity: v[4], Time: t}
}

// MarshalJSON encodes the point as [x, y, z, angle, velocity, time].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([6]float64{p.X, p.Y, p.Z, p.Angle, p.Velocity, p.Time})
}

// UnmarshalJSON accepts 5- or 6-element arrays; a missing time decodes as 0.
func (p *Point) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	if len(vals) != 5 && len(vals) != 6 {
		return fmt.Errorf("decode point: want 5 or 6 values, got %d", len(vals))
	}
	*p = Point{X: vals[0], Y: vals[1], Z: vals[2], Angle: vals[3], Velocity: vals[4]}
	if len(vals) == 6 {
		p.Time = vals[5]
	}
	return nil
}

// #endregion point

// #region finger-set
// FingerSet is a sorted set of pinched fingers (1=index .. 4=pinky).
type FingerSet []int

// NewFingerSet dedupes, sorts and drops fingers outside 1..4.
func NewFingerSet(fingers ...int) FingerSet {
	seen := make(map[int]struct{}, len(fingers))
	out := make(FingerSet, 0, len(fingers))
	for _, f := range fingers {
		if f < MinFinger || f > MaxFinger {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// ParseFingerSet parses the comma-joined form produced by String.
func ParseFingerSet(s string) (FingerSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FingerSet{}, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse finger %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return NewFingerSet(vals...), nil
}

// Empty reports whether no finger is active.
func (f FingerSet) Empty() bool { return len(f) == 0 }

// Contains reports whether finger is in the set.
func (f FingerSet) Contains(finger int) bool {
	for _, v := range f {
		if v == finger {
			return true
		}
	}
	return false
}

// Equal compares membership, ignoring order.
func (f FingerSet) Equal(other FingerSet) bool {
	a, b := NewFingerSet(f...), NewFingerSet(other...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Union returns the members of either set.
func (f FingerSet) Union(other FingerSet) FingerSet {
	all := make([]int, 0, len(f)+len(other))
	all = append(all, f...)
	all = append(all, other...)
	return NewFingerSet(all...)
}

// Intersect returns the members of both sets.
func (f FingerSet) Intersect(other FingerSet) FingerSet {
	var both []int
	for _, v := range f {
		if other.Contains(v) {
			both = append(both, v)
		}
	}
	return NewFingerSet(both...)
}

// Clone returns an independent copy.
func (f FingerSet) Clone() FingerSet {
	if f == nil {
		return nil
	}
	out := make(FingerSet, len(f))
	copy(out, f)
	return out
}

// String renders the set as a comma-joined list, "" when empty.
func (f FingerSet) String() string {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// #endregion finger-set

// #region note
// Note is one segmented gesture: a finger set held over a trajectory.
// Phrase is 0 until the note's phrase is sealed.
type Note struct {
	ID         string    `json:"id"`
	Fingers    FingerSet `json:"fingers"`
	Points     []Point   `json:"data_points"`
	Duration   float64   `json:"duration"`
	PauseAfter float64   `json:"pause_after"`
	Phrase     int       `json:"phrase,omitempty"`
	Source     Source    `json:"source"`
}

// #endregion note

// #region sample
// Sample is one capture tick from the sample source. T is seconds since the
// session started and must be monotonically increasing.
type Sample struct {
	Fingers  FingerSet `json:"fingers"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Z        float64   `json:"z"`
	Angle    float64   `json:"angle"`
	Velocity float64   `json:"velocity"`
	T        float64   `json:"t"`
}

// Active reports whether any finger is pinched.
func (s Sample) Active() bool { return !s.Fingers.Empty() }

// PointAt converts the sample to a point relative to a note start time.
func (s Sample) PointAt(start float64) Point {
	return Point{X: s.X, Y: s.Y, Z: s.Z, Angle: s.Angle, Velocity: s.Velocity, Time: s.T - start}
}

// #endregion sample
