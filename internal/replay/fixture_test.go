package replay

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

func TestFixtureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	f := &Fixture{
		Description: "two taps",
		Seed:        42,
		Config:      FixtureConfig{Hotness: 0.3, Crossovers: 2, MinOdds: 5},
		Samples: []note.Sample{
			{Fingers: note.NewFingerSet(1), X: 0.5, T: 0},
			{T: 0.02},
		},
		ExpectedResults: []FixtureExpectedResult{{Phrase: 1, Decision: "generated"}},
	}
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if got.Description != f.Description || got.Seed != 42 || len(got.Samples) != 2 {
		t.Errorf("unexpected fixture %+v", got)
	}
	if !got.Samples[0].Fingers.Equal(note.FingerSet{1}) {
		t.Errorf("fingers lost: %v", got.Samples[0].Fingers)
	}

	cfg := got.ToReplayConfig()
	if cfg.Seed != 42 || cfg.Session.Hotness != 0.3 {
		t.Errorf("unexpected seed/hotness %+v", cfg)
	}
	if cfg.Session.Agent.Crossovers != 2 || cfg.Gate.MinOdds != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Session.Agent.StepRange != DefaultReplayConfig().Session.Agent.StepRange {
		t.Error("zero override should keep the default step range")
	}
}

func TestLoadFixtureMissing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSamplesFromNotes(t *testing.T) {
	notes := []note.Note{
		tapNote(1, 1, 0.4),
		tapNote(1, 1, 3.0),
		tapNote(2, 2, 3.0),
	}
	samples := SamplesFromNotes(notes, 0.02, 3)

	var active, silentRuns int
	prevActive := false
	for i, s := range samples {
		if i > 0 && s.T <= samples[i-1].T {
			t.Fatalf("sample %d not increasing: %f after %f", i, s.T, samples[i-1].T)
		}
		if s.Active() {
			active++
		} else if prevActive {
			silentRuns++
		}
		prevActive = s.Active()
	}
	if active != 30 {
		t.Errorf("expected 30 active samples, got %d", active)
	}
	if silentRuns != 3 {
		t.Errorf("expected 3 silences, got %d", silentRuns)
	}
	if last := samples[len(samples)-1].T; last < 2*3 {
		t.Errorf("stream too short for two phrase ends: %f", last)
	}
}

// tapNote is a ten-point note drifting along x.
func tapNote(finger, phrase int, pause float64) note.Note {
	pts := make([]note.Point, 10)
	for i := range pts {
		pts[i] = note.Point{X: 0.3 + float64(i)*0.01, Y: 0.5, Z: 0.5, Angle: 0.2, Velocity: 0.4, Time: float64(i) * 0.02}
	}
	return note.Note{
		ID:         note.NewID(),
		Fingers:    note.NewFingerSet(finger),
		Points:     pts,
		Duration:   0.18,
		PauseAfter: pause,
		Phrase:     phrase,
		Source:     note.Human,
	}
}
