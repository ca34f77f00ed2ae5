package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Seed            uint64                  `json:"seed"`
	Config          FixtureConfig           `json:"config"`
	Samples         []note.Sample           `json:"samples"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureExpectedResult captures the expected decision per phrase end.
type FixtureExpectedResult struct {
	Phrase   int    `json:"phrase"`
	Decision string `json:"decision"`
}

// FixtureConfig overrides session defaults. Zero values keep the default.
type FixtureConfig struct {
	Hotness         float64 `json:"hotness"`
	PhraseThreshold float64 `json:"phrase_end_threshold"`
	MinNoteDuration float64 `json:"min_note_duration"`
	TargetCohesion  float64 `json:"target_cohesion"`
	Crossovers      int     `json:"crossovers"`
	StepRange       float64 `json:"step_range"`
	MaxPause        float64 `json:"max_pause"`
	MinOdds         float64 `json:"min_odds"`
	OddsRange       float64 `json:"odds_range"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToReplayConfig applies the fixture overrides to the default session config.
func (f *Fixture) ToReplayConfig() ReplayConfig {
	fc := f.Config
	cfg := DefaultReplayConfig()
	cfg.Seed = f.Seed
	cfg.Session.Hotness = fc.Hotness
	if fc.PhraseThreshold > 0 {
		cfg.Session.Segment.PhraseEndThreshold = fc.PhraseThreshold
	}
	if fc.MinNoteDuration > 0 {
		cfg.Session.Segment.MinNoteDuration = fc.MinNoteDuration
	}
	if fc.TargetCohesion > 0 {
		cfg.Session.Cohesion.TargetCohesion = fc.TargetCohesion
	}
	if fc.Crossovers > 0 {
		cfg.Session.Agent.Crossovers = fc.Crossovers
	}
	if fc.StepRange > 0 {
		cfg.Session.Agent.StepRange = fc.StepRange
	}
	if fc.MaxPause > 0 {
		cfg.Session.Agent.MaxPause = fc.MaxPause
	}
	if fc.MinOdds > 0 {
		cfg.Gate.MinOdds = fc.MinOdds
	}
	if fc.OddsRange > 0 {
		cfg.Gate.OddsRange = fc.OddsRange
	}
	return cfg
}

// #endregion fixture-loader

// #region samples-from-notes

// SamplesFromNotes rebuilds a capture stream from recorded notes: each point
// becomes an active sample and each pause becomes silent ticks every
// interval. The last note of a phrase is followed by enough silence to cross
// threshold, so replaying the stream ends the same phrases.
func SamplesFromNotes(notes []note.Note, interval, threshold float64) []note.Sample {
	var out []note.Sample
	var cursor float64
	for i, n := range notes {
		if len(n.Points) == 0 {
			continue
		}
		for _, p := range n.Points {
			out = append(out, note.Sample{
				Fingers:  n.Fingers.Clone(),
				X:        p.X,
				Y:        p.Y,
				Z:        p.Z,
				Angle:    p.Angle,
				Velocity: p.Velocity,
				T:        cursor + p.Time,
			})
		}
		cursor += n.LastTime()

		silence := max(n.PauseAfter, interval)
		if i == len(notes)-1 || notes[i+1].Phrase != n.Phrase {
			silence = max(silence, threshold) + 2*interval
		}
		end := cursor + silence
		t := cursor
		for t+interval <= end+1e-9 {
			t += interval
			out = append(out, note.Sample{T: t})
		}
		cursor = t + interval
	}
	return out
}

// #endregion samples-from-notes
