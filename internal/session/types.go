package session

import (
	"time"

	"github.com/danielpatrickdp/gesture-agent/internal/agent"
	"github.com/danielpatrickdp/gesture-agent/internal/cohesion"
	"github.com/danielpatrickdp/gesture-agent/internal/eval"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
	"github.com/danielpatrickdp/gesture-agent/internal/segment"
)

// #region config

// Config bundles the settings of every stage a session drives.
type Config struct {
	Hotness  float64 // starting hotness
	Segment  segment.Config
	Cohesion cohesion.Config
	Agent    agent.Config
	Playback playback.Config
	Eval     eval.EvalConfig
}

// DefaultConfig returns a session at hotness 0 with every stage at defaults.
func DefaultConfig() Config {
	return Config{
		Hotness:  0,
		Segment:  segment.DefaultConfig(),
		Cohesion: cohesion.DefaultConfig(),
		Agent:    agent.DefaultConfig(),
		Playback: playback.DefaultConfig(),
		Eval:     eval.DefaultEvalConfig(),
	}
}

// #endregion config

// #region status

// Status is a point-in-time view of a session, safe to read from any
// goroutine.
type Status struct {
	SessionID           string    `json:"session_id,omitempty"`
	Phrase              int       `json:"phrase"`
	Hotness             float64   `json:"hotness"`
	MutationProbability float64   `json:"mutation_probability"`
	Busy                bool      `json:"busy"`
	Samples             int64     `json:"samples"`
	HumanNotes          int       `json:"human_notes"`
	AINotes             int       `json:"ai_notes"`
	PhrasesEnded        int       `json:"phrases_ended"`
	PhrasesPlayed       int       `json:"phrases_played"`
	PhrasesDropped      int       `json:"phrases_dropped"`
	LastCohesion        float64   `json:"last_cohesion"`
	LastPhraseAt        time.Time `json:"last_phrase_at,omitzero"`
}

// #endregion status

// #region cycle

// Cycle reports one generation/playback cycle.
type Cycle struct {
	Phrase    int
	Cohesion  float64
	Hotness   float64
	Generated int // notes that passed eval, or produced when eval failed
	Played    int
	Emissions int
	Decision  string
	Err       error
}

// #endregion cycle
