package logging

import "time"

// #region decisions
// Decision values recorded for each phrase end.
const (
	DecisionGenerated = "generated" // a phrase was generated and played
	DecisionDropped   = "dropped"   // the worker was busy
	DecisionStarved   = "starved"   // nothing to generate from
	DecisionFailed    = "failed"    // generation, eval or playback failed outright
)

// #endregion decisions

// #region phrase-entry
// PhraseEntry is a single row in the phrase_log table.
type PhraseEntry struct {
	ID        string
	SessionID string
	Phrase    int
	Cohesion  float64
	Hotness   float64
	Tagged    int
	Generated int
	Decision  string
	Reason    string
	CreatedAt time.Time
}

// #endregion phrase-entry
