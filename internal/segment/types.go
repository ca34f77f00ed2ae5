package segment

import "github.com/danielpatrickdp/gesture-agent/internal/note"

// #region config

// Config holds the recorder's timing thresholds, all in seconds.
type Config struct {
	MinRecordInterval  float64 // minimum gap between stored points
	MinNoteDuration    float64 // shorter notes are discarded as spurious pinches
	PhraseEndThreshold float64 // silence that closes a phrase
	EndOfPhrasePause   float64 // pause_after stamped on a phrase's last note
}

// DefaultConfig returns the live capture defaults.
func DefaultConfig() Config {
	return Config{
		MinRecordInterval:  0.0002,
		MinNoteDuration:    0.1,
		PhraseEndThreshold: 3.0,
		EndOfPhrasePause:   3.0,
	}
}

// #endregion config

// #region phrase-end

// PhraseEnd reports one phrase closure. Tagged is the number of notes newly
// assigned to Phrase; when it is 0 the phrase counter did not advance.
type PhraseEnd struct {
	Phrase   int
	Cohesion float64
	Tagged   int
	At       float64     // session time of the closure
	Notes    []note.Note // copies of the newly tagged notes
}

// Empty reports whether the closure tagged nothing.
func (p PhraseEnd) Empty() bool { return p.Tagged == 0 }

// #endregion phrase-end

// #region record

// record is a kept note plus the absolute session times needed for pause
// back-filling.
type record struct {
	note  note.Note
	start float64
	end   float64
}

// #endregion record
