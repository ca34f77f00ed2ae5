package segment

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/cohesion"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region recorder

// Recorder segments a stream of samples into notes and phrases. It is driven
// by a single capture loop and is not safe for concurrent use.
type Recorder struct {
	config Config
	scorer *cohesion.Scorer
	logger *zap.Logger

	records    []record
	open       *record
	lastRecord float64

	phrase int

	pausing    bool
	pauseStart float64
	fired      bool
	suspended  bool

	noteSinceEnd bool // a note started after the last phrase closure

	prevFingers note.FingerSet
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithScorer sets the scorer used for phrase cohesion.
func WithScorer(s *cohesion.Scorer) Option {
	return func(r *Recorder) { r.scorer = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder positioned at phrase 1.
func NewRecorder(config Config, opts ...Option) *Recorder {
	r := &Recorder{
		config: config,
		logger: zap.NewNop(),
		phrase: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scorer == nil {
		r.scorer = cohesion.NewScorer(cohesion.DefaultConfig())
	}
	return r
}

// #endregion recorder

// #region feed

// Feed dispatches one capture tick: a changed non-empty finger set starts a
// note, an unchanged one extends it, and an empty one counts as silence.
func (r *Recorder) Feed(s note.Sample) (PhraseEnd, bool) {
	fingers := note.NewFingerSet(s.Fingers...)
	defer func() { r.prevFingers = fingers }()

	if fingers.Empty() {
		return r.Pause(s.T)
	}
	if !fingers.Equal(r.prevFingers) {
		r.StartNote(s)
	} else {
		r.RecordPoint(s)
	}
	return PhraseEnd{}, false
}

// #endregion feed

// #region notes

// StartNote closes any open note and opens a new one at s.
func (r *Recorder) StartNote(s note.Sample) {
	if r.open != nil {
		r.closeOpen()
	}
	if n := len(r.records); n > 0 {
		last := &r.records[n-1]
		if last.note.PauseAfter == 0 {
			last.note.PauseAfter = max(0, s.T-last.end)
		}
	}

	r.pausing = false
	r.fired = false
	r.suspended = false
	r.noteSinceEnd = true

	r.open = &record{
		note: note.Note{
			ID:      note.NewID(),
			Fingers: note.NewFingerSet(s.Fingers...),
			Points:  []note.Point{sanitize(s).PointAt(s.T)},
			Source:  note.Human,
		},
		start: s.T,
		end:   s.T,
	}
	r.lastRecord = s.T
	r.logger.Debug("note started",
		zap.String("fingers", r.open.note.Fingers.String()),
		zap.Float64("t", s.T),
	)
}

// RecordPoint appends s to the open note when at least MinRecordInterval has
// passed since the last stored point. Without an open note it does nothing.
func (r *Recorder) RecordPoint(s note.Sample) {
	if r.open == nil {
		return
	}
	if s.T-r.lastRecord < r.config.MinRecordInterval {
		return
	}
	r.open.note.Points = append(r.open.note.Points, sanitize(s).PointAt(r.open.start))
	r.open.end = s.T
	r.lastRecord = s.T
}

// closeOpen seals the open note, keeping it only if it lasted long enough.
func (r *Recorder) closeOpen() {
	rec := r.open
	r.open = nil
	rec.note.Duration = rec.end - rec.start
	if rec.note.Duration < r.config.MinNoteDuration {
		r.logger.Debug("note discarded",
			zap.Float64("duration", rec.note.Duration),
			zap.Int("points", len(rec.note.Points)),
		)
		return
	}
	r.records = append(r.records, *rec)
	r.logger.Debug("note saved",
		zap.String("id", rec.note.ID),
		zap.String("fingers", rec.note.Fingers.String()),
		zap.Float64("duration", rec.note.Duration),
		zap.Int("points", len(rec.note.Points)),
	)
}

// #endregion notes

// #region pause

// Pause handles one silent tick at session time t. The first silent tick
// starts the pause timer; once the silence reaches PhraseEndThreshold the
// phrase is closed exactly once for this episode.
func (r *Recorder) Pause(t float64) (PhraseEnd, bool) {
	if r.open != nil {
		r.closeOpen()
	}
	if r.suspended || r.fired {
		return PhraseEnd{}, false
	}
	if !r.pausing {
		r.pausing = true
		r.pauseStart = t
		r.logger.Debug("pause started", zap.Float64("t", t), zap.Int("notes", len(r.records)))
		return PhraseEnd{}, false
	}
	if t-r.pauseStart < r.config.PhraseEndThreshold {
		return PhraseEnd{}, false
	}
	r.fired = true
	return r.EndPhrase(t), true
}

// Resume clears the pause timer and ignores silence until the next note
// starts. Called after agent playback so its silence is not taken for a
// human pause. It does nothing once a note has started since the last
// phrase closure, so the human's new phrase still closes on silence.
func (r *Recorder) Resume() {
	if r.noteSinceEnd {
		return
	}
	r.pausing = false
	r.fired = false
	r.suspended = true
}

// EndPhrase tags every untagged note with the current phrase, stamps the last
// note with EndOfPhrasePause and scores the newly tagged notes.
func (r *Recorder) EndPhrase(t float64) PhraseEnd {
	ended := r.phrase
	r.noteSinceEnd = false
	var tagged []note.Note
	for i := range r.records {
		if r.records[i].note.Phrase == 0 {
			r.records[i].note.Phrase = ended
			tagged = append(tagged, r.records[i].note)
		}
	}
	if len(tagged) > 0 {
		last := &r.records[len(r.records)-1]
		last.note.PauseAfter = r.config.EndOfPhrasePause
		tagged[len(tagged)-1].PauseAfter = r.config.EndOfPhrasePause
		r.phrase++
	}

	pe := PhraseEnd{
		Phrase:   ended,
		Cohesion: r.scorer.Cohesion(tagged),
		Tagged:   len(tagged),
		At:       t,
		Notes:    note.CloneAll(tagged),
	}
	r.logger.Info("phrase ended",
		zap.Int("phrase", pe.Phrase),
		zap.Int("tagged", pe.Tagged),
		zap.Float64("cohesion", pe.Cohesion),
		zap.Float64("t", t),
	)
	return pe
}

// #endregion pause

// #region finalize

// Finalize closes the open note, back-fills every unset pause from the gap to
// the following note and returns the recorded notes.
func (r *Recorder) Finalize(t float64) []note.Note {
	if r.open != nil {
		r.closeOpen()
	}
	for i := 0; i+1 < len(r.records); i++ {
		if r.records[i].note.PauseAfter == 0 {
			r.records[i].note.PauseAfter = max(0, r.records[i+1].start-r.records[i].end)
		}
	}
	for i := range r.records {
		if r.records[i].note.Source == "" {
			r.records[i].note.Source = note.Human
		}
	}
	r.logger.Info("recorder finalized", zap.Float64("t", t), zap.Int("notes", len(r.records)))
	return r.Notes()
}

// #endregion finalize

// #region accessors

// Notes returns a deep copy of the kept notes.
func (r *Recorder) Notes() []note.Note {
	out := make([]note.Note, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.note.Clone()
	}
	return out
}

// Phrase returns the number the next closed phrase will carry.
func (r *Recorder) Phrase() int { return r.phrase }

// Open reports whether a note is being recorded.
func (r *Recorder) Open() bool { return r.open != nil }

// Suspended reports whether silence detection is off until the next note.
func (r *Recorder) Suspended() bool { return r.suspended }

// PauseElapsed returns the silence so far at time t, or 0 when not pausing.
func (r *Recorder) PauseElapsed(t float64) float64 {
	if !r.pausing {
		return 0
	}
	return t - r.pauseStart
}

// Clear drops all notes and timing state. The phrase counter is kept.
func (r *Recorder) Clear() {
	r.records = nil
	r.open = nil
	r.lastRecord = 0
	r.pausing = false
	r.fired = false
	r.suspended = false
	r.noteSinceEnd = false
	r.prevFingers = nil
}

// #endregion accessors

// #region helpers

// sanitize clamps the gesture parameters to [0,1].
func sanitize(s note.Sample) note.Sample {
	s.X = clamp(s.X)
	s.Y = clamp(s.Y)
	s.Z = clamp(s.Z)
	s.Angle = clamp(s.Angle)
	s.Velocity = clamp(s.Velocity)
	return s
}

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
