package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/agent"
	"github.com/danielpatrickdp/gesture-agent/internal/cohesion"
	"github.com/danielpatrickdp/gesture-agent/internal/eval"
	"github.com/danielpatrickdp/gesture-agent/internal/logging"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
	"github.com/danielpatrickdp/gesture-agent/internal/segment"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

// #region session

// ErrUnknownNote is returned by Breed for a parent id the session has not seen.
var ErrUnknownNote = errors.New("session: unknown note")

// Session owns one performance: the capture-side recorder plus the agent,
// player and optional store used by the background worker.
//
// Feed and Finalize must be called from a single capture goroutine. Status,
// Notes and SetHotness are safe from any goroutine.
type Session struct {
	config   Config
	recorder *segment.Recorder
	scorer   *cohesion.Scorer
	agent    *agent.Agent
	player   *playback.Player
	harness  *eval.EvalHarness
	sink     playback.Sink
	mirror   playback.Sink
	store    *store.Store
	id       string
	logger   *zap.Logger

	synchronous bool
	onCycle     func(Cycle)
	agentOpts   []agent.Option
	playerOpts  []playback.Option

	mu     sync.RWMutex
	human  []note.Note
	ai     []note.Note
	status Status

	samples atomic.Int64
	busy    atomic.Bool
	jobs    chan job
	resume  chan struct{}

	workerCtx    context.Context
	cancelWorker context.CancelFunc
	workerDone   chan struct{}
	closeOnce    sync.Once
}

type job struct {
	phrase  segment.PhraseEnd
	hotness float64
	notes   []note.Note
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists notes and phrase decisions under sessionID.
func WithStore(st *store.Store, sessionID string) Option {
	return func(s *Session) {
		s.store = st
		s.id = sessionID
	}
}

// WithMirror duplicates every playback emission to m.
func WithMirror(m playback.Sink) Option {
	return func(s *Session) { s.mirror = m }
}

// WithLogger sets the logger passed to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSynchronous runs each generation cycle inline inside Feed. Used for
// replay and tests.
func WithSynchronous() Option {
	return func(s *Session) { s.synchronous = true }
}

// WithCycleHook is called after every generation cycle.
func WithCycleHook(fn func(Cycle)) Option {
	return func(s *Session) { s.onCycle = fn }
}

// WithAgentOptions forwards options to the agent, e.g. a seeded source.
func WithAgentOptions(opts ...agent.Option) Option {
	return func(s *Session) { s.agentOpts = append(s.agentOpts, opts...) }
}

// WithPlayerOptions forwards options to the player, e.g. a no-op sleeper.
func WithPlayerOptions(opts ...playback.Option) Option {
	return func(s *Session) { s.playerOpts = append(s.playerOpts, opts...) }
}

// New wires a session around sink and starts its worker.
func New(config Config, sink playback.Sink, opts ...Option) (*Session, error) {
	if sink == nil {
		return nil, playback.ErrNilSink
	}
	s := &Session{
		config: config,
		sink:   sink,
		logger: zap.NewNop(),
		jobs:   make(chan job, 1),
		resume: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store != nil && s.id == "" {
		return nil, errors.New("session: store given without session id")
	}

	s.scorer = cohesion.NewScorer(config.Cohesion)
	s.recorder = segment.NewRecorder(config.Segment,
		segment.WithScorer(s.scorer),
		segment.WithLogger(s.logger.Named("segment")),
	)
	s.agent = agent.New(config.Agent, config.Hotness,
		append([]agent.Option{agent.WithLogger(s.logger.Named("agent"))}, s.agentOpts...)...,
	)

	evalCfg := config.Eval
	evalCfg.SampleInterval = config.Agent.SampleInterval
	evalCfg.MaxPoints = config.Agent.MaxPoints()
	s.harness = eval.NewEvalHarness(evalCfg, s.scorer)

	playerOpts := []playback.Option{playback.WithLogger(s.logger.Named("playback"))}
	if s.mirror != nil {
		playerOpts = append(playerOpts, playback.WithMirror(s.mirror))
	}
	s.player = playback.NewPlayer(config.Playback, append(playerOpts, s.playerOpts...)...)

	s.status = Status{SessionID: s.id, Phrase: s.recorder.Phrase()}

	s.workerCtx, s.cancelWorker = context.WithCancel(context.Background())
	s.workerDone = make(chan struct{})
	if s.synchronous {
		close(s.workerDone)
	} else {
		go s.worker()
	}
	return s, nil
}

// #endregion session

// #region feed

// Feed pushes one capture tick through the recorder and, on a phrase end,
// hands a generation cycle to the worker. It never blocks on playback unless
// the session is synchronous.
func (s *Session) Feed(ctx context.Context, sample note.Sample) error {
	select {
	case <-s.resume:
		s.recorder.Resume()
	default:
	}

	s.samples.Add(1)
	pe, ok := s.recorder.Feed(sample)
	if !ok {
		return nil
	}
	return s.phraseEnded(ctx, pe)
}

func (s *Session) phraseEnded(ctx context.Context, pe segment.PhraseEnd) error {
	human := s.recorder.Notes()
	s.mu.Lock()
	s.human = human
	s.status.Phrase = s.recorder.Phrase()
	s.mu.Unlock()

	if pe.Empty() {
		s.logger.Debug("empty phrase end ignored", zap.Int("phrase", pe.Phrase))
		return nil
	}

	var errs error
	if s.store != nil {
		errs = multierr.Append(errs, s.store.SaveNotes(s.id, pe.Notes))
	}

	hot := s.scorer.Hotness(pe.Cohesion)
	s.agent.SetHotness(hot)

	s.mu.Lock()
	s.status.PhrasesEnded++
	s.status.LastCohesion = pe.Cohesion
	s.status.LastPhraseAt = time.Now().UTC()
	all := make([]note.Note, 0, len(human)+len(s.ai))
	all = append(all, human...)
	all = append(all, note.CloneAll(s.ai)...)
	s.mu.Unlock()

	j := job{phrase: pe, hotness: hot, notes: all}

	if s.synchronous {
		s.busy.Store(true)
		s.run(ctx, j)
		s.busy.Store(false)
		return errs
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("phrase end dropped, agent busy", zap.Int("phrase", pe.Phrase))
		s.mu.Lock()
		s.status.PhrasesDropped++
		s.mu.Unlock()
		errs = multierr.Append(errs, s.logPhrase(pe, hot, 0, logging.DecisionDropped, "agent busy"))
		return errs
	}
	s.jobs <- j
	return errs
}

// #endregion feed

// #region worker

func (s *Session) worker() {
	defer close(s.workerDone)
	for j := range s.jobs {
		s.run(s.workerCtx, j)
		s.busy.Store(false)
	}
}

// run performs generate → eval → play → persist for one phrase end, then
// asks the capture loop to resume silence detection.
func (s *Session) run(ctx context.Context, j job) {
	cycle := Cycle{Phrase: j.phrase.Phrase, Cohesion: j.phrase.Cohesion, Hotness: j.hotness}
	defer func() {
		select {
		case s.resume <- struct{}{}:
		default:
		}
		if s.onCycle != nil {
			s.onCycle(cycle)
		}
	}()

	generated, err := s.agent.GeneratePhrase(j.notes, j.phrase.Phrase)
	cycle.Generated = len(generated)
	if len(generated) == 0 {
		cycle.Decision = logging.DecisionFailed
		if errors.Is(err, agent.ErrEmptyPhrase) || errors.Is(err, agent.ErrNoNotes) {
			cycle.Decision = logging.DecisionStarved
		}
		if err == nil {
			err = errors.New("nothing generated")
		}
		cycle.Err = err
		s.logger.Warn("generation produced nothing", zap.Int("phrase", cycle.Phrase), zap.Error(err))
		s.logError(s.logPhrase(j.phrase, j.hotness, 0, cycle.Decision, err.Error()))
		return
	}
	if err != nil {
		s.logger.Warn("generation stopped early", zap.Int("generated", len(generated)), zap.Error(err))
	}

	result := s.harness.Run(generated)
	if !result.Passed {
		cycle.Decision = logging.DecisionFailed
		cycle.Err = errors.New(result.Reason)
		s.logger.Warn("generated phrase rejected", zap.String("reason", result.Reason))
		s.logError(s.logPhrase(j.phrase, j.hotness, len(generated), cycle.Decision, result.Reason))
		return
	}
	if len(result.Rejected) > 0 {
		s.logger.Info("generated notes dropped", zap.String("reason", result.Reason))
	}
	cycle.Generated = len(result.Valid)

	pt, playErr := s.player.PlayPhrase(ctx, result.Valid, s.sink)
	cycle.Played = pt.Played
	cycle.Emissions = pt.Emissions
	cycle.Err = playErr
	if playErr != nil {
		s.logger.Warn("playback finished with errors", zap.Int("failed", pt.Failed), zap.Error(playErr))
	}

	s.mu.Lock()
	s.ai = append(s.ai, note.CloneAll(result.Valid)...)
	s.status.PhrasesPlayed++
	s.mu.Unlock()

	if s.store != nil {
		s.logError(s.store.SaveNotes(s.id, result.Valid))
	}

	cycle.Decision = logging.DecisionGenerated
	reason := fmt.Sprintf("played %d of %d notes", pt.Played, len(result.Valid))
	if playErr != nil {
		reason += ": " + playErr.Error()
	}
	s.logError(s.logPhrase(j.phrase, j.hotness, len(result.Valid), cycle.Decision, reason))
}

func (s *Session) logPhrase(pe segment.PhraseEnd, hot float64, generated int, decision, reason string) error {
	if s.store == nil {
		return nil
	}
	return logging.LogPhrase(s.store.DB(), logging.PhraseEntry{
		SessionID: s.id,
		Phrase:    pe.Phrase,
		Cohesion:  pe.Cohesion,
		Hotness:   hot,
		Tagged:    pe.Tagged,
		Generated: generated,
		Decision:  decision,
		Reason:    reason,
	})
}

func (s *Session) logError(err error) {
	if err != nil {
		s.logger.Error("persist failed", zap.Error(err))
	}
}

// #endregion worker

// #region finalize

// Finalize closes the open note and back-fills pauses, persisting the human
// notes when a store is attached.
func (s *Session) Finalize(t float64) ([]note.Note, error) {
	notes := s.recorder.Finalize(t)
	s.mu.Lock()
	s.human = notes
	s.mu.Unlock()
	if s.store != nil {
		if err := s.store.SaveNotes(s.id, notes); err != nil {
			return notes, fmt.Errorf("finalize: %w", err)
		}
	}
	return notes, nil
}

// Wait blocks until no cycle is in flight or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for s.busy.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Close stops accepting work, waits for an in-flight cycle (cancelling its
// playback if ctx ends first) and closes the sinks and store.
func (s *Session) Close(ctx context.Context) error {
	var errs error
	s.closeOnce.Do(func() {
		if !s.synchronous {
			close(s.jobs)
		}
		select {
		case <-s.workerDone:
		case <-ctx.Done():
			s.cancelWorker()
			<-s.workerDone
			errs = multierr.Append(errs, ctx.Err())
		}
		s.cancelWorker()

		for _, c := range []any{s.sink, s.mirror} {
			if closer, ok := c.(io.Closer); ok {
				errs = multierr.Append(errs, closer.Close())
			}
		}
		if s.store != nil {
			errs = multierr.Append(errs, s.store.Close())
		}
	})
	return errs
}

// #endregion finalize

// #region accessors

// ID returns the persisted session id, "" without a store.
func (s *Session) ID() string { return s.id }

// SetHotness overrides the agent's hotness until the next phrase end.
func (s *Session) SetHotness(h float64) {
	s.agent.SetHotness(h)
}

// Hotness returns the agent's current hotness.
func (s *Session) Hotness() float64 { return s.agent.Hotness() }

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	st := s.status
	st.HumanNotes = len(s.human)
	st.AINotes = len(s.ai)
	s.mu.RUnlock()
	st.Hotness = s.agent.Hotness()
	st.MutationProbability = s.agent.MutationProbability()
	st.Busy = s.busy.Load()
	st.Samples = s.samples.Load()
	return st
}

// Breed crosses two known notes count times without playing or storing the
// children. A count of 0 or less uses the agent's configured crossover count.
func (s *Session) Breed(parentA, parentB string, count int) ([]note.Note, error) {
	s.mu.RLock()
	a, okA := findNote(s.human, s.ai, parentA)
	b, okB := findNote(s.human, s.ai, parentB)
	s.mu.RUnlock()
	if !okA {
		return nil, fmt.Errorf("breed %q: %w", parentA, ErrUnknownNote)
	}
	if !okB {
		return nil, fmt.Errorf("breed %q: %w", parentB, ErrUnknownNote)
	}
	children, err := s.agent.GenerateCrossovers(a, b, count)
	if err != nil {
		return children, fmt.Errorf("breed: %w", err)
	}
	s.logger.Debug("notes bred",
		zap.String("parent_a", parentA),
		zap.String("parent_b", parentB),
		zap.Int("children", len(children)),
	)
	return children, nil
}

func findNote(human, ai []note.Note, id string) (note.Note, bool) {
	for _, set := range [][]note.Note{human, ai} {
		for _, n := range set {
			if n.ID == id {
				return n.Clone(), true
			}
		}
	}
	return note.Note{}, false
}

// Notes returns the notes known to the session, human notes as of the last
// phrase end. An empty source returns both.
func (s *Session) Notes(source note.Source) []note.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch source {
	case note.Human:
		return note.CloneAll(s.human)
	case note.AI:
		return note.CloneAll(s.ai)
	}
	out := make([]note.Note, 0, len(s.human)+len(s.ai))
	out = append(out, note.CloneAll(s.human)...)
	return append(out, note.CloneAll(s.ai)...)
}

// #endregion accessors
