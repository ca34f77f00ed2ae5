package playback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region player

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Player streams notes to a sink in real time.
type Player struct {
	config Config
	mirror Sink
	logger *zap.Logger
	sleep  Sleeper
	now    func() time.Time
}

// Option configures a Player.
type Option func(*Player)

// WithMirror duplicates every emission to s. Mirror failures are logged only.
func WithMirror(s Sink) Option {
	return func(p *Player) { p.mirror = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// WithSleeper replaces the real-time sleeper, e.g. with NoSleep for replay.
func WithSleeper(s Sleeper) Option {
	return func(p *Player) { p.sleep = s }
}

// NewPlayer creates a player.
func NewPlayer(config Config, opts ...Option) *Player {
	p := &Player{
		config: config,
		logger: zap.NewNop(),
		sleep:  Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately unless ctx is done.
func NoSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// #endregion player

// #region play-note

// PlayNote sends the finger set once, then the five parameters of every
// point with Interval between points, then waits PauseAfter. It blocks until
// the note and its pause are over.
func (p *Player) PlayNote(ctx context.Context, n note.Note, sink Sink) (Timing, error) {
	if sink == nil {
		return Timing{}, ErrNilSink
	}
	if len(n.Points) == 0 {
		return Timing{}, ErrNoPoints
	}

	var timing Timing
	start := p.now()
	if err := p.emit(sink, AddrFingers, n.Fingers.String()); err != nil {
		return timing, err
	}
	timing.Emissions++

	for i, pt := range n.Points {
		if i > 0 {
			if err := p.sleep(ctx, p.config.Interval); err != nil {
				return timing, err
			}
		}
		for k, v := range pt.Params() {
			if err := p.emit(sink, ParamAddresses[k], v); err != nil {
				return timing, fmt.Errorf("point %d: %w", i, err)
			}
			timing.Emissions++
		}
		timing.Points++
	}
	timing.NoteDuration = p.now().Sub(start)

	timing.PauseAfter = seconds(n.PauseAfter)
	if err := p.sleep(ctx, timing.PauseAfter); err != nil {
		return timing, err
	}
	timing.Total = p.now().Sub(start)
	return timing, nil
}

// emit sends to the primary sink and best-effort to the mirror.
func (p *Player) emit(sink Sink, address string, value any) error {
	if err := sink.Send(address, value); err != nil {
		return fmt.Errorf("send %s: %w", address, err)
	}
	if p.mirror != nil {
		if err := p.mirror.Send(address, value); err != nil {
			p.logger.Warn("mirror send failed", zap.String("address", address), zap.Error(err))
		}
	}
	return nil
}

// #endregion play-note

// #region play-phrase

// PlayPhrase plays notes in order, skipping notes that fail, then plays the
// end-of-phrase note. Note failures are combined into the returned error;
// cancellation stops playback immediately.
func (p *Player) PlayPhrase(ctx context.Context, notes []note.Note, sink Sink) (PhraseTiming, error) {
	if len(notes) == 0 {
		return PhraseTiming{}, ErrEmptyPhrase
	}
	if sink == nil {
		return PhraseTiming{}, ErrNilSink
	}

	var (
		pt   PhraseTiming
		errs error
	)
	start := p.now()
	for i, n := range notes {
		t, err := p.PlayNote(ctx, n, sink)
		pt.Emissions += t.Emissions
		if err != nil {
			if ctx.Err() != nil {
				pt.Total = p.now().Sub(start)
				return pt, multierr.Append(errs, ctx.Err())
			}
			pt.Failed++
			p.logger.Warn("note playback failed", zap.Int("index", i), zap.String("id", n.ID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("note %d: %w", i, err))
			continue
		}
		pt.Played++
	}

	t, err := p.PlayNote(ctx, EndOfPhraseNote(), sink)
	pt.Emissions += t.Emissions
	if err != nil {
		p.logger.Warn("end-of-phrase note failed", zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("end of phrase: %w", err))
	}
	pt.Total = p.now().Sub(start)
	p.logger.Info("phrase played",
		zap.Int("played", pt.Played),
		zap.Int("failed", pt.Failed),
		zap.Int("emissions", pt.Emissions),
		zap.Duration("total", pt.Total),
	)
	return pt, errs
}

// EndOfPhraseNote is the silent note that marks a phrase boundary for
// listeners: no fingers, one zeroed point, no pause.
func EndOfPhraseNote() note.Note {
	return note.Note{
		Fingers: note.FingerSet{},
		Points:  []note.Point{{}},
		Source:  note.AI,
	}
}

// #endregion play-phrase

// #region helpers

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// #endregion helpers
