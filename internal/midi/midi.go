package midi

import (
	"errors"
	"fmt"
	"math"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
)

var (
	ErrUnknownAddress = errors.New("midi: unknown address")
	ErrBadValue       = errors.New("midi: unexpected value type")
)

// #region sink

// Sink renders playback emissions as MIDI: the five parameters as control
// changes and the finger set as held keys.
type Sink struct {
	config Config
	send   func(gomidi.Message) error
	port   drivers.Out
	logger *zap.Logger

	mu   sync.Mutex
	held note.FingerSet
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the sink's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// NewSink sends to an opened output port.
func NewSink(config Config, out drivers.Out, opts ...Option) (*Sink, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi: open %s: %w", out, err)
	}
	s := newSink(config, send, opts...)
	s.port = out
	return s, nil
}

// Open finds the output port named by config.Port and wraps it. A driver
// must be registered by the caller.
func Open(config Config, opts ...Option) (*Sink, error) {
	out, err := gomidi.FindOutPort(config.Port)
	if err != nil {
		return nil, fmt.Errorf("midi: find port %q: %w", config.Port, err)
	}
	return NewSink(config, out, opts...)
}

func newSink(config Config, send func(gomidi.Message) error, opts ...Option) *Sink {
	s := &Sink{config: config, send: send, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements playback.Sink.
func (s *Sink) Send(address string, value any) error {
	if address == playback.AddrFingers {
		return s.sendFingers(value)
	}
	for i, a := range playback.ParamAddresses {
		if a != address {
			continue
		}
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s %T: %w", address, value, ErrBadValue)
		}
		msg := gomidi.ControlChange(s.config.Channel, s.config.BaseCC+uint8(i), ccValue(v))
		if err := s.send(msg); err != nil {
			return fmt.Errorf("midi send %s: %w", address, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", address, ErrUnknownAddress)
}

// sendFingers releases keys no longer held, then strikes new ones.
func (s *Sink) sendFingers(value any) error {
	var fingers note.FingerSet
	switch v := value.(type) {
	case string:
		fs, err := note.ParseFingerSet(v)
		if err != nil {
			return fmt.Errorf("%s: %w", playback.AddrFingers, err)
		}
		fingers = fs
	case note.FingerSet:
		fingers = note.NewFingerSet(v...)
	default:
		return fmt.Errorf("%s %T: %w", playback.AddrFingers, value, ErrBadValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.held {
		if fingers.Contains(f) {
			continue
		}
		if err := s.send(gomidi.NoteOff(s.config.Channel, s.key(f))); err != nil {
			return fmt.Errorf("midi note off %d: %w", f, err)
		}
	}
	for _, f := range fingers {
		if s.held.Contains(f) {
			continue
		}
		if err := s.send(gomidi.NoteOn(s.config.Channel, s.key(f), s.config.Velocity)); err != nil {
			return fmt.Errorf("midi note on %d: %w", f, err)
		}
	}
	s.held = fingers
	return nil
}

// Close releases held keys and closes the port if the sink opened one.
func (s *Sink) Close() error {
	err := s.sendFingers(note.FingerSet{})
	if s.port != nil {
		if cerr := s.port.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Sink) key(finger int) uint8 {
	return s.config.BaseNote + uint8(finger)
}

// #endregion sink

func ccValue(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 127))
}
