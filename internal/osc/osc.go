package osc

import (
	"errors"
	"fmt"

	goosc "github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"
)

// ErrUnsupportedValue is returned for values that have no OSC argument type.
var ErrUnsupportedValue = errors.New("osc: unsupported value type")

// sender is the part of the go-osc client a sink uses.
type sender interface {
	Send(packet goosc.Packet) error
}

// #region sink

// Sink sends playback emissions as single-argument OSC messages over UDP.
// Floats go out as float32, finger sets as strings.
type Sink struct {
	target string
	client sender
	logger *zap.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the sink's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// NewSink returns a sink addressing host:port.
func NewSink(host string, port int, opts ...Option) *Sink {
	s := &Sink{
		target: fmt.Sprintf("%s:%d", host, port),
		client: goosc.NewClient(host, port),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSinks builds the primary sink and, when MirrorPort is set, the mirror.
func NewSinks(config Config, opts ...Option) (*Sink, *Sink) {
	primary := NewSink(config.Host, config.Port, opts...)
	if config.MirrorPort == 0 {
		return primary, nil
	}
	return primary, NewSink(config.Host, config.MirrorPort, opts...)
}

// Send implements playback.Sink.
func (s *Sink) Send(address string, value any) error {
	arg, err := argument(value)
	if err != nil {
		return fmt.Errorf("osc %s: %w", address, err)
	}
	msg := goosc.NewMessage(address)
	msg.Append(arg)
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("osc send %s to %s: %w", address, s.target, err)
	}
	s.logger.Debug("osc sent", zap.String("address", address), zap.Any("value", arg))
	return nil
}

// Target returns host:port.
func (s *Sink) Target() string { return s.target }

// #endregion sink

// #region argument

func argument(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return float32(t), nil
	case float32:
		return t, nil
	case int:
		return int32(t), nil
	case int32:
		return t, nil
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case bool:
		return t, nil
	}
	return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
}

// #endregion argument
