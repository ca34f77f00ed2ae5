package playback

import (
	"errors"
	"time"
)

// #region addresses
const (
	AddrFingers  = "/fingers"
	AddrX        = "/x"
	AddrY        = "/y"
	AddrZ        = "/z"
	AddrAngle    = "/angle"
	AddrVelocity = "/velocity"
)

// ParamAddresses lists the per-point addresses in emission order.
var ParamAddresses = [5]string{AddrX, AddrY, AddrZ, AddrAngle, AddrVelocity}

// #endregion addresses

// #region sink

// Sink accepts one addressed value. Fingers are sent as a comma-joined
// string, parameters as float64.
type Sink interface {
	Send(address string, value any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(address string, value any) error

func (f SinkFunc) Send(address string, value any) error { return f(address, value) }

// #endregion sink

// #region config

// Config holds playback timing.
type Config struct {
	Interval time.Duration // sleep between consecutive points
}

// DefaultConfig returns the 20ms point interval.
func DefaultConfig() Config {
	return Config{Interval: 20 * time.Millisecond}
}

// #endregion config

// #region timing

// Timing describes one played note.
type Timing struct {
	Points       int
	Emissions    int
	NoteDuration time.Duration // first point to last point
	PauseAfter   time.Duration
	Total        time.Duration
}

// PhraseTiming describes one played phrase, end-of-phrase note included.
type PhraseTiming struct {
	Played    int
	Failed    int
	Emissions int
	Total     time.Duration
}

// #endregion timing

// #region errors
var (
	ErrNoPoints    = errors.New("note has no data points")
	ErrEmptyPhrase = errors.New("no notes to play")
	ErrNilSink     = errors.New("nil sink")
)

// #endregion errors
