package midi

// #region config

// Config maps playback emissions onto one MIDI channel. Parameter k is sent
// as controller BaseCC+k; finger f is held as key BaseNote+f.
type Config struct {
	Port     string // output port name, matched by substring
	Channel  uint8
	BaseCC   uint8
	BaseNote uint8
	Velocity uint8
}

// DefaultConfig uses channel 1, CC 20-24 and keys 61-64.
func DefaultConfig() Config {
	return Config{
		Channel:  0,
		BaseCC:   20,
		BaseNote: 60,
		Velocity: 100,
	}
}

// #endregion config
