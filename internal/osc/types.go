package osc

// #region config

// Config addresses the OSC receivers of the synthesizer and the visualizer.
type Config struct {
	Host       string
	Port       int
	MirrorPort int // 0 disables the mirror
}

// DefaultConfig sends to a local synth on 5006 and mirrors to 5007.
func DefaultConfig() Config {
	return Config{
		Host:       "127.0.0.1",
		Port:       5006,
		MirrorPort: 5007,
	}
}

// #endregion config
