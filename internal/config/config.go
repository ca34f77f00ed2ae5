package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/danielpatrickdp/gesture-agent/internal/osc"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

// #region config

// Config is the controller's runtime configuration. Every flag falls back to
// an environment variable, then to the default.
type Config struct {
	Hotness            float64
	PhraseEndThreshold float64
	MinNoteDuration    float64
	RecordInterval     float64
	PlaybackInterval   time.Duration
	EndOfPhrasePause   float64
	Crossovers         int
	Seed               uint64 // 0 picks a random seed

	DBDriver string
	DBPath   string // "" disables persistence
	Label    string

	OSCHost    string
	OSCPort    int
	MirrorPort int
	MIDIOut    string // replaces the OSC mirror when set

	Input    string // "" or "-" reads stdin
	HTTPAddr string // "" disables the HTTP surface
	MCPStdio bool
	Debug    bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	sc := session.DefaultConfig()
	oc := osc.DefaultConfig()
	return Config{
		Hotness:            sc.Hotness,
		PhraseEndThreshold: sc.Segment.PhraseEndThreshold,
		MinNoteDuration:    sc.Segment.MinNoteDuration,
		RecordInterval:     sc.Segment.MinRecordInterval,
		PlaybackInterval:   sc.Playback.Interval,
		EndOfPhrasePause:   sc.Segment.EndOfPhrasePause,
		Crossovers:         sc.Agent.Crossovers,
		DBDriver:           store.DriverSQLite,
		DBPath:             "gesture_agent.db",
		OSCHost:            oc.Host,
		OSCPort:            oc.Port,
		MirrorPort:         oc.MirrorPort,
	}
}

// #endregion config

// #region load

// Load parses args with environment fallbacks read through getenv.
func Load(name string, args []string, getenv func(string) string) (Config, error) {
	d := Default()
	var errs error
	env := envReader{getenv: getenv}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c := Config{}
	fs.Float64Var(&c.Hotness, "hotness", env.float("GESTURE_HOTNESS", d.Hotness, &errs), "starting hotness in [0,1]")
	fs.Float64Var(&c.PhraseEndThreshold, "phrase-end", env.float("GESTURE_PHRASE_END", d.PhraseEndThreshold, &errs), "seconds of silence that end a phrase")
	fs.Float64Var(&c.MinNoteDuration, "min-note", env.float("GESTURE_MIN_NOTE", d.MinNoteDuration, &errs), "shortest note kept, seconds")
	fs.Float64Var(&c.RecordInterval, "record-interval", env.float("GESTURE_RECORD_INTERVAL", d.RecordInterval, &errs), "minimum seconds between recorded points")
	fs.DurationVar(&c.PlaybackInterval, "playback-interval", env.duration("GESTURE_PLAYBACK_INTERVAL", d.PlaybackInterval, &errs), "time between played points")
	fs.Float64Var(&c.EndOfPhrasePause, "phrase-pause", env.float("GESTURE_PHRASE_PAUSE", d.EndOfPhrasePause, &errs), "pause stamped on the last note of a phrase")
	fs.IntVar(&c.Crossovers, "crossovers", env.int("GESTURE_CROSSOVERS", d.Crossovers, &errs), "children per POST /api/v1/crossovers when no count is given")
	fs.Uint64Var(&c.Seed, "seed", env.uint("GESTURE_SEED", d.Seed, &errs), "random seed, 0 for random")

	fs.StringVar(&c.DBDriver, "db-driver", env.str("GESTURE_DB_DRIVER", d.DBDriver), "sqlite or duckdb")
	fs.StringVar(&c.DBPath, "db", env.str("GESTURE_DB", d.DBPath), "database path, empty to disable")
	fs.StringVar(&c.Label, "label", env.str("GESTURE_LABEL", d.Label), "session label")

	fs.StringVar(&c.OSCHost, "osc-host", env.str("OSC_HOST", d.OSCHost), "OSC receiver host")
	fs.IntVar(&c.OSCPort, "osc-port", env.int("OSC_PORT", d.OSCPort, &errs), "OSC synth port")
	fs.IntVar(&c.MirrorPort, "mirror-port", env.int("OSC_MIRROR_PORT", d.MirrorPort, &errs), "OSC mirror port, 0 to disable")
	fs.StringVar(&c.MIDIOut, "midi-out", env.str("MIDI_OUT", d.MIDIOut), "MIDI output port replacing the OSC mirror")

	fs.StringVar(&c.Input, "input", env.str("GESTURE_INPUT", d.Input), "JSON-lines sample file, - for stdin")
	fs.StringVar(&c.HTTPAddr, "http", env.str("GESTURE_HTTP", d.HTTPAddr), "HTTP control address, e.g. :8080")
	fs.BoolVar(&c.MCPStdio, "mcp-stdio", env.bool("GESTURE_MCP_STDIO", d.MCPStdio, &errs), "serve MCP tools over stdio")
	fs.BoolVar(&c.Debug, "debug", env.bool("GESTURE_DEBUG", d.Debug, &errs), "development logging")

	if errs != nil {
		return Config{}, fmt.Errorf("config env: %w", errs)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config flags: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// #endregion load

// #region validate

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs error
	if c.Hotness < 0 || c.Hotness > 1 {
		errs = multierr.Append(errs, fmt.Errorf("hotness %.3f outside [0,1]", c.Hotness))
	}
	if c.PhraseEndThreshold <= 0 {
		errs = multierr.Append(errs, errors.New("phrase-end must be positive"))
	}
	if c.MinNoteDuration < 0 || c.RecordInterval < 0 || c.EndOfPhrasePause < 0 {
		errs = multierr.Append(errs, errors.New("durations must not be negative"))
	}
	if c.PlaybackInterval <= 0 {
		errs = multierr.Append(errs, errors.New("playback-interval must be positive"))
	}
	if c.Crossovers < 1 {
		errs = multierr.Append(errs, errors.New("crossovers must be at least 1"))
	}
	if c.DBDriver != store.DriverSQLite && c.DBDriver != store.DriverDuckDB {
		errs = multierr.Append(errs, fmt.Errorf("unknown db driver %q", c.DBDriver))
	}
	if c.OSCPort <= 0 || c.OSCPort > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("osc-port %d out of range", c.OSCPort))
	}
	if c.MirrorPort < 0 || c.MirrorPort > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("mirror-port %d out of range", c.MirrorPort))
	}
	if c.MCPStdio && (c.Input == "" || c.Input == "-") {
		errs = multierr.Append(errs, errors.New("mcp-stdio needs --input, stdin is taken by MCP"))
	}
	return errs
}

// #endregion validate

// #region derive

// Session maps the flat configuration onto the session stages.
func (c Config) Session() session.Config {
	sc := session.DefaultConfig()
	sc.Hotness = c.Hotness
	sc.Segment.PhraseEndThreshold = c.PhraseEndThreshold
	sc.Segment.MinNoteDuration = c.MinNoteDuration
	sc.Segment.MinRecordInterval = c.RecordInterval
	sc.Segment.EndOfPhrasePause = c.EndOfPhrasePause
	sc.Agent.Crossovers = c.Crossovers
	sc.Playback.Interval = c.PlaybackInterval
	// generated durations are counted in played points
	sc.Agent.SampleInterval = c.PlaybackInterval.Seconds()
	return sc
}

// OSC returns the sink addresses. The OSC mirror is disabled when MIDI
// replaces it.
func (c Config) OSC() osc.Config {
	oc := osc.Config{Host: c.OSCHost, Port: c.OSCPort, MirrorPort: c.MirrorPort}
	if c.MIDIOut != "" {
		oc.MirrorPort = 0
	}
	return oc
}

// #endregion derive

// #region env

type envReader struct {
	getenv func(string) string
}

// str mirrors the controller's envOr helper.
func (e envReader) str(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e envReader) float(key string, fallback float64, errs *error) float64 {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e envReader) int(key string, fallback int, errs *error) int {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e envReader) uint(key string, fallback uint64, errs *error) uint64 {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e envReader) bool(key string, fallback bool, errs *error) bool {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e envReader) duration(key string, fallback time.Duration, errs *error) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// #endregion env
