package agent

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/gate"
)

// #region agent

// Agent breeds new notes from recorded ones. Hotness may be changed from any
// goroutine; generation calls are serialized on the random source.
type Agent struct {
	config     Config
	gateConfig gate.GateConfig
	logger     *zap.Logger

	hotness atomic.Uint64 // float64 bits

	mu   sync.Mutex
	rng  *rand.Rand
	gate *gate.Gate
}

// Option configures an Agent.
type Option func(*Agent)

// WithRand sets the random source. Tests pass a seeded one.
func WithRand(r *rand.Rand) Option {
	return func(a *Agent) { a.rng = r }
}

// WithSeed seeds a PCG source.
func WithSeed(seed uint64) Option {
	return func(a *Agent) { a.rng = rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)) }
}

// WithGateConfig overrides the mutation probability curve.
func WithGateConfig(c gate.GateConfig) Option {
	return func(a *Agent) { a.gateConfig = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an agent at the given starting hotness.
func New(config Config, hotness float64, opts ...Option) *Agent {
	a := &Agent{
		config:     config,
		gateConfig: gate.DefaultGateConfig(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	a.gate = gate.NewGate(a.gateConfig, a.rng)
	a.SetHotness(hotness)
	return a
}

// SetHotness stores h clamped to [0,1].
func (a *Agent) SetHotness(h float64) {
	a.hotness.Store(math.Float64bits(clamp(h)))
}

// Hotness returns the current hotness.
func (a *Agent) Hotness() float64 {
	return math.Float64frombits(a.hotness.Load())
}

// Config returns the engine configuration.
func (a *Agent) Config() Config { return a.config }

// MutationProbability is the gate's firing probability at the current hotness.
func (a *Agent) MutationProbability() float64 {
	return a.gate.Probability(a.Hotness())
}

// #endregion agent

// #region interpolation

// blend draws a blend factor: below hotness it is uniform in [0,1], otherwise
// exactly 0 or 1 so one parent is copied verbatim.
func (a *Agent) blend(h float64) float64 {
	if a.rng.Float64() > h {
		if a.rng.Float64() < 0.5 {
			return 0
		}
		return 1
	}
	return a.rng.Float64()
}

func (a *Agent) interpolate(h, v1, v2 float64) float64 {
	t := a.blend(h)
	return v1*(1-t) + v2*t
}

// interpolateVector shares one blend factor across all components.
func (a *Agent) interpolateVector(h float64, v1, v2 []float64) []float64 {
	t := a.blend(h)
	out := make([]float64, len(v1))
	other := make([]float64, len(v2))
	vecmath.ScaleBlock(out, v1, 1-t)
	vecmath.ScaleBlock(other, v2, t)
	vecmath.AddBlockInPlace(out, other)
	return out
}

// #endregion interpolation
