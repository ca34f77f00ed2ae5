package gate

import (
	"math/rand/v2"
)

// #region gate
// Gate decides, per draw, whether the engine mutates or inherits. It is not
// safe for concurrent use; callers serialize access to the shared source.
type Gate struct {
	config GateConfig
	rng    *rand.Rand
}

// NewGate creates a gate drawing from rng. A nil rng gets a randomly seeded
// source.
func NewGate(config GateConfig, rng *rand.Rand) *Gate {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Gate{config: config, rng: rng}
}

// Probability returns the mutation probability at hotness h (clamped to [0,1]).
func (g *Gate) Probability(h float64) float64 {
	h = clamp(h)
	denom := g.config.MinOdds + g.config.OddsRange*(1-h)
	if denom <= 1 {
		return 1
	}
	return 1 / denom
}

// Evaluate draws once and reports the decision.
func (g *Gate) Evaluate(h float64) GateDecision {
	p := g.Probability(h)
	draw := g.rng.Float64()
	action := ActionInherit
	if draw < p {
		action = ActionMutate
	}
	return GateDecision{
		Action:      action,
		Hotness:     clamp(h),
		Probability: p,
		Draw:        draw,
	}
}

// Fires draws once and reports whether mutation was chosen.
func (g *Gate) Fires(h float64) bool {
	return g.Evaluate(h).Fired()
}

// #endregion gate

// #region helpers
// clamp restricts v to [0, 1].
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
