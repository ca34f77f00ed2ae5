package gate

// #region action
// Action is the outcome of one gate draw.
type Action string

const (
	ActionMutate  Action = "mutate"
	ActionInherit Action = "inherit"
)

// #endregion action

// #region gate-config
// GateConfig shapes the mutation probability curve
// 1 / (MinOdds + OddsRange*(1-hotness)).
type GateConfig struct {
	MinOdds   float64 // odds denominator at hotness 1
	OddsRange float64 // added to the denominator as hotness falls to 0
}

// DefaultGateConfig returns roughly 1/1000 at hotness 0 and 1/15 at hotness 1.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinOdds:   15,
		OddsRange: 985,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of one draw.
type GateDecision struct {
	Action      Action
	Hotness     float64
	Probability float64
	Draw        float64
}

// Fired reports whether the draw chose mutation.
func (d GateDecision) Fired() bool { return d.Action == ActionMutate }

// #endregion gate-decision
