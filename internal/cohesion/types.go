package cohesion

// #region config

// Config holds the term weights for note similarity and the cohesion→hotness
// mapping applied at phrase end.
type Config struct {
	FingerWeight    float64 // Jaccard overlap of finger sets
	PathWeight      float64 // min/max path length ratio
	DirectionWeight float64 // cosine of mean step vectors, rescaled to [0,1]

	TargetCohesion float64 // cohesion at which hotness reaches 0
	HotnessGain    float64
}

// DefaultConfig returns the weights used by the live system.
func DefaultConfig() Config {
	return Config{
		FingerWeight:    0.3,
		PathWeight:      0.3,
		DirectionWeight: 0.4,
		TargetCohesion:  0.8,
		HotnessGain:     2.0,
	}
}

// #endregion config

// #region breakdown

// Breakdown is the per-term decomposition of one similarity score.
type Breakdown struct {
	Fingers   float64 `json:"fingers"`
	Path      float64 `json:"path"`
	Direction float64 `json:"direction"`
	Total     float64 `json:"total"`
}

// #endregion breakdown
