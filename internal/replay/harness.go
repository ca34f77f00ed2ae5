package replay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/agent"
	"github.com/danielpatrickdp/gesture-agent/internal/gate"
	"github.com/danielpatrickdp/gesture-agent/internal/logging"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
)

// #region types

// ReplayConfig bundles the session config, the mutation gate and the seed
// for a replay run.
type ReplayConfig struct {
	Session session.Config
	Gate    gate.GateConfig
	Seed    uint64
}

// DefaultReplayConfig returns defaults for every stage with seed 1.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Session: session.DefaultConfig(),
		Gate:    gate.DefaultGateConfig(),
		Seed:    1,
	}
}

// ReplayResult captures the outcome of one phrase end.
type ReplayResult struct {
	Phrase    int
	Action    string // logging.Decision* value
	Reason    string
	Cohesion  float64
	Hotness   float64
	Generated int
	Played    int
	Emissions int
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSamples int
	PhraseEnds   int
	Generated    int
	Starved      int
	Failed       int
	HumanNotes   int
	AINotes      int
	Emissions    int
}

// #endregion types

// #region replay

// Replay feeds samples through a synchronous in-memory session with a seeded
// agent and instant playback, and returns one result per phrase end.
func Replay(samples []note.Sample, config ReplayConfig, logger *zap.Logger) ([]ReplayResult, ReplaySummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := &playback.MemorySink{}
	var results []ReplayResult

	sess, err := session.New(config.Session, sink,
		session.WithSynchronous(),
		session.WithLogger(logger),
		session.WithAgentOptions(agent.WithSeed(config.Seed), agent.WithGateConfig(config.Gate)),
		session.WithPlayerOptions(playback.WithSleeper(playback.NoSleep)),
		session.WithCycleHook(func(c session.Cycle) {
			r := ReplayResult{
				Phrase:    c.Phrase,
				Action:    c.Decision,
				Cohesion:  c.Cohesion,
				Hotness:   c.Hotness,
				Generated: c.Generated,
				Played:    c.Played,
				Emissions: c.Emissions,
			}
			if c.Err != nil {
				r.Reason = c.Err.Error()
			}
			results = append(results, r)
		}),
	)
	if err != nil {
		return nil, ReplaySummary{}, fmt.Errorf("replay: %w", err)
	}
	defer sess.Close(context.Background())

	ctx := context.Background()
	var last float64
	for i, s := range samples {
		if err := sess.Feed(ctx, s); err != nil {
			return results, Summarize(results, sess.Status()), fmt.Errorf("replay sample %d: %w", i, err)
		}
		last = s.T
	}
	if _, err := sess.Finalize(last); err != nil {
		return results, Summarize(results, sess.Status()), fmt.Errorf("replay: %w", err)
	}

	summary := Summarize(results, sess.Status())
	summary.Emissions = sink.Count("")
	return results, summary, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, status session.Status) ReplaySummary {
	s := ReplaySummary{
		TotalSamples: int(status.Samples),
		PhraseEnds:   len(results),
		HumanNotes:   status.HumanNotes,
		AINotes:      status.AINotes,
	}
	for _, r := range results {
		switch r.Action {
		case logging.DecisionGenerated:
			s.Generated++
		case logging.DecisionStarved:
			s.Starved++
		case logging.DecisionFailed:
			s.Failed++
		}
	}
	return s
}

// #endregion replay

// #region compare

// Mismatch is one phrase whose replayed decision differs from the expected.
type Mismatch struct {
	Phrase   int
	Expected string
	Replayed string
}

// Compare pairs expected results with replayed ones by phrase. A phrase
// expected but never replayed is reported with Replayed "".
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	byPhrase := make(map[int]string, len(results))
	for _, r := range results {
		byPhrase[r.Phrase] = r.Action
	}
	var out []Mismatch
	for _, e := range expected {
		got := byPhrase[e.Phrase]
		if got != e.Decision {
			out = append(out, Mismatch{Phrase: e.Phrase, Expected: e.Decision, Replayed: got})
		}
	}
	return out
}

// #endregion compare
