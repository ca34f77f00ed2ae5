package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/logging"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/replay"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
	_ "github.com/danielpatrickdp/gesture-agent/internal/store/duckdb"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to gesture_agent.db (DB mode)")
	driver := flag.String("db-driver", store.DriverSQLite, "sqlite or duckdb")
	sessionID := flag.String("session", "", "session to replay in DB mode (default: latest)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	seed := flag.Uint64("seed", 1, "agent seed in DB mode")
	debug := flag.Bool("debug", false, "log every stage to stderr")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/gesture_agent.db [--session id] [--seed N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *debug)
	} else {
		exitCode = runDBMode(*driver, *dbPath, *sessionID, *seed, *debug)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

// runDBMode rebuilds the capture stream of a stored session from its human
// notes and checks that every logged phrase replays to a compatible decision.
func runDBMode(driver, dbPath, sessionID string, seed uint64, debug bool) int {
	st, err := store.NewStore(driver, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	if sessionID == "" {
		latest, err := st.LatestSession()
		if err != nil {
			fmt.Fprintf(os.Stderr, "find session: %v\n", err)
			return 2
		}
		sessionID = latest.ID
	}

	notes, err := st.ListNotes(sessionID, note.Human, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list notes: %v\n", err)
		return 2
	}
	if len(notes) == 0 {
		fmt.Fprintln(os.Stderr, "no human notes found for session")
		return 2
	}
	rows, err := st.ListPhraseLog(sessionID, 1000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list phrase log: %v\n", err)
		return 2
	}

	// rows are newest first; a phrase may be logged more than once
	expected := make([]replay.FixtureExpectedResult, 0, len(rows))
	seen := make(map[int]bool)
	for i := len(rows) - 1; i >= 0; i-- {
		if seen[rows[i].Phrase] {
			continue
		}
		seen[rows[i].Phrase] = true
		expected = append(expected, replay.FixtureExpectedResult{Phrase: rows[i].Phrase, Decision: rows[i].Decision})
	}

	config := replay.DefaultReplayConfig()
	config.Seed = seed
	samples := replay.SamplesFromNotes(notes, config.Session.Agent.SampleInterval, config.Session.Segment.PhraseEndThreshold)
	return runAndCompare(samples, config, expected, debug)
}

// #endregion db-extract

// #region output

func runFixtureMode(path string, debug bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}
	return runAndCompare(f.Samples, f.ToReplayConfig(), f.ExpectedResults, debug)
}

func runAndCompare(samples []note.Sample, config replay.ReplayConfig, expected []replay.FixtureExpectedResult, debug bool) int {
	logger := zap.NewNop()
	if debug {
		l, err := logging.NewLogger(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			return 2
		}
		logger = l
	}

	results, summary, err := replay.Replay(samples, config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results, expected, summary)
}

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult, summary replay.ReplaySummary) int {
	replayed := make(map[int]replay.ReplayResult, len(results))
	for _, r := range results {
		replayed[r.Phrase] = r
	}

	fmt.Printf("%-7s| %-10s| %-10s| %-8s| %-8s| %s\n", "Phrase", "Expected", "Replayed", "Cohesion", "Hotness", "Match")
	fmt.Printf("%-7s+%-11s+%-11s+%-9s+%-9s+%s\n", "-------", "-----------", "-----------", "---------", "---------", "------")

	matches := 0
	for _, e := range expected {
		r, ok := replayed[e.Phrase]
		got := "-"
		if ok {
			got = r.Action
		}
		match := "DIFF"
		if ok && decisionsMatch(e.Decision, r.Action) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-7d| %-10s| %-10s| %8.3f| %8.3f| %s\n", e.Phrase, e.Decision, got, r.Cohesion, r.Hotness, match)
	}

	diverge := len(expected) - matches
	fmt.Printf("\nSummary: %d expected, %d match, %d diverge\n", len(expected), matches, diverge)
	fmt.Printf("Replay: %d samples, %d phrase ends, %d generated, %d starved, %d failed, %d human notes, %d ai notes, %d emissions\n",
		summary.TotalSamples, summary.PhraseEnds, summary.Generated, summary.Starved, summary.Failed,
		summary.HumanNotes, summary.AINotes, summary.Emissions)

	if diverge > 0 {
		return 1
	}
	return 0
}

// decisionsMatch compares expected vs replayed decision. Replay never runs
// concurrently, so a live "dropped" phrase matches a replayed "generated".
func decisionsMatch(expected, replayed string) bool {
	if expected == replayed {
		return true
	}
	return expected == logging.DecisionDropped && replayed == logging.DecisionGenerated
}

// #endregion output
