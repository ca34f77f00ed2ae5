package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/replay"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
	_ "github.com/danielpatrickdp/gesture-agent/internal/store/duckdb"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to gesture_agent.db")
	driver := flag.String("db-driver", store.DriverSQLite, "sqlite or duckdb")
	sessionID := flag.String("session", "", "session id (default: latest)")
	src := flag.String("source", "", "notes mode: human, ai or empty for both")
	fixture := flag.Bool("fixture", false, "write a replay fixture built from the human notes and phrase log")
	outPath := flag.String("out", "", "output path (default: stdout)")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: note-export --db path/to/db [--session id] [--source human|ai] [--fixture] [--out file.json]")
		os.Exit(2)
	}
	if *src != "" && !note.Source(*src).Valid() {
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *src)
		os.Exit(2)
	}

	if err := run(*driver, *dbPath, *sessionID, note.Source(*src), *fixture, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// export is the notes-mode document: one session and its notes, shaped for
// external plotting.
type export struct {
	Session store.Session `json:"session"`
	Notes   []note.Note   `json:"notes"`
}

func run(driver, dbPath, sessionID string, src note.Source, fixture bool, outPath string) error {
	st, err := store.NewStore(driver, dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	sess, err := findSession(st, sessionID)
	if err != nil {
		return err
	}

	var doc any
	if fixture {
		f, err := buildFixture(st, sess)
		if err != nil {
			return err
		}
		doc = f
	} else {
		notes, err := st.ListNotes(sess.ID, src, 0)
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}
		doc = export{Session: sess, Notes: notes}
	}
	return write(doc, outPath)
}

func findSession(st *store.Store, id string) (store.Session, error) {
	if id == "" {
		return st.LatestSession()
	}
	return st.GetSession(id)
}

// #endregion extract

// #region fixture

func buildFixture(st *store.Store, sess store.Session) (*replay.Fixture, error) {
	notes, err := st.ListNotes(sess.ID, note.Human, 0)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("session %s has no human notes", sess.ID)
	}
	rows, err := st.ListPhraseLog(sess.ID, 1000)
	if err != nil {
		return nil, fmt.Errorf("list phrase log: %w", err)
	}

	cfg := replay.DefaultReplayConfig()
	f := &replay.Fixture{
		Description: fmt.Sprintf("Session export %s: %d human notes, %d phrase ends", sess.ID, len(notes), len(rows)),
		Seed:        cfg.Seed,
		Samples:     replay.SamplesFromNotes(notes, cfg.Session.Agent.SampleInterval, cfg.Session.Segment.PhraseEndThreshold),
	}
	seen := make(map[int]bool)
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if seen[r.Phrase] {
			continue
		}
		seen[r.Phrase] = true
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{Phrase: r.Phrase, Decision: r.Decision})
	}
	return f, nil
}

// #endregion fixture

// #region output

func write(doc any, outPath string) error {
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
	}
	return nil
}

// #endregion output
