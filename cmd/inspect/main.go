package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
	_ "github.com/danielpatrickdp/gesture-agent/internal/store/duckdb"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to gesture_agent.db")
	driver := flag.String("db-driver", store.DriverSQLite, "sqlite or duckdb")
	sessionID := flag.String("session", "", "session id (default: latest)")
	sessions := flag.Bool("sessions", false, "list sessions instead of notes")
	phrases := flag.Bool("phrases", false, "show the phrase log instead of notes")
	src := flag.String("source", "", "filter notes by source: human or ai")
	last := flag.Int("last", 20, "row limit, 0 for all notes")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/gesture_agent.db [--sessions | --phrases] [--session id] [--source human|ai] [--last N] [--json]")
		os.Exit(2)
	}
	if *src != "" && !note.Source(*src).Valid() {
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *src)
		os.Exit(2)
	}

	st, err := store.NewStore(*driver, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := run(st, *sessions, *phrases, *sessionID, note.Source(*src), *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(st *store.Store, sessions, phrases bool, sessionID string, src note.Source, last int, jsonOut bool) error {
	if sessions {
		return runSessionsMode(st, last, jsonOut)
	}
	if sessionID == "" {
		latest, err := st.LatestSession()
		if err != nil {
			return err
		}
		sessionID = latest.ID
	}
	if phrases {
		return runPhrasesMode(st, sessionID, last, jsonOut)
	}
	return runNotesMode(st, sessionID, src, last, jsonOut)
}

// #endregion main

// #region sessions-mode

func runSessionsMode(st *store.Store, last int, jsonOut bool) error {
	list, err := st.ListSessions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}
	fmt.Printf("%-36s  %-20s  %6s  %6s  %s\n", "Session", "Created", "Human", "AI", "Label")
	for _, s := range list {
		human, err := st.CountNotes(s.ID, note.Human)
		if err != nil {
			return err
		}
		ai, err := st.CountNotes(s.ID, note.AI)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-20s  %6d  %6d  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), human, ai, s.Label)
	}
	return nil
}

// #endregion sessions-mode

// #region notes-mode

type noteRow struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Phrase     int     `json:"phrase"`
	Fingers    string  `json:"fingers"`
	Points     int     `json:"points"`
	Duration   float64 `json:"duration"`
	PauseAfter float64 `json:"pause_after"`
	PathLength float64 `json:"path_length"`
}

func runNotesMode(st *store.Store, sessionID string, src note.Source, last int, jsonOut bool) error {
	notes, err := st.ListNotes(sessionID, src, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(notes)
	}
	if len(notes) == 0 {
		fmt.Fprintln(os.Stderr, "no notes found")
		return nil
	}

	rows := make([]noteRow, len(notes))
	for i, n := range notes {
		rows[i] = noteRow{
			ID:         n.ID,
			Source:     string(n.Source),
			Phrase:     n.Phrase,
			Fingers:    n.Fingers.String(),
			Points:     len(n.Points),
			Duration:   n.Duration,
			PauseAfter: n.PauseAfter,
			PathLength: n.PathLength(),
		}
	}

	fmt.Printf("Session %s\n\n", sessionID)
	fmt.Printf("%-8s  %-5s  %6s  %-7s  %6s  %8s  %8s  %8s\n",
		"Note", "Src", "Phrase", "Fingers", "Points", "Duration", "Pause", "Path")
	fmt.Printf("%-8s+-%-5s+-%6s+-%-7s+-%6s+-%8s+-%8s+-%8s\n",
		"--------", "-----", "------", "-------", "------", "--------", "--------", "--------")
	for _, r := range rows {
		fmt.Printf("%-8s  %-5s  %6s  %-7s  %6d  %8.3f  %8.3f  %8.3f\n",
			shortID(r.ID), r.Source, phraseLabel(r.Phrase), r.Fingers, r.Points, r.Duration, r.PauseAfter, r.PathLength)
	}
	return nil
}

// #endregion notes-mode

// #region phrases-mode

func runPhrasesMode(st *store.Store, sessionID string, last int, jsonOut bool) error {
	rows, err := st.ListPhraseLog(sessionID, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no phrase log entries")
		return nil
	}
	fmt.Printf("%6s  %8s  %7s  %6s  %9s  %-10s  %s\n", "Phrase", "Cohesion", "Hotness", "Tagged", "Generated", "Decision", "Reason")
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		fmt.Printf("%6d  %8.3f  %7.3f  %6d  %9d  %-10s  %s\n", r.Phrase, r.Cohesion, r.Hotness, r.Tagged, r.Generated, r.Decision, r.Reason)
	}
	return nil
}

// #endregion phrases-mode

// #region helpers

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func phraseLabel(p int) string {
	if p == 0 {
		return "-"
	}
	return strconv.Itoa(p)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
