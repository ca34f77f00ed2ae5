package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region log-phrase
// LogPhrase writes a phrase entry to the phrase_log table.
func LogPhrase(db *sql.DB, entry PhraseEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO phrase_log (id, session_id, phrase, cohesion, hotness, tagged, generated, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SessionID,
		entry.Phrase,
		entry.Cohesion,
		entry.Hotness,
		entry.Tagged,
		entry.Generated,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log phrase: %w", err)
	}
	return nil
}

// #endregion log-phrase

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
