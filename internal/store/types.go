package store

import "time"

// #region drivers
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// #endregion drivers

// #region session
// Session groups the notes of one run of the controller.
type Session struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion session

// #region phrase-row
// PhraseRow is one row of phrase_log as read back for inspection.
type PhraseRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Phrase    int       `json:"phrase"`
	Cohesion  float64   `json:"cohesion"`
	Hotness   float64   `json:"hotness"`
	Tagged    int       `json:"tagged"`
	Generated int       `json:"generated"`
	Decision  string    `json:"decision"` // "generated" | "dropped" | "starved" | "failed"
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion phrase-row
