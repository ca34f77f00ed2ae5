package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
)

// #region schema
// schema is kept to types and syntax shared by SQLite and DuckDB.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	label       TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	source      TEXT NOT NULL,
	phrase      INTEGER NOT NULL,
	fingers     TEXT NOT NULL,
	points      BLOB NOT NULL,
	duration    DOUBLE NOT NULL,
	pause_after DOUBLE NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_notes_session ON notes (session_id, seq);

CREATE TABLE IF NOT EXISTS phrase_log (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	phrase      INTEGER NOT NULL,
	cohesion    DOUBLE,
	hotness     DOUBLE,
	tagged      INTEGER NOT NULL,
	generated   INTEGER NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store persists sessions, notes and the phrase log.
type Store struct {
	db     *sql.DB
	driver string
}

// #endregion store-struct

// #region constructor
// NewStore opens a database with the given driver ("sqlite" or "duckdb") and
// runs migrations. SQLite is always registered; the duckdb driver must be
// linked in by the binary (see internal/store/duckdb).
func NewStore(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	if driver == DriverDuckDB && dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma fk: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

// #endregion constructor

// #region accessors
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// #endregion accessors

// #region sessions
// CreateSession starts a new session.
func (s *Store) CreateSession(label string) (Session, error) {
	sess := Session{
		ID:        uuid.New().String(),
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, label, created_at) VALUES (?, ?, ?)`,
		sess.ID, nullIfEmpty(label), sess.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, label, created_at FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var label sql.NullString
		var createdStr string
		if err := rows.Scan(&sess.ID, &label, &createdStr); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Label = label.String
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns the session with id, or a wrapped sql.ErrNoRows.
func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var label sql.NullString
	var createdStr string
	err := s.db.QueryRow(`SELECT id, label, created_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &label, &createdStr)
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	sess.Label = label.String
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return sess, nil
}

// LatestSession returns the most recently created session.
func (s *Store) LatestSession() (Session, error) {
	sessions, err := s.ListSessions(1)
	if err != nil {
		return Session{}, err
	}
	if len(sessions) == 0 {
		return Session{}, fmt.Errorf("latest session: %w", sql.ErrNoRows)
	}
	return sessions[0], nil
}

// #endregion sessions

// #region save-notes
// SaveNotes upserts notes into a session. New notes are appended in order;
// a note saved again keeps its position and has its phrase and timing updated.
func (s *Store) SaveNotes(sessionID string, notes []note.Note) error {
	if len(notes) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) FROM notes WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, n := range notes {
		if n.ID == "" {
			return errors.New("save notes: note without id")
		}
		seq++
		_, err := tx.Exec(
			`INSERT INTO notes (id, session_id, seq, source, phrase, fingers, points, duration, pause_after, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
				phrase = excluded.phrase,
				duration = excluded.duration,
				pause_after = excluded.pause_after`,
			n.ID, sessionID, seq, string(n.Source), n.Phrase, n.Fingers.String(),
			encodePoints(n.Points), n.Duration, n.PauseAfter, now,
		)
		if err != nil {
			return fmt.Errorf("insert note %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// #endregion save-notes

// #region list-notes
// ListNotes returns a session's notes in recording order. An empty source
// returns every note; limit <= 0 means no limit.
func (s *Store) ListNotes(sessionID string, source note.Source, limit int) ([]note.Note, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "session_id = ?")
	args = append(args, sessionID)
	if source != "" {
		where = append(where, "source = ?")
		args = append(args, string(source))
	}
	query := `SELECT id, source, phrase, fingers, points, duration, pause_after
		FROM notes WHERE ` + strings.Join(where, " AND ") + ` ORDER BY seq`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		var n note.Note
		var src, fingers string
		var blob []byte
		if err := rows.Scan(&n.ID, &src, &n.Phrase, &fingers, &blob, &n.Duration, &n.PauseAfter); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Source = note.Source(src)
		if n.Fingers, err = note.ParseFingerSet(fingers); err != nil {
			return nil, fmt.Errorf("note %s: %w", n.ID, err)
		}
		if n.Points, err = decodePoints(blob); err != nil {
			return nil, fmt.Errorf("note %s: %w", n.ID, err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CountNotes returns how many notes of source a session holds; an empty
// source counts all.
func (s *Store) CountNotes(sessionID string, source note.Source) (int, error) {
	query := `SELECT COUNT(*) FROM notes WHERE session_id = ?`
	args := []any{sessionID}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, string(source))
	}
	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// #endregion list-notes

// #region list-phrase-log
// ListPhraseLog returns the most recent phrase log rows of a session.
func (s *Store) ListPhraseLog(sessionID string, limit int) ([]PhraseRow, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, phrase, cohesion, hotness, tagged, generated, decision, reason, created_at
		 FROM phrase_log WHERE session_id = ? ORDER BY created_at DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list phrase log: %w", err)
	}
	defer rows.Close()

	var out []PhraseRow
	for rows.Next() {
		var r PhraseRow
		var cohesion, hotness sql.NullFloat64
		var reason sql.NullString
		var createdStr string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Phrase, &cohesion, &hotness,
			&r.Tagged, &r.Generated, &r.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan phrase row: %w", err)
		}
		r.Cohesion = cohesion.Float64
		r.Hotness = hotness.Float64
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion list-phrase-log

// #region point-encoding
// Each point is six little-endian float64s: x, y, z, angle, velocity, time.
const pointWidth = 6 * 8

func encodePoints(pts []note.Point) []byte {
	buf := make([]byte, len(pts)*pointWidth)
	for i, p := range pts {
		vals := [6]float64{p.X, p.Y, p.Z, p.Angle, p.Velocity, p.Time}
		for k, v := range vals {
			binary.LittleEndian.PutUint64(buf[i*pointWidth+k*8:], math.Float64bits(v))
		}
	}
	return buf
}

func decodePoints(b []byte) ([]note.Point, error) {
	if len(b)%pointWidth != 0 {
		return nil, fmt.Errorf("decode points: blob length %d not a multiple of %d", len(b), pointWidth)
	}
	pts := make([]note.Point, len(b)/pointWidth)
	for i := range pts {
		var vals [6]float64
		for k := range vals {
			vals[k] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*pointWidth+k*8:]))
		}
		pts[i] = note.Point{X: vals[0], Y: vals[1], Z: vals[2], Angle: vals[3], Velocity: vals[4], Time: vals[5]}
	}
	return pts, nil
}

// #endregion point-encoding

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
