package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sentio/internal/anomaly"
	"sentio/internal/report"
)

// Database archives finished analysis sessions in SQLite.
type Database struct {
	db *sql.DB
}

// SessionRecord is one archived session.
type SessionRecord struct {
	ID             string
	Source         string
	StartedAt      time.Time
	EndedAt        time.Time
	TotalFrames    int
	FramesWithFace int
	AnomalyCount   int
	// ReportJSON is the full structured report, stored verbatim.
	ReportJSON string
}

// New opens (or creates) the archive database.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations.
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			total_frames INTEGER NOT NULL,
			frames_with_face INTEGER NOT NULL,
			anomaly_count INTEGER NOT NULL,
			report_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			description TEXT NOT NULL,
			frame INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_session ON anomalies(session_id, frame)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveSession archives a finished session together with its anomaly log.
func (d *Database) SaveSession(id string, agg *report.Aggregator, rep *report.Report) error {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sessions
		(id, source, started_at, ended_at, total_frames, frames_with_face, anomaly_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rep.General.Source, agg.StartedAt(), agg.EndedAt(),
		rep.FrameStats.TotalFrames, rep.FrameStats.FramesWithFace,
		rep.Anomalies.Count, string(reportJSON))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for i, rec := range agg.Anomalies() {
		_, err = tx.Exec(`INSERT INTO anomalies
			(session_id, seq, kind, description, frame, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i+1, string(rec.Kind), rec.Description, rec.Frame, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to save anomaly: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession retrieves an archived session by ID, or nil if absent.
func (d *Database) GetSession(id string) (*SessionRecord, error) {
	query := `SELECT id, source, started_at, ended_at, total_frames, frames_with_face, anomaly_count, report_json
		FROM sessions WHERE id = ?`

	var rec SessionRecord
	err := d.db.QueryRow(query, id).Scan(&rec.ID, &rec.Source, &rec.StartedAt, &rec.EndedAt,
		&rec.TotalFrames, &rec.FramesWithFace, &rec.AnomalyCount, &rec.ReportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &rec, nil
}

// ListSessions returns the most recent sessions, newest first.
func (d *Database) ListSessions(limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source, started_at, ended_at, total_frames, frames_with_face, anomaly_count, report_json
		FROM sessions ORDER BY started_at DESC LIMIT ?`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.StartedAt, &rec.EndedAt,
			&rec.TotalFrames, &rec.FramesWithFace, &rec.AnomalyCount, &rec.ReportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &rec)
	}
	return sessions, rows.Err()
}

// ListAnomalies returns the anomaly log of a session in frame order.
func (d *Database) ListAnomalies(sessionID string) ([]anomaly.Record, error) {
	query := `SELECT kind, description, frame, timestamp FROM anomalies
		WHERE session_id = ? ORDER BY seq`

	rows, err := d.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	defer rows.Close()

	var records []anomaly.Record
	for rows.Next() {
		var rec anomaly.Record
		var kind string
		if err := rows.Scan(&kind, &rec.Description, &rec.Frame, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		rec.Kind = anomaly.Kind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}
