// Package storage persists acquisition metadata in SQLite: one row per
// session, plus the captures, temperature readings and setting reports that
// belong to it. Frame pixels never go through here; they live in the run
// directories written by the recorder.
package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the metadata database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. SQLite is run in WAL mode so the acquisition loop and ad-hoc
// queries do not block each other.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Session is one camera connection from open to close.
type Session struct {
	ID           string
	CameraSerial uint32
	SensorSerial uint32
	Port         string
	StartedAt    time.Time
	EndedAt      sql.NullTime
}

// CreateSession records a new session and returns its generated ID.
func (s *Store) CreateSession(cameraSerial, sensorSerial uint32, port string) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO sessions (session_id, camera_serial, sensor_serial, port) VALUES (?, ?, ?, ?)`,
		id, cameraSerial, sensorSerial, port,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// CloseSession stamps the session's end time.
func (s *Store) CloseSession(sessionID string) error {
	res, err := s.Exec(`UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("close session: unknown session %s", sessionID)
	}
	return nil
}

// GetSession returns one session by ID.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	row := s.QueryRow(
		`SELECT session_id, camera_serial, sensor_serial, port, started_at, ended_at
		   FROM sessions WHERE session_id = ?`, sessionID)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.CameraSerial, &sess.SensorSerial, &sess.Port, &sess.StartedAt, &sess.EndedAt); err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Capture summarises one closed acquisition window.
type Capture struct {
	SessionID  string
	RunPath    string
	StartedNs  int64
	EndedNs    int64
	ByteCount  int64
	FrameCount int64
	GapCount   int64
}

// RecordCapture inserts one capture summary and returns its row ID.
func (s *Store) RecordCapture(c Capture) (int64, error) {
	res, err := s.Exec(
		`INSERT INTO captures (session_id, run_path, started_ns, ended_ns, byte_count, frame_count, gap_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.SessionID, c.RunPath, c.StartedNs, c.EndedNs, c.ByteCount, c.FrameCount, c.GapCount,
	)
	if err != nil {
		return 0, fmt.Errorf("record capture: %w", err)
	}
	return res.LastInsertId()
}

// SessionCaptures lists the captures of a session in insertion order.
func (s *Store) SessionCaptures(sessionID string) ([]Capture, error) {
	rows, err := s.Query(
		`SELECT session_id, run_path, started_ns, ended_ns, byte_count, frame_count, gap_count
		   FROM captures WHERE session_id = ? ORDER BY capture_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.SessionID, &c.RunPath, &c.StartedNs, &c.EndedNs, &c.ByteCount, &c.FrameCount, &c.GapCount); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// FrameRecord is the per-frame metadata row. Stats fields are null for
// invalid frames.
type FrameRecord struct {
	CaptureID   int64
	FrameIndex  int64
	TimestampNs int64
	Valid       bool
	MinCount    sql.NullInt64
	MaxCount    sql.NullInt64
	MeanCount   sql.NullFloat64
	StdDevCount sql.NullFloat64
}

// RecordFrames bulk-inserts per-frame metadata inside one transaction.
func (s *Store) RecordFrames(records []FrameRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("record frames: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO frames (capture_id, frame_index, timestamp_ns, valid, min_count, max_count, mean_count, stddev_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record frames: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.CaptureID, r.FrameIndex, r.TimestampNs, r.Valid, r.MinCount, r.MaxCount, r.MeanCount, r.StdDevCount); err != nil {
			tx.Rollback()
			return fmt.Errorf("record frame %d: %w", r.FrameIndex, err)
		}
	}
	return tx.Commit()
}

// CaptureFrames lists the frame metadata of one capture in stream order.
func (s *Store) CaptureFrames(captureID int64) ([]FrameRecord, error) {
	rows, err := s.Query(
		`SELECT capture_id, frame_index, timestamp_ns, valid, min_count, max_count, mean_count, stddev_count
		   FROM frames WHERE capture_id = ? ORDER BY frame_index`, captureID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var r FrameRecord
		if err := rows.Scan(&r.CaptureID, &r.FrameIndex, &r.TimestampNs, &r.Valid, &r.MinCount, &r.MaxCount, &r.MeanCount, &r.StdDevCount); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordTemperature inserts one temperature reading. sensor is one of
// "fpa", "housing" or "shutter".
func (s *Store) RecordTemperature(sessionID, sensor string, celsius float64) error {
	_, err := s.Exec(
		`INSERT INTO temperatures (session_id, sensor, celsius) VALUES (?, ?, ?)`,
		sessionID, sensor, celsius,
	)
	if err != nil {
		return fmt.Errorf("record %s temperature: %w", sensor, err)
	}
	return nil
}

// TemperatureReading is one stored sensor sample.
type TemperatureReading struct {
	Sensor    string
	Celsius   float64
	Timestamp time.Time
}

// SessionTemperatures lists a session's readings in insertion order.
func (s *Store) SessionTemperatures(sessionID string) ([]TemperatureReading, error) {
	rows, err := s.Query(
		`SELECT sensor, celsius, timestamp FROM temperatures WHERE session_id = ? ORDER BY reading_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list temperatures: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		var r TemperatureReading
		if err := rows.Scan(&r.Sensor, &r.Celsius, &r.Timestamp); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// RecordSettingReport inserts the outcome of one apply-and-verify item.
func (s *Store) RecordSettingReport(sessionID, name string, wanted, reported []byte, confirmed bool, applyErr error) error {
	var errText sql.NullString
	if applyErr != nil {
		errText = sql.NullString{String: applyErr.Error(), Valid: true}
	}
	_, err := s.Exec(
		`INSERT INTO setting_reports (session_id, name, wanted, reported, confirmed, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, name, hex.EncodeToString(wanted), hex.EncodeToString(reported), confirmed, errText,
	)
	if err != nil {
		return fmt.Errorf("record setting report %s: %w", name, err)
	}
	return nil
}

// UnconfirmedSettings returns the names of settings the camera did not
// confirm during a session, in insertion order.
func (s *Store) UnconfirmedSettings(sessionID string) ([]string, error) {
	rows, err := s.Query(
		`SELECT name FROM setting_reports WHERE session_id = ? AND NOT confirmed ORDER BY report_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list unconfirmed settings: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
