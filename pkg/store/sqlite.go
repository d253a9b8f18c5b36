package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Persisted accessory records
CREATE TABLE IF NOT EXISTS devices (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    address         TEXT NOT NULL UNIQUE,
    device_type     TEXT NOT NULL,
    is_connected    INTEGER NOT NULL DEFAULT 0,
    volume          INTEGER NOT NULL DEFAULT 75,
    battery_level   INTEGER,
    signal_strength INTEGER,
    last_connected  TEXT
);

-- Capture sessions (device_id deliberately unconstrained)
CREATE TABLE IF NOT EXISTS audio_sessions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id     INTEGER,
    is_active     INTEGER NOT NULL DEFAULT 0,
    audio_quality TEXT NOT NULL DEFAULT 'balanced',
    buffer_size   INTEGER NOT NULL DEFAULT 256,
    latency       INTEGER,
    start_time    TEXT NOT NULL,
    end_time      TEXT
);

CREATE INDEX IF NOT EXISTS idx_devices_address ON devices(address);
CREATE INDEX IF NOT EXISTS idx_sessions_device ON audio_sessions(device_id);
CREATE INDEX IF NOT EXISTS idx_sessions_active ON audio_sessions(is_active);
`

// SQLiteStore is the durable Store implementation.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path, enabling WAL mode
// and foreign keys. An empty path resolves to the default config
// directory location.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine database path: %w", err)
		}
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate brings the schema up to date.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) schemaVersion(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	var version int
	err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

// tx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const deviceColumns = `id, name, address, device_type, is_connected, volume, battery_level, signal_strength, last_connected`

func scanDevice(row interface{ Scan(...any) error }) (*Device, error) {
	d := &Device{}
	var lastConnected sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Address, &d.DeviceType, &d.IsConnected,
		&d.Volume, &d.BatteryLevel, &d.SignalStrength, &lastConnected)
	if err != nil {
		return nil, err
	}
	d.LastConnected = parseTimePtr(lastConnected)
	return d, nil
}

func (s *SQLiteStore) GetAllDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetDevice(ctx context.Context, id int64) (*Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *SQLiteStore) GetDeviceByAddress(ctx context.Context, address string) (*Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE address = ?`, address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *SQLiteStore) CreateDevice(ctx context.Context, insert DeviceInsert) (*Device, error) {
	isConnected := false
	if insert.IsConnected != nil {
		isConnected = *insert.IsConnected
	}
	volume := DefaultDeviceVolume
	if insert.Volume != nil {
		volume = *insert.Volume
	}
	var lastConnected *string
	if isConnected {
		lastConnected = formatTimePtr(time.Now())
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (name, address, device_type, is_connected, volume, battery_level, signal_strength, last_connected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, insert.Name, insert.Address, insert.DeviceType, isConnected, volume,
		insert.BatteryLevel, insert.SignalStrength, lastConnected)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetDevice(ctx, id)
}

func (s *SQLiteStore) UpdateDevice(ctx context.Context, id int64, update DeviceUpdate) (*Device, error) {
	var merged *Device
	err := s.tx(ctx, func(tx *sql.Tx) error {
		d, err := scanDevice(tx.QueryRowContext(ctx,
			`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		applyDeviceUpdate(d, update)

		_, err = tx.ExecContext(ctx, `
			UPDATE devices SET name = ?, address = ?, device_type = ?, is_connected = ?,
				volume = ?, battery_level = ?, signal_strength = ?, last_connected = ?
			WHERE id = ?
		`, d.Name, d.Address, d.DeviceType, d.IsConnected, d.Volume,
			d.BatteryLevel, d.SignalStrength, formatTimePtrOrNil(d.LastConnected), id)
		merged = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *SQLiteStore) DeleteDevice(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `id, device_id, is_active, audio_quality, buffer_size, latency, start_time, end_time`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sess := &Session{}
	var startTime string
	var endTime sql.NullString
	err := row.Scan(&sess.ID, &sess.DeviceID, &sess.IsActive, &sess.AudioQuality,
		&sess.BufferSize, &sess.Latency, &startTime, &endTime)
	if err != nil {
		return nil, err
	}
	sess.StartTime, _ = time.Parse(time.RFC3339Nano, startTime)
	sess.EndTime = parseTimePtr(endTime)
	return sess, nil
}

func (s *SQLiteStore) GetAllSessions(ctx context.Context) ([]Session, error) {
	return s.querySessions(ctx, `SELECT `+sessionColumns+` FROM audio_sessions ORDER BY id`)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM audio_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, insert SessionInsert) (*Session, error) {
	isActive := true
	if insert.IsActive != nil {
		isActive = *insert.IsActive
	}
	quality := QualityBalanced
	if insert.AudioQuality != nil {
		quality = *insert.AudioQuality
	}
	bufferSize := DefaultSessionBufferSize
	if insert.BufferSize != nil {
		bufferSize = *insert.BufferSize
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_sessions (device_id, is_active, audio_quality, buffer_size, latency, start_time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, insert.DeviceID, isActive, quality, bufferSize, insert.Latency,
		time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, id int64, update SessionUpdate) (*Session, error) {
	var merged *Session
	err := s.tx(ctx, func(tx *sql.Tx) error {
		sess, err := scanSession(tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM audio_sessions WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		applySessionUpdate(sess, update)

		_, err = tx.ExecContext(ctx, `
			UPDATE audio_sessions SET device_id = ?, is_active = ?, audio_quality = ?,
				buffer_size = ?, latency = ?, end_time = ?
			WHERE id = ?
		`, sess.DeviceID, sess.IsActive, sess.AudioQuality, sess.BufferSize,
			sess.Latency, formatTimePtrOrNil(sess.EndTime), id)
		merged = sess
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *SQLiteStore) GetDeviceSessions(ctx context.Context, deviceID int64) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM audio_sessions WHERE device_id = ? ORDER BY id`, deviceID)
}

func (s *SQLiteStore) GetActiveSessions(ctx context.Context) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM audio_sessions WHERE is_active = 1 ORDER BY id`)
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func parseTimePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatTimePtr(t time.Time) *string {
	s := t.Format(time.RFC3339Nano)
	return &s
}

func formatTimePtrOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return formatTimePtr(*t)
}

func defaultDBPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aircast", "aircast.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aircast", "aircast.db"), nil
}
