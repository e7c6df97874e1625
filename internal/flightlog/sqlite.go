package flightlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS flight_log (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_time   TEXT NOT NULL,
	stable_time  TEXT NOT NULL,
	raspador     TEXT NOT NULL,
	pilot        TEXT NOT NULL,
	mission      TEXT NOT NULL,
	maneuver     TEXT NOT NULL,
	option       TEXT NOT NULL,
	error        TEXT NOT NULL,
	detail       TEXT NOT NULL,
	result       TEXT NOT NULL,
	instruction  TEXT NOT NULL,
	id           TEXT NOT NULL UNIQUE,
	maneuver_id  TEXT NOT NULL,
	mission_id   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS flight_log_maneuver ON flight_log (maneuver_id);
`

// SQLiteStore persists rows as they are appended. It only ever inserts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. Use ":memory:" in tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open flight log db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create flight log schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r Row) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO flight_log (entry_time, stable_time, raspador, pilot, mission, maneuver, option,
	error, detail, result, instruction, id, maneuver_id, mission_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EntryTime.Format(time.RFC3339Nano), r.StableTime.Format(time.RFC3339Nano),
		r.Raspador, r.Pilot, r.Mission, r.Maneuver, r.Option,
		r.Error, r.Detail, r.Result, r.Instruction,
		r.ID, r.ManeuverID, r.MissionID,
	)
	if err != nil {
		return fmt.Errorf("insert flight log row: %w", err)
	}
	return nil
}

// Rows returns every stored row in insertion order.
func (s *SQLiteStore) Rows(ctx context.Context) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx, `
SELECT entry_time, stable_time, raspador, pilot, mission, maneuver, option,
	error, detail, result, instruction, id, maneuver_id, mission_id
FROM flight_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query flight log: %w", err)
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var (
			r             Row
			entry, stable string
		)
		if err := rs.Scan(&entry, &stable, &r.Raspador, &r.Pilot, &r.Mission, &r.Maneuver, &r.Option,
			&r.Error, &r.Detail, &r.Result, &r.Instruction, &r.ID, &r.ManeuverID, &r.MissionID); err != nil {
			return nil, err
		}
		if r.EntryTime, err = time.Parse(time.RFC3339Nano, entry); err != nil {
			return nil, err
		}
		if r.StableTime, err = time.Parse(time.RFC3339Nano, stable); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
