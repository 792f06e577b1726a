// Package catalog indexes finished runs in a SQLite database so they can be
// listed without walking every run directory.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Catalog struct {
	conn *sql.DB
}

// RunRow is one cataloged run.
type RunRow struct {
	ID         int64
	RunID      string
	Input      string
	Output     string
	Steps      int
	StepsTaken int
	PPM        float64
	Particles  int
	Elapsed    float64 // seconds
	Metrics    map[string]float64
	CreatedAt  time.Time
}

// Open opens or creates the catalog at path.
func Open(path string) (*Catalog, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Catalog{conn: conn}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.conn.Close()
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		input TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL DEFAULT '',
		steps INTEGER NOT NULL DEFAULT 0,
		steps_taken INTEGER NOT NULL DEFAULT 0,
		ppm REAL NOT NULL DEFAULT 0,
		particles INTEGER NOT NULL DEFAULT 0,
		elapsed REAL NOT NULL DEFAULT 0,
		metrics TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	if _, err := c.conn.Exec(schema); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Record inserts a run and returns its row id. A zero CreatedAt is set to now.
func (c *Catalog) Record(r RunRow) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return 0, err
	}

	res, err := c.conn.Exec(
		`INSERT INTO runs (run_id, input, output, steps, steps_taken, ppm, particles, elapsed, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Input, r.Output, r.Steps, r.StepsTaken, r.PPM, r.Particles, r.Elapsed,
		string(metrics), r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectRuns = `SELECT id, run_id, input, output, steps, steps_taken, ppm, particles, elapsed, metrics, created_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRow, error) {
	r := &RunRow{}
	var metrics string
	var created int64
	err := s.Scan(&r.ID, &r.RunID, &r.Input, &r.Output, &r.Steps, &r.StepsTaken,
		&r.PPM, &r.Particles, &r.Elapsed, &metrics, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
		return nil, fmt.Errorf("catalog: run %s metrics: %w", r.RunID, err)
	}
	r.CreatedAt = time.Unix(0, created)
	return r, nil
}

// Get returns the run with the given run id, or nil if there is none.
func (c *Catalog) Get(runID string) (*RunRow, error) {
	r, err := scanRun(c.conn.QueryRow(selectRuns+" WHERE run_id = ?", runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// Recent returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (c *Catalog) Recent(limit int) ([]RunRow, error) {
	query := selectRuns + " ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunRow, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Delete removes a run from the catalog. Removing an unknown run is not an
// error.
func (c *Catalog) Delete(runID string) error {
	_, err := c.conn.Exec("DELETE FROM runs WHERE run_id = ?", runID)
	return err
}
