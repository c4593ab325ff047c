package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// InsertRun records the start of a pipeline run and returns its ID.
func (db *DB) InsertRun(dataPath string, responses int, months []string) (string, error) {
	var monthsJSON *string
	if months != nil {
		data, err := json.Marshal(months)
		if err != nil {
			return "", err
		}
		s := string(data)
		monthsJSON = &s
	}

	id := uuid.NewString()
	if _, err := db.conn.Exec(
		`INSERT INTO runs (id, data_path, responses, months) VALUES (?, ?, ?, ?)`,
		id, dataPath, responses, monthsJSON,
	); err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun marks a run as done with the number of exported files.
func (db *DB) FinishRun(runID, status string, files int) error {
	result, err := db.conn.Exec(
		`UPDATE runs SET status = ?, files = ?, finished_at = datetime('now') WHERE id = ?`,
		status, files, runID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

const runColumns = "id, data_path, responses, months, status, files, started_at, finished_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var monthsJSON *string
	if err := row.Scan(&r.ID, &r.DataPath, &r.Responses, &monthsJSON,
		&r.Status, &r.Files, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	if monthsJSON != nil {
		if err := json.Unmarshal([]byte(*monthsJSON), &r.Months); err != nil {
			return nil, fmt.Errorf("decoding months of run %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// GetRun returns a run by ID, or nil if there is none.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetLastSuccessfulRun returns the newest run with status ok, or nil.
func (db *DB) GetLastSuccessfulRun() (*Run, error) {
	row := db.conn.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1",
		StatusOK,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetStats returns counts over the whole history.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM runs WHERE status = 'ok'", &s.SucceededRuns},
		{"SELECT COUNT(*) FROM runs WHERE status = 'failed'", &s.FailedRuns},
		{"SELECT COUNT(*) FROM aggregates", &s.Aggregates},
		{"SELECT COUNT(*) FROM counts", &s.Counts},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow("SELECT MAX(started_at) FROM runs").Scan(&s.LastRunAt); err != nil {
		return nil, err
	}
	return s, nil
}
