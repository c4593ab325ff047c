package database

// InsertAggregates stores the means of a run in one transaction.
func (db *DB) InsertAggregates(runID string, rows []AggregateRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO aggregates (run_id, table_key, subject, month, team, mean, n)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.TableKey, r.Subject, r.Month, r.Team, r.Mean, r.N); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAggregates returns the stored means of one table of a run.
func (db *DB) GetAggregates(runID, tableKey string) ([]AggregateRow, error) {
	rows, err := db.conn.Query(
		`SELECT table_key, subject, month, team, mean, n FROM aggregates
		WHERE run_id = ? AND table_key = ? ORDER BY subject, month, team`,
		runID, tableKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		var r AggregateRow
		if err := rows.Scan(&r.TableKey, &r.Subject, &r.Month, &r.Team, &r.Mean, &r.N); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertCounts stores the tallies of a run in one transaction.
func (db *DB) InsertCounts(runID string, rows []CountRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rows {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO counts (run_id, series, item, count, rank) VALUES (?, ?, ?, ?, ?)`,
			runID, r.Series, r.Item, r.Count, r.Rank,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCounts returns a stored tally in its original order.
func (db *DB) GetCounts(runID, series string) ([]CountRow, error) {
	rows, err := db.conn.Query(
		`SELECT series, item, count, rank FROM counts WHERE run_id = ? AND series = ? ORDER BY rank`,
		runID, series,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CountRow
	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Series, &r.Item, &r.Count, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored for it.
func (db *DB) DeleteRun(runID string) error {
	_, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", runID)
	return err
}
