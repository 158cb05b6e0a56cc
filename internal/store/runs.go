package store

import (
	"database/sql"
)

// InsertRun records a completed run and returns its ID.
func (s *Store) InsertRun(r Run) (int64, error) {
	result, err := s.conn.Exec(
		`INSERT INTO runs (caselist, mode, targets, topic, files, blocks, arguments,
			tournaments, unknown_side, aff_path, neg_path, packet_path, report_md)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Caselist, r.Mode, r.Targets, r.Topic, r.Files, r.Blocks, r.Arguments,
		r.Tournaments, r.UnknownSide, r.AffPath, r.NegPath, r.PacketPath, r.ReportMD,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRun returns a single run by ID, or nil when it does not exist.
func (s *Store) GetRun(id int64) (*Run, error) {
	row := s.conn.QueryRow(
		`SELECT id, caselist, mode, targets, topic, files, blocks, arguments,
			tournaments, unknown_side, aff_path, neg_path, packet_path, report_md, generated_at
		FROM runs WHERE id = ?`, id,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// LastRun returns the most recent run, or nil when none exist.
func (s *Store) LastRun() (*Run, error) {
	row := s.conn.QueryRow(
		`SELECT id, caselist, mode, targets, topic, files, blocks, arguments,
			tournaments, unknown_side, aff_path, neg_path, packet_path, report_md, generated_at
		FROM runs ORDER BY id DESC LIMIT 1`,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.conn.Query(
		`SELECT id, caselist, mode, targets, topic, files, blocks, arguments,
			tournaments, unknown_side, aff_path, neg_path, packet_path, report_md, generated_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Caselist, &r.Mode, &r.Targets, &r.Topic, &r.Files,
			&r.Blocks, &r.Arguments, &r.Tournaments, &r.UnknownSide,
			&r.AffPath, &r.NegPath, &r.PacketPath, &r.ReportMD, &r.GeneratedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate counts for the status display.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM rounds_cache").Scan(&stats.CachedListings); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM files").Scan(&stats.Files); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.Runs); err != nil {
		return nil, err
	}
	var last sql.NullString
	if err := s.conn.QueryRow("SELECT MAX(generated_at) FROM runs").Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		stats.LastGenerated = last.String
	}
	return stats, nil
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Caselist, &r.Mode, &r.Targets, &r.Topic, &r.Files,
		&r.Blocks, &r.Arguments, &r.Tournaments, &r.UnknownSide,
		&r.AffPath, &r.NegPath, &r.PacketPath, &r.ReportMD, &r.GeneratedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
