package store

import "database/sql"

// RecordFile notes a downloaded document in the ledger. Re-downloads
// of the same path overwrite the earlier entry.
func (s *Store) RecordFile(path, cacheName string, bytes int) error {
	_, err := s.conn.Exec(
		`INSERT INTO files (path, cache_name, bytes, downloaded_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(path) DO UPDATE SET cache_name = excluded.cache_name,
			bytes = excluded.bytes, downloaded_at = excluded.downloaded_at`,
		path, cacheName, bytes,
	)
	return err
}

// FileCacheName returns the on-disk cache name recorded for a
// document path, or "" when the path was never downloaded.
func (s *Store) FileCacheName(path string) (string, error) {
	var name string
	err := s.conn.QueryRow("SELECT cache_name FROM files WHERE path = ?", path).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// FileCount returns the number of documents in the download ledger.
func (s *Store) FileCount() (int, error) {
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
