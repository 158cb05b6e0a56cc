package store

import (
	"database/sql"
	"fmt"
	"time"
)

// StoreRounds saves one team's round listing under its cache key,
// replacing any previous listing for the same key.
func (s *Store) StoreRounds(key, caselist, school, team string, payload []byte) error {
	_, err := s.conn.Exec(
		`INSERT INTO rounds_cache (cache_key, caselist, school, team, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, caselist, school, team, string(payload),
	)
	return err
}

// CachedRounds returns the cached listing for a key if it is younger
// than the TTL. The second return is false on a miss or an expired
// entry.
func (s *Store) CachedRounds(key string, ttl time.Duration) ([]byte, bool, error) {
	cutoff := fmt.Sprintf("-%d seconds", int(ttl.Seconds()))
	var payload string
	err := s.conn.QueryRow(
		`SELECT payload FROM rounds_cache
		WHERE cache_key = ? AND fetched_at > datetime('now', ?)`,
		key, cutoff,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// ClearRoundsCache drops every cached listing; the next scrape goes
// back to the network.
func (s *Store) ClearRoundsCache() error {
	_, err := s.conn.Exec("DELETE FROM rounds_cache")
	return err
}
