package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// CacheEntry is one row of cached data. Data is the JSON encoding of
// whatever the fetcher produced; expiry is checked lazily at read time.
type CacheEntry struct {
	Key       string
	Data      []byte
	Timestamp time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// DurableStore is the durable cache tier: a key-value store that
// survives process restart. The in-memory tier is a performance cache
// of this tier, not an independent source of truth.
type DurableStore interface {
	Get(key string) (*CacheEntry, bool, error)
	Set(entry *CacheEntry) error
	Invalidate(key string) error
	Clear() error
	Count() (int, error)
	PurgeExpired(now time.Time) (int, error)
	Close() error
}

// SQLiteStore implements DurableStore on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Single writer; the cache is last-write-wins anyway
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key  TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		timestamp  INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	log.Printf("✅ [CACHE] Durable cache tier ready (%s)", path)

	return &SQLiteStore{db: db}, nil
}

// Get returns the entry for key, expired or not. Expiry policy belongs
// to the caller: the offline path serves entries of any age.
func (s *SQLiteStore) Get(key string) (*CacheEntry, bool, error) {
	var (
		data               []byte
		timestamp, expires int64
	)
	err := s.db.QueryRow(
		"SELECT data, timestamp, expires_at FROM cache_entries WHERE cache_key = ?", key,
	).Scan(&data, &timestamp, &expires)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return &CacheEntry{
		Key:       key,
		Data:      data,
		Timestamp: time.UnixMilli(timestamp),
		ExpiresAt: time.UnixMilli(expires),
	}, true, nil
}

// Set overwrites the entry for a key. Concurrent writers to the same
// key are last-write-wins.
func (s *SQLiteStore) Set(entry *CacheEntry) error {
	_, err := s.db.Exec(`INSERT INTO cache_entries (cache_key, data, timestamp, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			data = excluded.data,
			timestamp = excluded.timestamp,
			expires_at = excluded.expires_at`,
		entry.Key, entry.Data, entry.Timestamp.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Invalidate removes one key.
func (s *SQLiteStore) Invalidate(key string) error {
	_, err := s.db.Exec("DELETE FROM cache_entries WHERE cache_key = ?", key)
	return err
}

// Clear removes every entry.
func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM cache_entries")
	return err
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&n)
	return n, err
}

// PurgeExpired deletes entries whose TTL elapsed. The read path never
// purges; this is the cleanup job's backstop for lazy expiry.
func (s *SQLiteStore) PurgeExpired(now time.Time) (int, error) {
	res, err := s.db.Exec("DELETE FROM cache_entries WHERE expires_at < ?", now.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
