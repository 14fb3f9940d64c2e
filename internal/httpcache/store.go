package httpcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Entry is a cached HTTP response.
type Entry struct {
	Key       string
	Status    int
	Header    http.Header
	Body      []byte
	ExpiresAt time.Time
}

var errMiss = errors.New("cache miss")

// Store persists cached responses in a SQLite table.
type Store struct {
	db *sql.DB
}

// NewStore initializes the cache schema in db.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			status INTEGER NOT NULL,
			header BLOB,
			body BLOB,
			expires_at INTEGER NOT NULL
		);`,
	)
	return err
}

// Get returns the entry for key if it has not expired at now.
func (s *Store) Get(key string, now time.Time) (Entry, error) {
	row := s.db.QueryRow(`
		SELECT status, header, body, expires_at
		FROM responses
		WHERE key = ?`,
		key,
	)

	var (
		e         = Entry{Key: key}
		header    []byte
		expiresAt int64
	)
	if err := row.Scan(&e.Status, &header, &e.Body, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, errMiss
		}
		return Entry{}, err
	}

	e.ExpiresAt = time.Unix(0, expiresAt).UTC()
	if !now.Before(e.ExpiresAt) {
		return Entry{}, errMiss
	}

	if len(header) > 0 {
		if err := json.Unmarshal(header, &e.Header); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

// Put inserts or replaces the entry.
func (s *Store) Put(e Entry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO responses (key, status, header, body, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Key,
		e.Status,
		header,
		e.Body,
		e.ExpiresAt.UnixNano(),
	)
	return err
}

// Purge deletes every entry that expired before now.
func (s *Store) Purge(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM responses WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
