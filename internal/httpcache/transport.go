package httpcache

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/i474232898/weather-flow/internal/store"
)

// HeaderFromCache is set on responses that were served from the cache.
const HeaderFromCache = "X-From-Cache"

// Transport is an http.RoundTripper that caches successful GET responses
// in SQLite for a fixed expiry window.
type Transport struct {
	base   http.RoundTripper
	store  *Store
	db     *sql.DB
	expiry time.Duration
	now    func() time.Time
}

// New opens the cache database at path and returns a caching Transport that
// delegates misses to base (http.DefaultTransport when nil).
func New(path string, expiry time.Duration, base http.RoundTripper) (*Transport, error) {
	if expiry <= 0 {
		return nil, fmt.Errorf("cache expiry must be positive, got %s", expiry)
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	if base == nil {
		base = http.DefaultTransport
	}

	t := &Transport{
		base:   base,
		store:  s,
		db:     db,
		expiry: expiry,
		now:    time.Now,
	}
	if n, err := s.Purge(t.now()); err != nil {
		log.Printf("WARN: httpcache: purge failed: %v", err)
	} else if n > 0 {
		log.Printf("DEBUG: httpcache: purged %d expired responses", n)
	}
	return t, nil
}

// Close releases the cache database.
func (t *Transport) Close() error {
	return t.db.Close()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	key := cacheKey(req)
	if e, err := t.store.Get(key, t.now()); err == nil {
		return e.response(req), nil
	} else if !errors.Is(err, errMiss) {
		log.Printf("WARN: httpcache: lookup %s: %v", key, err)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	e := Entry{
		Key:       key,
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		ExpiresAt: t.now().Add(t.expiry),
	}
	if err := t.store.Put(e); err != nil {
		log.Printf("WARN: httpcache: store %s: %v", key, err)
	}
	return resp, nil
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

func (e Entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderFromCache, "1")
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
