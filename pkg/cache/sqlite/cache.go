// Package sqlite implements the review result cache backed by SQLite.
//
// Entries are keyed by an input fingerprint only, never by the model that
// answered: a result produced by a fallback model is still valid for the
// same inputs. TTL is fixed and global; expired rows are evicted lazily
// during lookup, with an explicit Sweep for rows never looked up again.
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/argus-ai/argus/pkg/models"
)

// Cache is the TTL-bounded review result cache.
type Cache struct {
	db        *sql.DB
	ttl       time.Duration
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS review_cache (
	fingerprint TEXT PRIMARY KEY,
	verdict TEXT NOT NULL,
	model TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	ttl_seconds INTEGER NOT NULL
);
`

// New opens (or creates) the cache database at dbPath with the given TTL.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Fingerprint computes the deterministic cache key for one review request.
// It covers the normalized payload, the review mode and the language hint,
// and deliberately excludes the model identifier.
func Fingerprint(payload string, mode models.Mode, language string) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get retrieves an unexpired cached result. An expired entry counts as a
// miss and is removed as a side effect of the lookup. Internal cache
// failures also count as misses, never as errors.
func (c *Cache) Get(key string) (models.ReviewResult, bool) {
	var (
		verdict   string
		model     string
		latencyMS int64
		createdAt time.Time
	)

	err := c.db.QueryRow(
		`SELECT verdict, model, latency_ms, created_at FROM review_cache WHERE fingerprint = ?`,
		key,
	).Scan(&verdict, &model, &latencyMS, &createdAt)
	if err != nil {
		c.misses.Add(1)
		return models.ReviewResult{}, false
	}

	if time.Since(createdAt) >= c.ttl {
		if _, err := c.db.Exec(`DELETE FROM review_cache WHERE fingerprint = ?`, key); err == nil {
			c.evictions.Add(1)
		}
		c.misses.Add(1)
		return models.ReviewResult{}, false
	}

	c.hits.Add(1)
	return models.ReviewResult{
		Verdict: verdict,
		Model:   model,
		Latency: time.Duration(latencyMS) * time.Millisecond,
	}, true
}

// Put inserts or replaces the entry for key, stamping the current time and
// the fixed TTL. Last writer wins on a race.
func (c *Cache) Put(key string, res models.ReviewResult) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO review_cache (fingerprint, verdict, model, latency_ms, created_at, ttl_seconds)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, res.Verdict, res.Model, res.Latency.Milliseconds(), time.Now().UTC(), int64(c.ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate removes the entry for key, if present.
func (c *Cache) Invalidate(key string) error {
	_, err := c.db.Exec(`DELETE FROM review_cache WHERE fingerprint = ?`, key)
	if err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Sweep removes all expired entries and returns how many were removed.
// Lazy eviction in Get makes this optional; it bounds memory for keys that
// are never looked up again.
func (c *Cache) Sweep() (int64, error) {
	res, err := c.db.Exec(
		`DELETE FROM review_cache WHERE (julianday('now') - julianday(created_at)) * 86400 >= ttl_seconds`,
	)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	c.evictions.Add(n)
	return n, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM review_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Stats returns the cache counters.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM review_cache`).Scan(&count); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		TotalEntries: count,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Evictions:    c.evictions.Load(),
	}, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
