package models

// CacheStats reports review cache counters. Hits, misses and evictions are
// monotonic since process start; TotalEntries is the current row count.
type CacheStats struct {
	TotalEntries int64 `json:"total_entries"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Evictions    int64 `json:"evictions"`
}
