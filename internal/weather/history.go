// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package weather

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// HistoryCap is the maximum number of cities kept in a HistoryCache.
const HistoryCap = 10

// Entry is one city in the query history.
type Entry struct {
	Key           string    `json:"key"`
	City          string    `json:"city"`
	LastWeather   Snapshot  `json:"last_weather"`
	QueryCount    int       `json:"query_count"`
	LastQueryTime time.Time `json:"last_query_time"`
}

// Persister stores the full history after each mutation.
type Persister interface {
	SaveHistory(ctx context.Context, entries []Entry) error
}

// HistoryCache is a bounded, deduplicated record of recent city queries,
// most recently queried first. Recency decides position; QueryCount is
// tracked independently and never reorders entries on its own.
//
// HistoryCache is safe for concurrent use.
type HistoryCache struct {
	mu        sync.Mutex
	entries   []Entry
	persister Persister
}

// HistoryOption configures a HistoryCache.
type HistoryOption func(*HistoryCache)

// WithPersister makes the cache write through to p after every mutation.
// Persist failures are logged and never roll back the in-memory change.
func WithPersister(p Persister) HistoryOption {
	return func(c *HistoryCache) {
		c.persister = p
	}
}

// NewHistoryCache returns an empty cache.
func NewHistoryCache(opts ...HistoryOption) *HistoryCache {
	c := &HistoryCache{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeCity folds width, case and whitespace so that "  New   York",
// "new york" and "ｎｅｗ　ｙｏｒｋ" share one key.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(city)), " "))
}

// Record registers a query for city. An existing entry is bumped to the front
// with its count incremented; a new entry is inserted at the front and the
// least recently queried entry is evicted once the cache exceeds HistoryCap.
func (c *HistoryCache) Record(ctx context.Context, city string, snap Snapshot, now time.Time) (Entry, error) {
	key := NormalizeCity(city)
	if key == "" {
		return Entry{}, xzerr.New(xzerr.CodeWeatherCityInvalid, "city must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{Key: key}
	if idx := c.indexLocked(key); idx >= 0 {
		entry = c.entries[idx]
		c.entries = slices.Delete(c.entries, idx, idx+1)
	}
	entry.City = strings.Join(strings.Fields(city), " ")
	entry.LastWeather = snap.Clone()
	entry.QueryCount++
	entry.LastQueryTime = now

	c.entries = slices.Insert(c.entries, 0, entry)
	if len(c.entries) > HistoryCap {
		evicted := c.entries[HistoryCap:]
		for _, e := range evicted {
			slog.Debug("weather history evicted city", "city", e.City, "query_count", e.QueryCount)
		}
		c.entries = slices.Clip(c.entries[:HistoryCap])
	}

	c.persistLocked(ctx)
	return cloneEntry(entry), nil
}

// MostFrequent returns the entry with the highest QueryCount. Ties go to the
// latest LastQueryTime, then to the earlier list position.
func (c *HistoryCache) MostFrequent() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return Entry{}, false
	}

	best := 0
	for i := 1; i < len(c.entries); i++ {
		e, b := c.entries[i], c.entries[best]
		if e.QueryCount > b.QueryCount ||
			(e.QueryCount == b.QueryCount && e.LastQueryTime.After(b.LastQueryTime)) {
			best = i
		}
	}
	return cloneEntry(c.entries[best]), true
}

// Lookup returns the entry stored for city, if any.
func (c *HistoryCache) Lookup(city string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(NormalizeCity(city))
	if idx < 0 {
		return Entry{}, false
	}
	return cloneEntry(c.entries[idx]), true
}

// List returns a copy of the history, most recently queried first.
func (c *HistoryCache) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Len returns the number of cities in the history.
func (c *HistoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the history.
func (c *HistoryCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.persistLocked(ctx)
}

// Restore replaces the in-memory history with previously persisted entries.
// Entries are re-keyed, duplicates after the first occurrence are dropped and
// the result is trimmed to HistoryCap. Restore does not write through.
func (c *HistoryCache) Restore(entries []Entry) {
	restored := make([]Entry, 0, min(len(entries), HistoryCap))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		source := e.City
		if source == "" {
			source = e.Key
		}
		key := NormalizeCity(source)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		e.Key = key
		if e.City == "" {
			e.City = source
		}
		if e.QueryCount < 1 {
			e.QueryCount = 1
		}
		restored = append(restored, cloneEntry(e))
		if len(restored) == HistoryCap {
			break
		}
	}

	c.mu.Lock()
	c.entries = restored
	c.mu.Unlock()
}

func (c *HistoryCache) indexLocked(key string) int {
	return slices.IndexFunc(c.entries, func(e Entry) bool { return e.Key == key })
}

func (c *HistoryCache) persistLocked(ctx context.Context) {
	if c.persister == nil {
		return
	}
	snapshot := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		snapshot[i] = cloneEntry(e)
	}
	if err := c.persister.SaveHistory(ctx, snapshot); err != nil {
		slog.Warn("persisting weather history failed", "entries", len(snapshot), "error", err)
	}
}

func cloneEntry(e Entry) Entry {
	e.LastWeather = e.LastWeather.Clone()
	return e
}
