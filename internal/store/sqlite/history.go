// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

var _ store.HistoryStore = (*HistoryStore)(nil)

// HistoryStore persists the weather history list in cache order.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStoreWithDB wraps an already migrated handle.
func NewHistoryStoreWithDB(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveHistory replaces the stored list with entries, most recent first.
func (h *HistoryStore) SaveHistory(ctx context.Context, entries []weather.Entry) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeWeatherHistoryPersist, "beginning history transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_history`); err != nil {
		return xzerr.Wrap(err, xzerr.CodeWeatherHistoryPersist, "clearing history")
	}

	const q = `INSERT INTO weather_history (position, key, city, last_weather, query_count, last_query_time)
VALUES (?, ?, ?, ?, ?, ?)`
	for i, e := range entries {
		snap, err := json.Marshal(e.LastWeather)
		if err != nil {
			return xzerr.Wrap(err, xzerr.CodeWeatherHistoryPersist, "encoding snapshot",
				xzerr.FieldCity(e.City))
		}
		if _, err := tx.ExecContext(ctx, q, i, e.Key, e.City, string(snap), e.QueryCount, formatTime(e.LastQueryTime)); err != nil {
			return xzerr.Wrap(err, xzerr.CodeWeatherHistoryPersist, "inserting history entry",
				xzerr.FieldCity(e.City))
		}
	}

	if err := tx.Commit(); err != nil {
		return xzerr.Wrap(err, xzerr.CodeWeatherHistoryPersist, "committing history")
	}
	return nil
}

// LoadHistory returns the stored entries in cache order.
func (h *HistoryStore) LoadHistory(ctx context.Context) ([]weather.Entry, error) {
	const q = `SELECT key, city, last_weather, query_count, last_query_time
FROM weather_history ORDER BY position ASC`

	rows, err := h.db.QueryContext(ctx, q)
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "loading history")
	}
	defer func() { _ = rows.Close() }()

	var entries []weather.Entry
	for rows.Next() {
		var (
			e         weather.Entry
			snap      string
			queriedAt string
		)
		if err := rows.Scan(&e.Key, &e.City, &snap, &e.QueryCount, &queriedAt); err != nil {
			return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "scanning history row")
		}
		if err := json.Unmarshal([]byte(snap), &e.LastWeather); err != nil {
			return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "decoding snapshot",
				xzerr.FieldCity(e.City))
		}
		e.LastQueryTime = parseTime(queriedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "iterating history")
	}
	return entries, nil
}
