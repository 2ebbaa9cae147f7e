// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package provider_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func newTracker(t *testing.T, cooldown time.Duration) *provider.HealthTracker {
	t.Helper()
	h, err := provider.NewHealthTracker(cooldown)
	require.NoError(t, err)
	return h
}

func TestNewHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := provider.NewHealthTracker(d)
		require.Error(t, err)
		assert.True(t, xzerr.IsInvalidInput(err))
	}
}

func TestHealthTracker_FailureAndRecovery(t *testing.T) {
	h := newTracker(t, 30*time.Second)
	assert.True(t, h.IsHealthy())

	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	h.RecordSuccess()
	assert.True(t, h.IsHealthy())
}

func TestHealthTracker_CooldownBoundary(t *testing.T) {
	cooldown := 10 * time.Second
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		elapsed     time.Duration
		wantHealthy bool
	}{
		{name: "before cooldown", elapsed: 9 * time.Second, wantHealthy: false},
		{name: "at exact cooldown boundary", elapsed: 10 * time.Second, wantHealthy: true},
		{name: "after cooldown", elapsed: 11 * time.Second, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTracker(t, cooldown)
			h.SetNowFunc(func() time.Time { return now })
			h.RecordFailure()

			h.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantHealthy, h.IsHealthy())
		})
	}
}

func TestHealthTracker_Metrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	h := newTracker(t, time.Minute)
	h.SetNowFunc(func() time.Time { return now })

	m := h.HealthMetrics()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.CooldownUntil)

	h.Observe(errors.New("boom"))
	h.Observe(errors.New("boom"))

	m = h.HealthMetrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(2), m.FailureCount)
	require.NotNil(t, m.LastFailureAt)
	assert.Equal(t, now, *m.LastFailureAt)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(time.Minute), *m.CooldownUntil)

	h.Observe(nil)
	m = h.HealthMetrics()
	assert.True(t, m.Available)
	assert.Nil(t, m.CooldownUntil)
	assert.Equal(t, int64(2), m.FailureCount, "failure count is cumulative")
}

func TestHealthTracker_ConcurrentRecordCalls(t *testing.T) {
	h := newTracker(t, 30*time.Second)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for range 100 {
				h.RecordFailure()
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				h.RecordSuccess()
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = h.HealthMetrics()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), h.HealthMetrics().FailureCount)
}
