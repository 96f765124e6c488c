package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

func TestSystemFactIsStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		capturedAt time.Time
		maxAge     time.Duration
		expStale   bool
	}{
		"A fresh fact should not be stale.": {
			capturedAt: now.Add(-1 * time.Minute),
			maxAge:     5 * time.Minute,
			expStale:   false,
		},

		"An old fact should be stale.": {
			capturedAt: now.Add(-10 * time.Minute),
			maxAge:     5 * time.Minute,
			expStale:   true,
		},

		"Without max age facts should never be stale.": {
			capturedAt: now.Add(-100 * time.Hour),
			expStale:   false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := model.SystemFact{Key: "kernel_version", Value: "5.14.0-427.24.1.el9_4.x86_64", CapturedAt: test.capturedAt}
			assert.Equal(t, test.expStale, f.IsStale(now, test.maxAge))
		})
	}
}
