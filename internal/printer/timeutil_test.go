package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhoujuxi2028/consoleqa/internal/printer"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		time time.Time
		exp  string
	}{
		"Under a second should be just now":  {time: now.Add(-500 * time.Millisecond), exp: "just now"},
		"Future times should be just now":    {time: now.Add(time.Minute), exp: "just now"},
		"One second should be singular":      {time: now.Add(-time.Second), exp: "1 second ago"},
		"Seconds should be plural":           {time: now.Add(-30 * time.Second), exp: "30 seconds ago"},
		"Minutes should truncate":            {time: now.Add(-(2*time.Minute + 59*time.Second)), exp: "2 minutes ago"},
		"One hour should be singular":        {time: now.Add(-time.Hour), exp: "1 hour ago"},
		"Days should be the biggest unit":    {time: now.Add(-50 * 24 * time.Hour), exp: "50 days ago"},
		"Other time zones should be handled": {time: now.Add(-5 * time.Hour).In(time.FixedZone("X", 3600)), exp: "5 hours ago"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.TimeAgo(test.time, now))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 10, 16, 12, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2026-10-16 10:30:05 UTC", printer.FormatTimestamp(ts))
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		d   time.Duration
		exp string
	}{
		"Zero should be unknown":           {d: 0, exp: "-"},
		"Negative should be unknown":       {d: -time.Second, exp: "-"},
		"Short should keep milliseconds":   {d: 1500*time.Millisecond + 300*time.Microsecond, exp: "1.5s"},
		"Long should round to the seconds": {d: 12*time.Minute + 40*time.Second + 700*time.Millisecond, exp: "12m41s"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.FormatDuration(test.d))
		})
	}
}
