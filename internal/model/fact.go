package model

import "time"

// SystemFact is a single datum captured from the system under test.
type SystemFact struct {
	Key        string
	Value      string
	CapturedAt time.Time
}

// Age returns how old the fact is at the given time.
func (f SystemFact) Age(now time.Time) time.Duration {
	return now.Sub(f.CapturedAt)
}

// IsStale returns true when the fact is older than maxAge. A zero maxAge
// never considers facts stale.
func (f SystemFact) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return f.Age(now) > maxAge
}
