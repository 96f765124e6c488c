package model

import "fmt"

// ProgressPhase is the phase of a monitored long running operation.
type ProgressPhase string

const (
	ProgressPhaseIdle      ProgressPhase = "idle"
	ProgressPhasePolling   ProgressPhase = "polling"
	ProgressPhaseCompleted ProgressPhase = "completed"
	ProgressPhaseFailed    ProgressPhase = "failed"
	ProgressPhaseTimedOut  ProgressPhase = "timed_out"
)

// ProgressState is the state of a progress monitoring session.
type ProgressState struct {
	Phase   ProgressPhase
	Percent int
	Reason  string
}

// Terminal returns true when the state can't transition anymore.
func (s ProgressState) Terminal() bool {
	switch s.Phase {
	case ProgressPhaseCompleted, ProgressPhaseFailed, ProgressPhaseTimedOut:
		return true
	}
	return false
}

func (s ProgressState) String() string {
	switch s.Phase {
	case ProgressPhasePolling:
		return fmt.Sprintf("polling(%d%%)", s.Percent)
	case ProgressPhaseFailed:
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return string(s.Phase)
}
