// Package license implements the trial and fee gate that runs before a
// payment leaves the dispatcher.
package license

import "time"

// Phase is the licensing state of an installation at a point in time.
type Phase string

const (
	PhaseNew          Phase = "New"
	PhaseTrialActive  Phase = "TrialActive"
	PhaseTrialWarning Phase = "TrialWarning"
	PhaseTrialExpired Phase = "TrialExpired"
)

// WarningWindowDays is how long before expiry the gate starts warning.
const WarningWindowDays = 5

const day = 24 * time.Hour

// DaysSince returns the fractional number of days between first and now.
// A now before first counts as zero.
func DaysSince(first, now time.Time) float64 {
	elapsed := now.Sub(first)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Hours() / 24
}

// PhaseAt classifies an installation first used at first. A zero first means
// no first use was ever recorded.
func PhaseAt(first, now time.Time, trialDays int) Phase {
	if first.IsZero() {
		return PhaseNew
	}
	days := DaysSince(first, now)
	switch {
	case days <= float64(trialDays-WarningWindowDays):
		return PhaseTrialActive
	case days <= float64(trialDays):
		return PhaseTrialWarning
	default:
		return PhaseTrialExpired
	}
}

// TrialRemaining returns the days left in the trial, never negative.
func TrialRemaining(first, now time.Time, trialDays int) float64 {
	left := float64(trialDays) - DaysSince(first, now)
	if left < 0 {
		return 0
	}
	return left
}
