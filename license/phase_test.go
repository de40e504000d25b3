package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseAtBoundaries(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) time.Time { return first.Add(d) }

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"just started", at(time.Minute), PhaseTrialActive},
		{"day nine", at(9 * day), PhaseTrialActive},
		{"just past trial minus five", at(9*day + time.Second), PhaseTrialWarning},
		{"day twelve", at(12 * day), PhaseTrialWarning},
		{"last instant of trial", at(14 * day), PhaseTrialWarning},
		{"trial plus epsilon", at(14*day + time.Second), PhaseTrialExpired},
		{"long expired", at(400 * day), PhaseTrialExpired},
		{"clock behind first use", at(-time.Hour), PhaseTrialActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseAt(first, tt.now, 14))
		})
	}
}

func TestPhaseAtNoFirstUse(t *testing.T) {
	assert.Equal(t, PhaseNew, PhaseAt(time.Time{}, time.Now(), 14))
}

func TestPhaseNeverRevertsAsTimeAdvances(t *testing.T) {
	order := map[Phase]int{PhaseTrialActive: 0, PhaseTrialWarning: 1, PhaseTrialExpired: 2}
	first := time.Unix(1_700_000_000, 0)

	prev := PhaseAt(first, first, 14)
	for h := 1; h <= 24*20; h++ {
		cur := PhaseAt(first, first.Add(time.Duration(h)*time.Hour), 14)
		assert.GreaterOrEqual(t, order[cur], order[prev], "hour %d", h)
		prev = cur
	}
	assert.Equal(t, PhaseTrialExpired, prev)
}

func TestShortTrialSkipsActive(t *testing.T) {
	first := time.Unix(1_700_000_000, 0)
	assert.Equal(t, PhaseTrialWarning, PhaseAt(first, first.Add(time.Hour), 3))
}

func TestTrialRemaining(t *testing.T) {
	first := time.Unix(1_700_000_000, 0)
	assert.InDelta(t, 4.0, TrialRemaining(first, first.Add(10*day), 14), 1e-9)
	assert.Zero(t, TrialRemaining(first, first.Add(20*day), 14))
}
