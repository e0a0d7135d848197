package grading

import (
	"classroom_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_ScenarioTimeline(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	start := base.Add(10 * time.Minute)
	end := base.Add(70 * time.Minute)

	status := model.StatusAssigned

	next, changed := NextStatus(status, start, end, base.Add(5*time.Minute))
	assert.False(t, changed)
	assert.Equal(t, model.StatusAssigned, next)

	status, changed = NextStatus(status, start, end, base.Add(30*time.Minute))
	assert.True(t, changed)
	assert.Equal(t, model.StatusActive, status)

	status, changed = NextStatus(status, start, end, base.Add(90*time.Minute))
	assert.True(t, changed)
	assert.Equal(t, model.StatusCompleted, status)
}

func TestNextStatus_Boundaries(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name   string
		status model.AssessmentStatus
		now    time.Time
		want   model.AssessmentStatus
	}{
		{"assigned exactly at start stays", model.StatusAssigned, start, model.StatusAssigned},
		{"assigned just after start", model.StatusAssigned, start.Add(time.Nanosecond), model.StatusActive},
		{"assigned exactly at end completes", model.StatusAssigned, end, model.StatusCompleted},
		{"active before end stays", model.StatusActive, end.Add(-time.Nanosecond), model.StatusActive},
		{"active exactly at end", model.StatusActive, end, model.StatusCompleted},
		{"draft never advances", model.StatusDraft, end.Add(time.Hour), model.StatusDraft},
		{"completed is terminal", model.StatusCompleted, start.Add(time.Minute), model.StatusCompleted},
		{"canceled is untouched", model.StatusCanceled, start.Add(time.Minute), model.StatusCanceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := NextStatus(tc.status, start, end, tc.now)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextStatus_IdempotentAndMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	statuses := []model.AssessmentStatus{model.StatusDraft, model.StatusAssigned, model.StatusActive, model.StatusCompleted}

	for offset := -2 * time.Hour; offset <= 3*time.Hour; offset += 15 * time.Minute {
		now := start.Add(offset)
		for _, s := range statuses {
			once, _ := NextStatus(s, start, end, now)
			twice, changed := NextStatus(once, start, end, now)
			assert.Equal(t, once, twice, "status %s at %s", s, offset)
			assert.False(t, changed)
			assert.GreaterOrEqual(t, once.Rank(), s.Rank())
		}
	}
}
