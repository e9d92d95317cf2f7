package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeedEvent_OK(t *testing.T) {
	now := time.Date(2026, 2, 19, 18, 0, 0, 0, time.UTC)
	occurred := now.Add(-time.Hour)

	e, err := NewDeedEvent("", "u1", "fajr", 10, occurred, now)
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID) // generated when absent
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, int64(10), e.PointValue)
	assert.Equal(t, occurred, e.OccurredAt)
	assert.Equal(t, now, e.RecordedAt)
}

func TestNewDeedEvent_Rejections(t *testing.T) {
	now := time.Date(2026, 2, 19, 18, 0, 0, 0, time.UTC)
	ok := now.Add(-time.Hour)

	cases := []struct {
		name     string
		userID   string
		deedID   string
		points   int64
		occurred time.Time
	}{
		{"missing user", "", "fajr", 10, ok},
		{"missing deed", "u1", "", 10, ok},
		{"zero points", "u1", "fajr", 0, ok},
		{"negative points", "u1", "fajr", -5, ok},
		{"zero occurred_at", "u1", "fajr", 10, time.Time{}},
		{"far future occurred_at", "u1", "fajr", 10, now.Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDeedEvent("", tc.userID, tc.deedID, tc.points, tc.occurred, now)
			require.Error(t, err)

			var ae *AppError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, CodeValidation, ae.Code)
		})
	}
}

func TestNewDeedEvent_SmallFutureSkewAllowed(t *testing.T) {
	now := time.Date(2026, 2, 19, 18, 0, 0, 0, time.UTC)

	_, err := NewDeedEvent("", "u1", "fajr", 10, now.Add(2*time.Minute), now)
	assert.NoError(t, err)
}

func TestValidate_QueueEvent(t *testing.T) {
	e := &DeedEvent{ID: "e1", UserID: "u1", DeedID: "fajr", PointValue: 10,
		OccurredAt: time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)}
	assert.NoError(t, e.Validate())

	e.PointValue = -1
	assert.Error(t, e.Validate())
}
