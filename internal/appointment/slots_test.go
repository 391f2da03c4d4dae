package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSlots(t *testing.T) {
	v := DefaultSlots()
	labels := v.Labels()

	require.Len(t, labels, 24)
	assert.Equal(t, "08:00", labels[0])
	assert.Equal(t, "19:30", labels[len(labels)-1])
	assert.True(t, v.Contains("09:00"))
	assert.False(t, v.Contains("20:00"))
	assert.False(t, v.Contains("09:15"))
	assert.False(t, v.Contains("9:00"))
}

func TestNewSlotVocabularyRejectsBadInput(t *testing.T) {
	_, err := NewSlotVocabulary("10:00", "09:00", time.Hour)
	assert.Error(t, err)

	_, err = NewSlotVocabulary("nine", "17:00", time.Hour)
	assert.Error(t, err)

	_, err = NewSlotVocabulary("09:00", "17:00", time.Second)
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusNoShow, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusCompleted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2025")
	assert.ErrorIs(t, err, ErrValidation)
}
