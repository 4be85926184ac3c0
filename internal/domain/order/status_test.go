package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Rank(t *testing.T) {
	assert.Equal(t, 0, StatusPending.Rank())
	assert.Equal(t, 1, StatusConfirmed.Rank())
	assert.Equal(t, 2, StatusPrepared.Rank())
	assert.Equal(t, 3, StatusOutForDelivery.Rank())
	assert.Equal(t, 4, StatusCompleted.Rank())
	assert.Equal(t, -1, StatusCancelled.Rank())
	assert.Less(t, Status("bogus").Rank(), StatusCancelled.Rank())
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPrepared, true},
		{StatusPrepared, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusCompleted, true},
		{StatusPending, StatusPrepared, false},
		{StatusPrepared, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
		{StatusPending, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, Status("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("outfordelivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, s)

	_, err = ParseStatus("shipped")
	require.Error(t, err)
}
