package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to booking.Status
		want     bool
	}{
		{booking.StatusPending, booking.StatusAssigned, true},
		{booking.StatusPending, booking.StatusWithdrawBefore24, true},
		{booking.StatusPending, booking.StatusTimedOut, true},
		{booking.StatusAssigned, booking.StatusStarted, true},
		{booking.StatusAssigned, booking.StatusPending, true},
		{booking.StatusAssigned, booking.StatusWithdrawAfter24, true},
		{booking.StatusStarted, booking.StatusCompleted, true},
		{booking.StatusStarted, booking.StatusNotCarriedOutCustomer, true},
		{booking.StatusPending, booking.StatusCompleted, false},
		{booking.StatusPending, booking.StatusStarted, false},
		{booking.StatusStarted, booking.StatusPending, false},
		{booking.StatusStarted, booking.StatusWithdrawBefore24, false},
		{booking.StatusCompleted, booking.StatusPending, false},
		{booking.StatusTimedOut, booking.StatusAssigned, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, booking.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanAdminTransition(t *testing.T) {
	tests := []struct {
		from, to booking.Status
		want     bool
	}{
		{booking.StatusPending, booking.StatusAssigned, true},
		{booking.StatusPending, booking.StatusTimedOut, true},
		{booking.StatusAssigned, booking.StatusWithdrawBefore24, true},
		{booking.StatusAssigned, booking.StatusCompleted, false},
		{booking.StatusStarted, booking.StatusCompleted, true},
		{booking.StatusStarted, booking.StatusAssigned, false},
		{booking.StatusWithdrawAfter24, booking.StatusTimedOut, true},
		{booking.StatusWithdrawBefore24, booking.StatusTimedOut, false},
		{booking.StatusTimedOut, booking.StatusAssigned, true},
		{booking.StatusCompleted, booking.StatusTimedOut, true},
		{booking.StatusNotCarriedOutCustomer, booking.StatusTimedOut, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, booking.CanAdminTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []booking.Status{
		booking.StatusCompleted,
		booking.StatusWithdrawBefore24,
		booking.StatusWithdrawAfter24,
		booking.StatusTimedOut,
		booking.StatusNotCarriedOutCustomer,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
		assert.True(t, s.Valid(), s)
	}

	for _, s := range []booking.Status{booking.StatusPending, booking.StatusAssigned, booking.StatusStarted} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.Valid(), s)
	}

	assert.False(t, booking.Status("archived").Valid())
}

func TestIsAdminTarget(t *testing.T) {
	assert.True(t, booking.IsAdminTarget(booking.StatusCompleted))
	assert.True(t, booking.IsAdminTarget(booking.StatusAssigned))
	assert.False(t, booking.IsAdminTarget(booking.StatusPending))
	assert.False(t, booking.IsAdminTarget(booking.StatusStarted))
}
