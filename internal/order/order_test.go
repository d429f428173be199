package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPendingPayment, StatusPaid, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusCompleted, false},
		{StatusPaid, StatusCompleted, true},
		{StatusPaid, StatusCancelled, false},
		{StatusPaid, StatusPaid, false},
		{StatusCompleted, StatusPaid, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tc := range cases {
		o := &Order{Status: tc.from}
		assert.Equal(t, tc.allowed, o.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionErrorCarriesStatuses(t *testing.T) {
	o := &Order{OrderID: "20260107103000000001", Status: StatusCancelled}

	err := o.transitionError(StatusPaid)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), string(StatusCancelled))
	assert.Contains(t, err.Error(), string(StatusPaid))
}
