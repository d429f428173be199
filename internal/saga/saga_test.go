package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Execute
// ============================================

func TestExecute_AllStepsRunInOrder(t *testing.T) {
	var order []string
	steps := []Step{
		{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return nil }},
		{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
		{Name: "third", Run: func(context.Context) error { order = append(order, "third"); return nil }},
	}

	err := Execute(context.Background(), steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestExecute_FailureCompensatesInReverse(t *testing.T) {
	var compensated []string
	boom := errors.New("durable store down")
	steps := []Step{
		{
			Name:       "reserve-stock",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "reserve-stock"); return nil },
		},
		{
			Name:       "write-cache",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "write-cache"); return nil },
		},
		{
			Name: "persist-order",
			Run:  func(context.Context) error { return boom },
			Compensate: func(context.Context) error {
				t.Fatal("failed step must not be compensated")
				return nil
			},
		},
	}

	err := Execute(context.Background(), steps)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "persist-order")
	assert.Equal(t, []string{"write-cache", "reserve-stock"}, compensated)
}

func TestExecute_CompensationFailureDoesNotStopOthers(t *testing.T) {
	var compensated []string
	steps := []Step{
		{
			Name:       "first",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "first"); return nil },
		},
		{
			Name:       "second",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return errors.New("undo failed") },
		},
		{Name: "third", Run: func(context.Context) error { return errors.New("boom") }},
	}

	err := Execute(context.Background(), steps)

	require.Error(t, err)
	assert.Equal(t, []string{"first"}, compensated)
}

func TestExecute_NilCompensateSkipped(t *testing.T) {
	steps := []Step{
		{Name: "no-undo", Run: func(context.Context) error { return nil }},
		{Name: "fails", Run: func(context.Context) error { return errors.New("boom") }},
	}

	assert.Error(t, Execute(context.Background(), steps))
}

func TestExecute_EmptySequence(t *testing.T) {
	assert.NoError(t, Execute(context.Background(), nil))
}
