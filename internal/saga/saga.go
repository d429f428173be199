// Package saga runs multi-store sequences with best-effort compensation.
//
// There are no distributed transactions across the cache and the durable
// store. A sequence of steps runs in order; when a step fails, the
// compensations of every previously completed step run in reverse order.
// Compensation failures are logged and do not stop the remaining
// compensations from running.
package saga

import (
	"context"
	"fmt"
	"log"
)

type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Execute runs steps in order. On the first failure it compensates the
// completed steps in reverse and returns the failing step's error wrapped
// with the step name.
func Execute(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if err := step.Run(ctx); err != nil {
			compensate(ctx, steps[:i])
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

func compensate(ctx context.Context, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.Printf("[Saga] Compensation for step %s failed: %v", step.Name, err)
		}
	}
}
