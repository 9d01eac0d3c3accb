package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/utils"
)

// sagaStep is one forward write and the write that undoes it.
type sagaStep struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSaga runs steps in order. When a step fails the committed steps are undone
// in reverse order and the step error is returned. If an undo fails too the
// result is a partial failure carrying both errors, and the rows need manual
// reconciliation.
func (e *Engine) runSaga(ctx context.Context, name string, steps []sagaStep) error {
	for i, step := range steps {
		err := step.do(ctx)
		if err == nil {
			continue
		}
		config.LogError(e.logger, "Saga.go", name, step.name, nil, err)
		if compErr := e.compensate(ctx, name, steps[:i]); compErr != nil {
			return utils.PartialFailureError(fmt.Sprintf("%s failed at %s and could not be rolled back", name, step.name), err, compErr)
		}
		return err
	}
	return nil
}

func (e *Engine) compensate(ctx context.Context, name string, done []sagaStep) error {
	// undo even when the request was cancelled
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.undo == nil {
			continue
		}
		if err := step.undo(ctx); err != nil {
			config.LogError(e.logger, "Saga.go", name, "undo "+step.name, nil, err)
			errs = append(errs, fmt.Errorf("undo %s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}
