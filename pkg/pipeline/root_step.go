package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

func prepareStep(pipe *Pipeline, parentStep, step *model.StepInfo) error {
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(parentStep, step)
		if err != nil {
			return errors.Wrap(err, "unable to run before step function")
		}
	}

	return nil
}

// stepDetails returns the details of step, defaulting to the start step for
// channels built by hand.
func stepDetails[O any](step *model.Step[O]) *model.StepInfo {
	if step.Details == nil {
		return model.StartStep.Details
	}

	return step.Details
}

// AddRootStep adds the step feeding the pipeline. stepFn pushes elements to rootChan and
// must stop sending once ctx is done. rootChan is closed when stepFn returns.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}

	err := prepareStep(p, model.StartStep.Details, step.Details)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := stepFn(p.ctx, step.Output)
		if err != nil {
			errC <- err
		}
	}()
	p.errs.register(name, errC)

	return step, nil
}
