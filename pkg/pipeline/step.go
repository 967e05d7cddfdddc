package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

func sequentialOneToOneFn[I any, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return err
			}

			endFn := time.Since(startFn)

			// we check the context again to make sure all go routines currently running
			// stop to add new elements to the pipeline
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output.Output <- out:
				for _, opt := range opts {
					err := opt.OnStepOutput(stepDetails(input), output.Details, time.Since(start)-endFn, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on step output function")
					}
				}
			}
		}
	}
}

func concurrentOneToOneFn[I any, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// each consumer stops as soon as an error happens
	for goIdx := 0; goIdx < output.Details.Concurrent; goIdx++ {
		errGrp.Go(func() error {
			return errors.WithMessagef(sequentialOneToOneFn(dCtx, opts, input, output, oneToOneFn), "go routine %d", goIdx)
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I any, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error)) error {
	if output.Details.Concurrent < 1 {
		output.Details.Concurrent = 1
	}

	if output.Details.Concurrent == 1 {
		return sequentialOneToOneFn(ctx, opts, input, output, oneToOneFn)
	}

	return concurrentOneToOneFn(ctx, opts, input, output, oneToOneFn)
}

// AddStepOneToOne adds a step turning every element of input into one element of its output.
func AddStepOneToOne[I any, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}

	err := prepareStep(p, stepDetails(input), step.Details)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := runOneToOne(p.ctx, p.opts, input, step, oneToOneFn)
		if err != nil {
			errC <- err
		}
	}()
	p.errs.register(name, errC)

	return step, nil
}
