package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

func runSink[I any](pipe *Pipeline, input *model.Step[I], step *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	for {
		startInputChan := time.Now()
		select {
		case <-pipe.ctx.Done():
			return pipe.ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				for _, opt := range pipe.opts {
					err := opt.AfterSink(step.Details, time.Since(pipe.startTime))
					if err != nil {
						return errors.Wrap(err, "unable to run after sink function")
					}
				}

				return nil
			}

			endInputChan := time.Since(startInputChan)
			startFn := time.Now()

			err := sinkFn(pipe.ctx, in)
			if err != nil {
				return err
			}

			endFn := time.Since(startFn)
			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(stepDetails(input), step.Details, endInputChan, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}

// AddSink adds the final step of the pipeline, consuming every element of input.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}

	if input == nil {
		return ErrInputMustBeSet
	}

	step := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.SinkStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(stepDetails(input), step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run before sink function")
		}
	}

	errC := make(chan error, 1)

	go func() {
		defer close(errC)

		err := runSink(pipe, input, step, sinkFn)
		if err != nil {
			errC <- err
		}
	}()
	pipe.errs.register(name, errC)

	return nil
}
