package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errs      *stageErrors
	opts      []model.PipelineOption
	startTime time.Time
}

// New creates a new pipeline. Steps inherit ctx and stop when it is cancelled.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errs:      &stageErrors{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline blocks until every stage has returned. The first error cancels
// the pipeline and is the one returned.
func waitForPipeline(cancel context.CancelFunc, stages ...stageErrChan) error {
	var first error

	for err := range drain(stages...) {
		if err != nil && first == nil {
			first = err

			cancel()
		}
	}

	return first
}

// Run waits for every step to finish and returns the first error.
func (p *Pipeline) Run() error {
	defer p.cancel()

	err := waitForPipeline(p.cancel, p.errs.snapshot()...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
