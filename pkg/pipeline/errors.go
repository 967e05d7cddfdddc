package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrInputMustBeSet    = errors.New("input must be set")
)

// StageError is returned by Run when a stage fails. It unwraps to the stage error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageErrors is the set of stage error channels a pipeline waits on.
type stageErrors struct {
	mu     sync.Mutex
	stages []stageErrChan
}

type stageErrChan struct {
	stage string
	c     <-chan error
}

func (se *stageErrors) register(stage string, c <-chan error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.stages = append(se.stages, stageErrChan{stage: stage, c: c})
}

func (se *stageErrors) snapshot() []stageErrChan {
	se.mu.Lock()
	defer se.mu.Unlock()

	return append([]stageErrChan(nil), se.stages...)
}

// drain forwards every error of every stage to a single channel, tagged with the
// stage that produced it. The channel is closed once all stage channels are closed,
// which is when all stages have returned. Stages without an error channel are skipped.
func drain(stages ...stageErrChan) <-chan error {
	out := make(chan error, len(stages))

	var wg sync.WaitGroup
	for _, s := range stages {
		if s.c == nil {
			continue
		}

		wg.Add(1)
		go func(s stageErrChan) {
			defer wg.Done()
			for err := range s.c {
				out <- &StageError{Stage: s.stage, Err: err}
			}
		}(s)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
