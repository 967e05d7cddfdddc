package pipeline

import "github.com/askiada/fuel-migrate/pkg/pipeline/model"

type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many elements a step processes at the same time.
// Output order is only preserved with a single worker.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}
