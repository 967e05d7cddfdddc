package model

type stepType string

const (
	RootStepType   stepType = "root"
	NormalStepType stepType = "step"
	SinkStepType   stepType = "sink"
)

// StepInfo describes a stage of the pipeline.
type StepInfo struct {
	Type       stepType
	Name       string
	Concurrent int
}

// StartStep and EndStep are the virtual stages every pipeline begins and ends with.
var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is a stage and the channel its results are pushed to.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}
