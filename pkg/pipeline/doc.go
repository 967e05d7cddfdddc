// Package pipeline runs a batch job as a chain of stages connected by channels.
//
// A pipeline starts with a root step producing elements, goes through any number of
// one-to-one steps transforming them, and ends with a sink consuming them. Every stage
// runs in its own goroutine and a step can process several elements concurrently.
//
// The pipeline stops on the first error: the shared context is cancelled, every stage
// returns, and Run reports the error prefixed with the name of the stage that failed.
package pipeline
