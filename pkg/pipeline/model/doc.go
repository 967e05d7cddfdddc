// Package model holds the types shared by the pipeline package and its options:
// the step descriptors passed between stages and the hook interface a pipeline
// option implements to observe them.
package model
