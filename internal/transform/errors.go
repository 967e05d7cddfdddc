package transform

import "github.com/pkg/errors"

var (
	// ErrUnsafePath indicates an archive entry or a model name would escape its directory.
	ErrUnsafePath = errors.New("transform: unsafe path")

	// ErrArchive indicates an archive could not be read.
	ErrArchive = errors.New("transform: invalid archive")

	// ErrStorage indicates the model directory could not be written.
	ErrStorage = errors.New("transform: storage error")
)
