package transform

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// MetadataFile describes a model to the Fuel server.
	MetadataFile = "metadata.pbtxt"
	// ModelConfigFile is the legacy model description MetadataFile is derived from.
	ModelConfigFile = "model.config"
)

// MetadataConverter derives the content of MetadataFile from a ModelConfigFile.
type MetadataConverter interface {
	Convert(ctx context.Context, modelConfig string) ([]byte, error)
}

// ConverterFunc adapts a function to the MetadataConverter interface.
type ConverterFunc func(ctx context.Context, modelConfig string) ([]byte, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, modelConfig string) ([]byte, error) {
	return f(ctx, modelConfig)
}

// EnsureMetadata writes MetadataFile in dir from its ModelConfigFile when it does not
// exist yet. It reports whether the file was generated; an existing file is never
// touched.
func EnsureMetadata(ctx context.Context, dir string, converter MetadataConverter) (bool, error) {
	metadata := filepath.Join(dir, MetadataFile)

	_, err := os.Stat(metadata)
	if err == nil {
		return false, nil
	}

	if !os.IsNotExist(err) {
		return false, errors.Wrapf(ErrStorage, "stat %s: %s", metadata, err)
	}

	content, err := converter.Convert(ctx, filepath.Join(dir, ModelConfigFile))
	if err != nil {
		return false, errors.Wrapf(err, "generating %s", metadata)
	}

	if err := os.WriteFile(metadata, content, 0o644); err != nil {
		return false, errors.Wrapf(ErrStorage, "writing %s: %s", metadata, err)
	}

	return true, nil
}
