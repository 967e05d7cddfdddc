// Package transform turns a listed Fuel model into a model directory ready to be
// uploaded again: it downloads and extracts the archive, moves domain references
// and makes sure the metadata file exists.
package transform

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/juju/loggo"
	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/internal/catalog"
)

var logger = loggo.GetLogger("fuelmigrate.transform")

// Downloader saves the archive of a model to a local file.
type Downloader interface {
	Download(ctx context.Context, name, dst string) (int64, error)
}

// Model is a transformed model waiting to be uploaded.
type Model struct {
	catalog.Listing

	// Dir is the absolute path of the extracted model.
	Dir string
	// Archive is the absolute path of the downloaded archive.
	Archive string
	// Rewritten is the number of files whose references were moved.
	Rewritten int
	// MetadataGenerated is true when the metadata file was created from the model config.
	MetadataGenerated bool
}

// Transformer downloads and patches models under a work directory.
type Transformer struct {
	workDir    string
	downloader Downloader
	rewriter   *Rewriter
	converter  MetadataConverter
	out        io.Writer
}

// New returns a Transformer working in workDir. Progress lines are written to out.
func New(workDir string, downloader Downloader, rewriter *Rewriter, converter MetadataConverter, out io.Writer) (*Transformer, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "resolving %s: %s", workDir, err)
	}

	if out == nil {
		out = io.Discard
	}

	return &Transformer{
		workDir:    abs,
		downloader: downloader,
		rewriter:   rewriter,
		converter:  converter,
		out:        out,
	}, nil
}

// Paths returns the archive and directory of the named model.
func (t *Transformer) Paths(name string) (archive, dir string, err error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", "", errors.Wrapf(ErrUnsafePath, "model name %q", name)
	}

	dir = filepath.Join(t.workDir, name)

	return dir + ".zip", dir, nil
}

// Transform downloads the listed model, extracts it, rewrites its references and
// generates its metadata file when missing.
func (t *Transformer) Transform(ctx context.Context, listing catalog.Listing) (Model, error) {
	fmt.Fprintf(t.out, "Downloading page[%d][%d] (%d) %s\n", listing.Page, listing.Index, listing.Total, listing.Name)

	archive, dir, err := t.Paths(listing.Name)
	if err != nil {
		return Model{}, err
	}

	model := Model{Listing: listing, Dir: dir, Archive: archive}

	if _, err := t.downloader.Download(ctx, listing.Name, archive); err != nil {
		return model, errors.Wrapf(err, "downloading %s", listing.Name)
	}

	if _, err := Extract(archive, dir); err != nil {
		return model, errors.Wrapf(err, "extracting %s", listing.Name)
	}

	fmt.Fprintln(t.out, "    Patching model")

	model.Rewritten, err = t.rewriter.RewriteTree(dir)
	if err != nil {
		return model, errors.Wrapf(err, "patching %s", listing.Name)
	}

	announce := ConverterFunc(func(ctx context.Context, modelConfig string) ([]byte, error) {
		fmt.Fprintln(t.out, "    Generating metadata")

		return t.converter.Convert(ctx, modelConfig)
	})

	model.MetadataGenerated, err = EnsureMetadata(ctx, dir, announce)
	if err != nil {
		return model, errors.Wrapf(err, "metadata of %s", listing.Name)
	}

	logger.Debugf("%s: %d files patched, metadata generated: %t", listing.Name, model.Rewritten, model.MetadataGenerated)

	return model, nil
}
