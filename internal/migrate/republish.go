package migrate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/internal/fueltool"
	"github.com/askiada/fuel-migrate/internal/transform"
)

// ErrCleanup indicates an archive could not be removed.
var ErrCleanup = errors.New("migrate: unable to remove archive")

// Uploader publishes a model directory to the Fuel server.
type Uploader interface {
	// UploadCommand renders the upload as a shell line, without the access key.
	UploadCommand(req fueltool.UploadRequest) string
	Upload(ctx context.Context, req fueltool.UploadRequest) error
}

// Republisher uploads transformed models under their owner and removes their archive.
type Republisher struct {
	uploader  Uploader
	uploadURL string
	owner     string
	key       string
	apply     bool
	out       io.Writer
}

// Republish prints the upload command of model and runs it in apply mode. The archive
// of the model is removed whatever the outcome of the upload.
func (r *Republisher) Republish(ctx context.Context, model transform.Model) (err error) {
	defer func() {
		rmErr := os.Remove(model.Archive)
		if rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = errors.Wrapf(ErrCleanup, "%s", rmErr)
		}
	}()

	req := fueltool.UploadRequest{
		Dir:   model.Dir,
		URL:   r.uploadURL,
		Owner: r.owner,
		Key:   r.key,
	}

	fmt.Fprintln(r.out, "    Uploading model.")
	fmt.Fprintln(r.out, r.uploader.UploadCommand(req))

	if !r.apply {
		return nil
	}

	if err := r.uploader.Upload(ctx, req); err != nil {
		return errors.Wrapf(err, "uploading %s", model.Name)
	}

	logger.Infof("uploaded %s", model.Name)

	return nil
}
