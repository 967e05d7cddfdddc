// Package fueltool drives the Fuel command line tool, installed as gz or, for
// older releases, ign. It converts model configs to metadata and uploads models.
package fueltool

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/juju/loggo"
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

var logger = loggo.GetLogger("fuelmigrate.fueltool")

var (
	// ErrToolNotFound indicates none of the accepted tool names is installed.
	ErrToolNotFound = errors.New("Unable to find the ign or gz command line tools.")

	// ErrToolFailed indicates the tool exited with an error.
	ErrToolFailed = errors.New("fuel tool failed")
)

// Redacted replaces the access key in printed commands.
const Redacted = "********"

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Tool is an installed Fuel command line tool.
type Tool struct {
	// Name is the name the tool was found under.
	Name string
	// Path is the resolved executable.
	Path string

	stdout io.Writer
	stderr io.Writer
}

// Option configures a Tool.
type Option func(*Tool)

// WithOutput sets where the upload command writes its output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(t *Tool) {
		t.stdout = stdout
		t.stderr = stderr
	}
}

// Resolve returns the first of names found by lookPath.
func Resolve(lookPath LookPathFunc, names []string, opts ...Option) (*Tool, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	for _, name := range names {
		path, err := lookPath(name)
		if err != nil {
			logger.Debugf("%s not found: %s", name, err)

			continue
		}

		tool := &Tool{Name: name, Path: path, stdout: io.Discard, stderr: io.Discard}
		for _, opt := range opts {
			opt(tool)
		}
		logger.Debugf("using %s at %s", name, path)

		return tool, nil
	}

	return nil, ErrToolNotFound
}

// Convert runs the metadata conversion of modelConfig and returns its output.
func (t *Tool) Convert(ctx context.Context, modelConfig string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, t.Path, "fuel", "meta", "--config2pbtxt", modelConfig)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(ErrToolFailed, "%s fuel meta %s: %s: %s",
			t.Name, modelConfig, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// UploadRequest describes the upload of one model directory.
type UploadRequest struct {
	Dir   string
	URL   string
	Owner string
	Key   string
}

// Args returns the arguments of the upload subcommand.
func (r UploadRequest) Args() []string {
	return []string{
		"fuel", "upload",
		"-m", r.Dir,
		"-u", r.URL,
		"-o", r.Owner,
		"--header", "Private-token: " + r.Key,
	}
}

// UploadCommand renders the upload command as a shell line with the key redacted.
func (t *Tool) UploadCommand(req UploadRequest) string {
	req.Key = Redacted

	return shellquote.Join(append([]string{t.Name}, req.Args()...)...)
}

// Upload runs the upload subcommand.
func (t *Tool) Upload(ctx context.Context, req UploadRequest) error {
	cmd := exec.CommandContext(ctx, t.Path, req.Args()...)
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(ErrToolFailed, "%s fuel upload -m %s: %s", t.Name, req.Dir, err)
	}

	return nil
}
