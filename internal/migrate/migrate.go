// Package migrate moves every model of a Fuel owner from an old domain to a new one.
// The catalog feeds a pipeline whose steps transform and republish each model.
package migrate

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/juju/loggo"
	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/internal/catalog"
	"github.com/askiada/fuel-migrate/internal/config"
	"github.com/askiada/fuel-migrate/internal/transform"
	"github.com/askiada/fuel-migrate/pkg/pipeline"
	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

var logger = loggo.GetLogger("fuelmigrate.migrate")

// Names of the pipeline steps. With a single worker, MigrateStep transforms and
// republishes each model. With more, TransformStep and RepublishStep run apart.
const (
	CatalogStep   = "catalog"
	MigrateStep   = "migrate"
	TransformStep = "transform"
	RepublishStep = "republish"
)

// Catalog lists the models of an owner and downloads their archives.
type Catalog interface {
	transform.Downloader
	Pages(ctx context.Context, emit func(catalog.Listing) error) error
}

// Tool is the Fuel command line tool.
type Tool interface {
	transform.MetadataConverter
	Uploader
}

// Migrator runs a migration.
type Migrator struct {
	owner       string
	workers     int
	catalog     Catalog
	transformer *transform.Transformer
	republisher *Republisher
	pipeOpts    []model.PipelineOption
	out         io.Writer
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(m *Migrator) {
		m.out = w
	}
}

// WithPipelineOptions adds options to the pipeline, like measures or drawers.
func WithPipelineOptions(opts ...model.PipelineOption) Option {
	return func(m *Migrator) {
		m.pipeOpts = append(m.pipeOpts, opts...)
	}
}

// New returns a Migrator for cfg, which must be valid.
func New(cfg *config.Config, cat Catalog, tool Tool, opts ...Option) (*Migrator, error) {
	m := &Migrator{
		owner:   cfg.EscapedOwner(),
		workers: cfg.Workers,
		catalog: cat,
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}

	// steps print from several goroutines
	m.out = &syncWriter{w: m.out}

	var err error

	rewriter := transform.NewRewriter(cfg.OldDomain, cfg.NewDomain, cfg.Subdomains...)

	m.transformer, err = transform.New(cfg.WorkDir, cat, rewriter, tool, m.out)
	if err != nil {
		return nil, err
	}

	m.republisher = &Republisher{
		uploader:  tool,
		uploadURL: cfg.UploadURL,
		owner:     cfg.EscapedOwner(),
		key:       cfg.Key,
		apply:     cfg.Apply,
		out:       m.out,
	}

	return m, nil
}

// job is a listing on its way through the pipeline. When done is set, the catalog
// waits for it to be closed before listing anything else.
type job struct {
	catalog.Listing
	done chan struct{}
}

// Run migrates every model of the owner. It stops at the first error.
//
// With a single worker a model is downloaded, transformed and republished before
// the next one is listed. With more workers, models overlap.
func (m *Migrator) Run(ctx context.Context) error {
	fmt.Fprintf(m.out, "Downloading models from the %s owner.\n", m.owner)

	pipe, err := pipeline.New(ctx, m.pipeOpts...)
	if err != nil {
		return err
	}

	jobs, err := pipeline.AddRootStep(pipe, CatalogStep, m.list)
	if err != nil {
		return errors.Wrap(err, "unable to add catalog step")
	}

	if m.sequential() {
		err = pipeline.AddSink(pipe, MigrateStep, jobs, m.migrate)
		if err != nil {
			return errors.Wrap(err, "unable to add migrate step")
		}
	} else {
		err = m.addConcurrentSteps(pipe, jobs)
		if err != nil {
			return err
		}
	}

	if err := pipe.Run(); err != nil {
		return err
	}

	fmt.Fprintln(m.out, "Done.")

	return nil
}

func (m *Migrator) addConcurrentSteps(pipe *pipeline.Pipeline, jobs *model.Step[job]) error {
	models, err := pipeline.AddStepOneToOne(pipe, TransformStep, jobs, m.transformJob,
		pipeline.StepConcurrency[transform.Model](m.workers))
	if err != nil {
		return errors.Wrap(err, "unable to add transform step")
	}

	err = pipeline.AddSink(pipe, RepublishStep, models, m.republisher.Republish)
	if err != nil {
		return errors.Wrap(err, "unable to add republish step")
	}

	return nil
}

func (m *Migrator) sequential() bool {
	return m.workers <= 1
}

func (m *Migrator) list(ctx context.Context, jobs chan<- job) error {
	return m.catalog.Pages(ctx, func(listing catalog.Listing) error {
		next := job{Listing: listing}
		if m.sequential() {
			next.done = make(chan struct{})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobs <- next:
		}

		if next.done == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-next.done:
			return nil
		}
	})
}

func (m *Migrator) transformJob(ctx context.Context, next job) (transform.Model, error) {
	return m.transformer.Transform(ctx, next.Listing)
}

// migrate transforms then republishes one model. done is only closed on success,
// a failure cancels the pipeline instead.
func (m *Migrator) migrate(ctx context.Context, next job) error {
	migrated, err := m.transformer.Transform(ctx, next.Listing)
	if err != nil {
		return errors.WithMessage(err, TransformStep)
	}

	logger.Debugf("republishing %s", migrated.Name)

	err = m.republisher.Republish(ctx, migrated)
	if err != nil {
		return errors.WithMessage(err, RepublishStep)
	}

	close(next.done)

	return nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
