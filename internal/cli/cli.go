// Package cli exposes the migration as a cobra command.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/loggo"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askiada/fuel-migrate/internal/catalog"
	"github.com/askiada/fuel-migrate/internal/config"
	"github.com/askiada/fuel-migrate/internal/fueltool"
	"github.com/askiada/fuel-migrate/internal/migrate"
	"github.com/askiada/fuel-migrate/pkg/pipeline/drawer"
	"github.com/askiada/fuel-migrate/pkg/pipeline/measure"
	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

var logger = loggo.GetLogger("fuelmigrate.cli")

type options struct {
	lookPath   fueltool.LookPathFunc
	httpClient *http.Client
}

// Option configures the command.
type Option func(*options)

// WithLookPath sets how the Fuel tool is looked up.
func WithLookPath(fn fueltool.LookPathFunc) Option {
	return func(o *options) {
		o.lookPath = fn
	}
}

// WithHTTPClient sets the client used to reach the Fuel server.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// NewCommand returns the fuel-migrate command. Progress goes to the command output,
// logs and diagnostics to its error output.
func NewCommand(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	config.SetDefaults(v)

	var debug bool

	cmd := &cobra.Command{
		Use:   "fuel-migrate -o <owner> -k <key>",
		Short: "Move the models of a Fuel owner to a new domain",
		Long: "fuel-migrate downloads every model of an owner from a Fuel server, rewrites " +
			"references to the old domain, generates missing metadata files and prints, or " +
			"runs with --apply, the command uploading each model again.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			if debug {
				cfg.LogLevel = "DEBUG"
			}

			if err := setupLogging(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
				return err
			}

			return run(cmd, o, cfg)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := cmd.Flags()
	flags.String(config.KeyConfigFile, "", "configuration file (yaml, toml or json)")
	flags.StringP("owner", "o", "", "owner of the models to migrate")
	flags.StringP("key", "k", "", "private token used to upload the models")
	flags.String("server-url", config.DefaultServerURL, "Fuel server the models are downloaded from")
	flags.String("api-version", config.DefaultAPIVersion, "Fuel API version")
	flags.String("upload-url", config.DefaultServerURL, "Fuel server the models are uploaded to")
	flags.Int("page-size", config.DefaultPageSize, "number of models requested per page")
	flags.String("old-domain", config.DefaultOldDomain, "domain to move away from")
	flags.String("new-domain", config.DefaultNewDomain, "domain to move to")
	flags.StringSlice("subdomains", config.DefaultSubdomains, "subdomains whose references are moved")
	flags.String("work-dir", ".", "directory receiving the archives and the models")
	flags.StringSlice("tools", config.DefaultTools, "accepted names of the Fuel command line tool, in order of preference")
	flags.Bool("apply", false, "run the upload commands instead of only printing them")
	flags.String("end-of-pages", config.DefaultEndOfPages,
		fmt.Sprintf("how the end of the catalog is detected: %q or %q", catalog.EndOnStatus, catalog.EndOnEmpty))
	flags.Int("workers", 1, "number of models transformed at the same time")
	flags.Duration("timeout", 0, "timeout of every HTTP request, 0 for none")
	flags.Bool("progress", false, "show a download progress bar")
	flags.Bool("stats", false, "print the time spent in each stage")
	flags.String("graph", "", "write the stage graph as a DOT file")
	flags.String("log-level", config.DefaultLogLevel, "log level (TRACE, DEBUG, INFO, WARNING, ERROR)")
	flags.BoolVar(&debug, "debug", false, "shorthand for --log-level DEBUG")

	return cmd
}

// flagBindings maps configuration keys to the flags setting them.
var flagBindings = map[string]string{
	config.KeyConfigFile: config.KeyConfigFile,
	config.KeyOwner:      "owner",
	config.KeyKey:        "key",
	config.KeyServerURL:  "server-url",
	config.KeyAPIVersion: "api-version",
	config.KeyUploadURL:  "upload-url",
	config.KeyPageSize:   "page-size",
	config.KeyOldDomain:  "old-domain",
	config.KeyNewDomain:  "new-domain",
	config.KeySubdomains: "subdomains",
	config.KeyWorkDir:    "work-dir",
	config.KeyTools:      "tools",
	config.KeyApply:      "apply",
	config.KeyEndOfPages: "end-of-pages",
	config.KeyWorkers:    "workers",
	config.KeyTimeout:    "timeout",
	config.KeyProgress:   "progress",
	config.KeyStats:      "stats",
	config.KeyGraph:      "graph",
	config.KeyLogLevel:   "log-level",
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return errors.Wrapf(err, "unable to bind flag --%s", name)
		}
	}

	return nil
}

func setupLogging(wrt io.Writer, level string) error {
	lvl, ok := loggo.ParseLevel(level)
	if !ok {
		return errors.Wrapf(config.ErrInvalidConfig, "unknown log level %q", level)
	}

	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(wrt, loggo.DefaultFormatter)); err != nil {
		return errors.Wrap(err, "unable to set log writer")
	}

	return loggo.ConfigureLoggers(fmt.Sprintf("<root>=%s", lvl.String()))
}

func run(cmd *cobra.Command, o *options, cfg *config.Config) error {
	tool, err := fueltool.Resolve(o.lookPath, cfg.Tools, fueltool.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	endOfPages, err := catalog.ParseEndOfPages(cfg.EndOfPages)
	if err != nil {
		return errors.Wrap(config.ErrInvalidConfig, err.Error())
	}

	clientOpts := []catalog.Option{
		catalog.WithPageSize(cfg.PageSize),
		catalog.WithEndOfPages(endOfPages),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, catalog.WithHTTPClient(o.httpClient))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, catalog.WithTimeout(cfg.Timeout))
	}
	if cfg.Progress {
		clientOpts = append(clientOpts, catalog.WithProgress(cmd.ErrOrStderr()))
	}

	client := catalog.New(cfg.ServerURL, cfg.APIVersion, cfg.EscapedOwner(), clientOpts...)

	var (
		msr      measure.Measure
		pipeOpts []model.PipelineOption
	)

	if cfg.Stats || cfg.Graph != "" {
		msr = measure.NewDefaultMeasure()
		pipeOpts = append(pipeOpts, measure.PipelineMeasure(msr))
	}
	if cfg.Graph != "" {
		pipeOpts = append(pipeOpts, drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.Graph), msr))
	}

	migrator, err := migrate.New(cfg, client, tool,
		migrate.WithOutput(cmd.OutOrStdout()),
		migrate.WithPipelineOptions(pipeOpts...),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	logger.Infof("migrating models of %s with %s, apply: %t", cfg.Owner, tool.Name, cfg.Apply)

	if err := migrator.Run(cmd.Context()); err != nil {
		return err
	}

	logger.Infof("migration done in %s", time.Since(start).Round(time.Millisecond))

	if cfg.Stats {
		return measure.Report(cmd.ErrOrStderr(), msr)
	}

	return nil
}
