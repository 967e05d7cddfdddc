// Package config holds the settings of a migration run. Values come from command
// line flags, optionally merged with a configuration file, through viper.
package config

import (
	"strings"
	"time"

	"github.com/juju/loggo"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var logger = loggo.GetLogger("fuelmigrate.config")

// Defaults point at the public Fuel server and rewrite ignitionrobotics references
// to gazebosim.
const (
	DefaultServerURL  = "https://fuel.gazebosim.org"
	DefaultAPIVersion = "1.0"
	DefaultPageSize   = 100
	DefaultOldDomain  = "ignitionrobotics"
	DefaultNewDomain  = "gazebosim"
	DefaultEndOfPages = "status"
	DefaultLogLevel   = "WARNING"
)

var (
	DefaultSubdomains = []string{"fuel", "app"}
	// DefaultTools lists the primary name of the Fuel command line tool, then its legacy name.
	DefaultTools = []string{"gz", "ign"}
)

// Configuration keys, shared by the config file and the flag bindings.
const (
	KeyConfigFile = "config"
	KeyOwner      = "owner"
	KeyKey        = "key"
	KeyServerURL  = "server_url"
	KeyAPIVersion = "api_version"
	KeyUploadURL  = "upload_url"
	KeyPageSize   = "page_size"
	KeyOldDomain  = "old_domain"
	KeyNewDomain  = "new_domain"
	KeySubdomains = "subdomains"
	KeyWorkDir    = "work_dir"
	KeyTools      = "tools"
	KeyApply      = "apply"
	KeyEndOfPages = "end_of_pages"
	KeyWorkers    = "workers"
	KeyTimeout    = "timeout"
	KeyProgress   = "progress"
	KeyStats      = "stats"
	KeyGraph      = "graph"
	KeyLogLevel   = "log_level"
)

var (
	ErrMissingOwner  = errors.New("Error: missing `-o <owner_name>` option")
	ErrMissingKey    = errors.New("Error: missing `-k <key>` option")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the configuration of a migration run.
type Config struct {
	// Owner is the account whose models are migrated, as given by the user.
	Owner string
	// Key is the private token used to upload models. Never print it.
	Key string

	ServerURL  string
	APIVersion string
	UploadURL  string
	PageSize   int

	OldDomain  string
	NewDomain  string
	Subdomains []string

	// WorkDir receives the archives and the extracted models.
	WorkDir string
	Tools   []string

	// Apply executes the upload commands instead of only printing them.
	Apply      bool
	EndOfPages string
	Workers    int
	Timeout    time.Duration

	Progress bool
	Stats    bool
	Graph    string
	LogLevel string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerURL, DefaultServerURL)
	v.SetDefault(KeyAPIVersion, DefaultAPIVersion)
	v.SetDefault(KeyUploadURL, DefaultServerURL)
	v.SetDefault(KeyPageSize, DefaultPageSize)
	v.SetDefault(KeyOldDomain, DefaultOldDomain)
	v.SetDefault(KeyNewDomain, DefaultNewDomain)
	v.SetDefault(KeySubdomains, DefaultSubdomains)
	v.SetDefault(KeyWorkDir, ".")
	v.SetDefault(KeyTools, DefaultTools)
	v.SetDefault(KeyEndOfPages, DefaultEndOfPages)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// Load reads the configuration file named by the config key, if any, and builds a
// Config from v. Load does not validate the result.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "reading %s: %s", file, err)
		}
		logger.Debugf("configuration read from %s", v.ConfigFileUsed())
	}

	return &Config{
		Owner:      v.GetString(KeyOwner),
		Key:        v.GetString(KeyKey),
		ServerURL:  v.GetString(KeyServerURL),
		APIVersion: v.GetString(KeyAPIVersion),
		UploadURL:  v.GetString(KeyUploadURL),
		PageSize:   v.GetInt(KeyPageSize),
		OldDomain:  v.GetString(KeyOldDomain),
		NewDomain:  v.GetString(KeyNewDomain),
		Subdomains: v.GetStringSlice(KeySubdomains),
		WorkDir:    v.GetString(KeyWorkDir),
		Tools:      v.GetStringSlice(KeyTools),
		Apply:      v.GetBool(KeyApply),
		EndOfPages: v.GetString(KeyEndOfPages),
		Workers:    v.GetInt(KeyWorkers),
		Timeout:    v.GetDuration(KeyTimeout),
		Progress:   v.GetBool(KeyProgress),
		Stats:      v.GetBool(KeyStats),
		Graph:      v.GetString(KeyGraph),
		LogLevel:   v.GetString(KeyLogLevel),
	}, nil
}

// Validate checks the credentials, owner first, then the remaining settings.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return ErrMissingOwner
	}

	if c.Key == "" {
		return ErrMissingKey
	}

	switch {
	case c.ServerURL == "":
		return errors.Wrap(ErrInvalidConfig, "server url must be set")
	case c.PageSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "page size must be positive, got %d", c.PageSize)
	case c.Workers < 1:
		return errors.Wrapf(ErrInvalidConfig, "workers must be positive, got %d", c.Workers)
	case c.OldDomain == "" || c.NewDomain == "":
		return errors.Wrap(ErrInvalidConfig, "old and new domains must be set")
	case len(c.Tools) == 0:
		return errors.Wrap(ErrInvalidConfig, "at least one tool name must be set")
	}

	return nil
}

// EscapedOwner returns the owner as it appears in catalog URLs.
func (c *Config) EscapedOwner() string {
	return EscapeOwner(c.Owner)
}

// EscapeOwner replaces literal spaces with %20.
func EscapeOwner(owner string) string {
	return strings.ReplaceAll(owner, " ", "%20")
}
