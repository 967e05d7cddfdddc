package cli

import (
	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/internal/catalog"
	"github.com/askiada/fuel-migrate/internal/config"
	"github.com/askiada/fuel-migrate/internal/fueltool"
	"github.com/askiada/fuel-migrate/internal/migrate"
	"github.com/askiada/fuel-migrate/internal/transform"
)

// Exit codes of the command.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitToolNotFound = 3
	ExitNetwork      = 5
	ExitProtocol     = 6
	ExitStorage      = 7
	ExitToolFailed   = 8
)

type usageError struct {
	error
}

func (e usageError) Unwrap() error {
	return e.error
}

var exitCodes = []struct {
	code int
	errs []error
}{
	{code: ExitUsage, errs: []error{config.ErrMissingOwner, config.ErrMissingKey, config.ErrInvalidConfig}},
	{code: ExitToolNotFound, errs: []error{fueltool.ErrToolNotFound}},
	{code: ExitToolFailed, errs: []error{fueltool.ErrToolFailed}},
	{code: ExitNetwork, errs: []error{catalog.ErrNetwork}},
	{code: ExitProtocol, errs: []error{
		catalog.ErrCatalogStatus, catalog.ErrCatalogFormat, catalog.ErrDownloadStatus,
		transform.ErrArchive, transform.ErrUnsafePath,
	}},
	{code: ExitStorage, errs: []error{catalog.ErrStorage, transform.ErrStorage, migrate.ErrCleanup}},
}

// ExitCode returns the process exit code for an error returned by the command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}

	for _, ec := range exitCodes {
		for _, target := range ec.errs {
			if errors.Is(err, target) {
				return ec.code
			}
		}
	}

	return ExitFailure
}
