package catalog

import "github.com/pkg/errors"

// Sentinel errors returned by the catalog client. Use errors.Is to match them.
var (
	// ErrNetwork indicates the server could not be reached or the response not read.
	ErrNetwork = errors.New("catalog: network error")

	// ErrCatalogStatus indicates a listing page was answered with an error status.
	ErrCatalogStatus = errors.New("catalog: unexpected listing status")

	// ErrCatalogFormat indicates a listing page is not a JSON array of named models.
	ErrCatalogFormat = errors.New("catalog: invalid listing")

	// ErrDownloadStatus indicates an archive download was answered with an error status.
	ErrDownloadStatus = errors.New("catalog: archive download failed")

	// ErrStorage indicates the archive could not be written to disk.
	ErrStorage = errors.New("catalog: storage error")
)
