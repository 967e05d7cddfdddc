package catalog

import (
	"bytes"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// EndOfPages decides from a listing response whether the catalog has no more pages.
// A non-nil error aborts the pagination.
type EndOfPages func(status int, body []byte) (bool, error)

// Names of the available EndOfPages predicates.
const (
	EndOnStatus = "status"
	EndOnEmpty  = "strict"
)

// ParseEndOfPages returns the predicate registered under name.
func ParseEndOfPages(name string) (EndOfPages, error) {
	switch name {
	case EndOnStatus, "":
		return StatusEndOfPages, nil
	case EndOnEmpty:
		return StrictEndOfPages, nil
	default:
		return nil, errors.Errorf("unknown end of pages policy %q, want %q or %q", name, EndOnStatus, EndOnEmpty)
	}
}

// StatusEndOfPages ends the pagination on an error status or an empty page.
// This is how the Fuel server signals the page after the last one.
func StatusEndOfPages(status int, body []byte) (bool, error) {
	if status >= http.StatusBadRequest {
		return true, nil
	}

	return isEmptyPage(body), nil
}

// StrictEndOfPages ends the pagination on an empty page only. An error status
// carrying a body is reported as ErrCatalogStatus.
func StrictEndOfPages(status int, body []byte) (bool, error) {
	if isEmptyPage(body) {
		return true, nil
	}

	if status >= http.StatusBadRequest {
		return false, errors.Wrapf(ErrCatalogStatus, "status %d: %s", status, excerpt(body))
	}

	return false, nil
}

func isEmptyPage(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}

	res := gjson.ParseBytes(trimmed)

	return res.IsArray() && len(res.Array()) == 0
}

const maxExcerpt = 120

func excerpt(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > maxExcerpt {
		return string(body[:maxExcerpt]) + "..."
	}

	return string(body)
}
