// Package catalog talks to the Fuel server: it walks the paginated listing of an
// owner's models and downloads their archives.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/imroc/req"
	"github.com/juju/loggo"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/tidwall/gjson"
)

var logger = loggo.GetLogger("fuelmigrate.catalog")

// ChunkSize bounds the memory used to copy an archive to disk.
const ChunkSize = 1024 * 1024

// Client lists and downloads the models of one owner.
type Client struct {
	baseURL    string
	version    string
	owner      string
	pageSize   int
	endOfPages EndOfPages
	req        *req.Req
	progress   io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.req.SetClient(client)
	}
}

// WithTimeout bounds every request. Zero keeps requests unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.req.SetTimeout(timeout)
		}
	}
}

// WithPageSize sets the number of models requested per page.
func WithPageSize(size int) Option {
	return func(c *Client) {
		c.pageSize = size
	}
}

// WithEndOfPages sets the predicate ending the pagination.
func WithEndOfPages(fn EndOfPages) Option {
	return func(c *Client) {
		c.endOfPages = fn
	}
}

// WithProgress renders a progress bar on w while archives are downloaded.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// New returns a client for the models of owner. owner must already be escaped for
// use in a URL path.
func New(baseURL, version, owner string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    strings.Trim(version, "/"),
		owner:      owner,
		pageSize:   DefaultPageSize,
		endOfPages: StatusEndOfPages,
		req:        req.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) modelsURL() string {
	return fmt.Sprintf("%s/%s/%s/models", c.baseURL, c.version, c.owner)
}

// PageURL returns the URL of the listing page under cursor.
func (c *Client) PageURL(cursor Cursor) string {
	return c.modelsURL() + "?" + cursor.Query()
}

// ArchiveURL returns the URL of the archive of the named model.
func (c *Client) ArchiveURL(name string) string {
	return c.modelsURL() + "/" + url.PathEscape(name) + ".zip"
}

// Page fetches the listing page under cursor and returns the model names it holds.
// last is true when the page marks the end of the catalog.
func (c *Client) Page(ctx context.Context, cursor Cursor) (names []string, last bool, err error) {
	pageURL := c.PageURL(cursor)

	resp, err := c.req.Get(pageURL, ctx)
	if err != nil {
		return nil, false, errors.Wrapf(ErrNetwork, "GET %s: %s", pageURL, err)
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, false, errors.Wrapf(ErrNetwork, "reading %s: %s", pageURL, err)
	}

	status := resp.Response().StatusCode
	logger.Debugf("GET %s: %d (%s)", pageURL, status, humanize.Bytes(uint64(len(body))))

	last, err = c.endOfPages(status, body)
	if err != nil {
		return nil, false, errors.Wrapf(err, "page %d", cursor.Page)
	}

	if last {
		return nil, true, nil
	}

	names, err = parseNames(body)
	if err != nil {
		return nil, false, errors.Wrapf(err, "page %d", cursor.Page)
	}

	return names, false, nil
}

func parseNames(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrapf(ErrCatalogFormat, "malformed JSON: %s", excerpt(body))
	}

	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, errors.Wrapf(ErrCatalogFormat, "expected an array: %s", excerpt(body))
	}

	records := res.Array()
	names := make([]string, 0, len(records))

	for i, record := range records {
		name := record.Get("name")
		if !name.Exists() || name.String() == "" {
			return nil, errors.Wrapf(ErrCatalogFormat, "record %d has no name", i)
		}
		names = append(names, name.String())
	}

	return names, nil
}

// Pages walks the catalog from the first page and calls emit for every model, in
// listing order, until the end of pages. An error from emit stops the walk.
func (c *Client) Pages(ctx context.Context, emit func(Listing) error) error {
	total := 0

	for cursor := NewCursor(c.pageSize); ; cursor = cursor.Next() {
		names, last, err := c.Page(ctx, cursor)
		if err != nil {
			return err
		}

		if last {
			logger.Infof("catalog exhausted after %d pages, %d models", cursor.Page-1, total)

			return nil
		}

		for i, name := range names {
			total++

			err := emit(Listing{Name: name, Page: cursor.Page, Index: i + 1, Total: total})
			if err != nil {
				return err
			}
		}
	}
}

// Download streams the archive of the named model to dst and returns the number of
// bytes written.
func (c *Client) Download(ctx context.Context, name, dst string) (int64, error) {
	archiveURL := c.ArchiveURL(name)

	resp, err := c.req.Get(archiveURL, ctx)
	if err != nil {
		return 0, errors.Wrapf(ErrNetwork, "GET %s: %s", archiveURL, err)
	}

	httpResp := resp.Response()
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusBadRequest {
		return 0, errors.Wrapf(ErrDownloadStatus, "GET %s: status %d", archiveURL, httpResp.StatusCode)
	}

	file, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "creating %s: %s", dst, err)
	}
	defer file.Close()

	var wrt io.Writer = file

	if c.progress != nil {
		bar := progressbar.NewOptions64(
			httpResp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()

		wrt = io.MultiWriter(file, bar)
	}

	written, err := copyChunks(wrt, httpResp.Body)
	if err != nil {
		return written, err
	}

	if err := file.Close(); err != nil {
		return written, errors.Wrapf(ErrStorage, "closing %s: %s", dst, err)
	}

	logger.Debugf("downloaded %s to %s (%s)", name, dst, humanize.Bytes(uint64(written)))

	return written, nil
}

// copyChunks copies src to dst through a single ChunkSize buffer.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)

	var written int64

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)

			if werr != nil {
				return written, errors.Wrapf(ErrStorage, "writing archive: %s", werr)
			}
		}

		if rerr == io.EOF {
			return written, nil
		}

		if rerr != nil {
			return written, errors.Wrapf(ErrNetwork, "reading archive: %s", rerr)
		}
	}
}
