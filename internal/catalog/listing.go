package catalog

import "fmt"

// DefaultPageSize is the number of models requested per listing page.
const DefaultPageSize = 100

// Listing is a model found in the catalog, with its position in the listing.
type Listing struct {
	// Name identifies the model within its owner.
	Name string
	// Page is the listing page the model was found on, starting at 1.
	Page int
	// Index is the 1-based position of the model on its page.
	Index int
	// Total is the number of models listed so far, this one included.
	Total int
}

// Cursor points at a listing page.
type Cursor struct {
	Page    int
	PerPage int
}

// NewCursor returns a cursor on the first page.
func NewCursor(perPage int) Cursor {
	if perPage < 1 {
		perPage = DefaultPageSize
	}

	return Cursor{Page: 1, PerPage: perPage}
}

// Next returns the cursor on the following page.
func (c Cursor) Next() Cursor {
	return Cursor{Page: c.Page + 1, PerPage: c.PerPage}
}

// Query returns the query string selecting the page.
func (c Cursor) Query() string {
	return fmt.Sprintf("page=%d&per_page=%d", c.Page, c.PerPage)
}
