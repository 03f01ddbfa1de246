package main

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter keys understood by the catalog service.
const (
	FilterTitle     = "titel"
	FilterISBN      = "isbn"
	FilterKind      = "art"
	FilterAvailable = "lieferbar"
	FilterRating    = "rating"
	FilterPrice     = "preis"
)

// Pagination selects a page of a result set. Page is 0-based, like the
// `number` returned in the page metadata. A zero Size leaves paging to
// the server defaults.
type Pagination struct {
	Page int
	Size int
}

// boolFilters are the filters sent only when set to true.
var boolFilters = map[string]bool{
	FilterAvailable: true,
}

// BuildQuery maps filters and pagination onto query parameters. A filter
// is kept only when its value is non-empty, boolean filters also when not
// "false". Pagination wins over filters using the same keys.
func BuildQuery(filters map[string]string, p Pagination) url.Values {
	q := url.Values{}
	for key, value := range filters {
		if key == "" || value == "" {
			continue
		}
		if boolFilters[key] && strings.EqualFold(value, "false") {
			continue
		}
		q.Set(key, value)
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Page > 0 || p.Size > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	return q
}

// Criteria is the typed form of the list filters.
type Criteria struct {
	Title         string
	ISBN          string
	Kind          Kind
	AvailableOnly bool
	MinRating     int
	MaxPrice      *float64
}

// Filters converts the criteria into the raw filter map. Zero values
// are left out.
func (c Criteria) Filters() map[string]string {
	f := map[string]string{}
	if c.Title != "" {
		f[FilterTitle] = c.Title
	}
	if c.ISBN != "" {
		f[FilterISBN] = c.ISBN
	}
	if c.Kind != "" {
		f[FilterKind] = string(c.Kind)
	}
	if c.AvailableOnly {
		f[FilterAvailable] = "true"
	}
	if c.MinRating > 0 {
		f[FilterRating] = strconv.Itoa(c.MinRating)
	}
	if c.MaxPrice != nil {
		f[FilterPrice] = strconv.FormatFloat(*c.MaxPrice, 'f', -1, 64)
	}
	return f
}
