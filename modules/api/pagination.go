package api

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// pageWindow is how many page links are shown either side of the current page.
const pageWindow = 3

// Pagination is the page metadata returned next to a listing.
type Pagination struct {
	CurrentPage  int        `json:"current_page"`
	FirstPageURL string     `json:"first_page_url"`
	From         *int       `json:"from"`
	LastPage     int        `json:"last_page"`
	LastPageURL  string     `json:"last_page_url"`
	Links        []PageLink `json:"links"`
	NextPageURL  *string    `json:"next_page_url"`
	Path         string     `json:"path"`
	PerPage      int        `json:"per_page"`
	PrevPageURL  *string    `json:"prev_page_url"`
	To           *int       `json:"to"`
	Total        int64      `json:"total"`
}

// PageLink is one entry of a paginator's navigation.
type PageLink struct {
	URL    *string `json:"url"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
}

// paginator builds page URLs that keep the listing's other query parameters.
type paginator struct {
	path  string
	query url.Values
}

func newPaginator(c *fiber.Ctx) paginator {
	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		if k := string(key); k != "page" {
			query.Add(k, string(value))
		}
	})
	return paginator{path: c.BaseURL() + c.Path(), query: query}
}

func (p paginator) url(page int) string {
	q := url.Values{}
	for k, v := range p.query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return p.path + "?" + q.Encode()
}

// build computes the metadata for page of size perPage holding count of total items.
func (p paginator) build(page, perPage, count int, total int64) Pagination {
	lastPage := 1
	if total > 0 {
		lastPage = int((total + int64(perPage) - 1) / int64(perPage))
	}

	meta := Pagination{
		CurrentPage:  page,
		FirstPageURL: p.url(1),
		LastPage:     lastPage,
		LastPageURL:  p.url(lastPage),
		Path:         p.path,
		PerPage:      perPage,
		Total:        total,
	}
	// from and to stay null for pages past the end, including pages whose
	// offset would not fit in an int.
	if count > 0 && page-1 <= (math.MaxInt-count)/perPage {
		from := (page-1)*perPage + 1
		to := from + count - 1
		meta.From, meta.To = &from, &to
	}
	if page > 1 {
		prev := p.url(page - 1)
		meta.PrevPageURL = &prev
	}
	if page < lastPage {
		next := p.url(page + 1)
		meta.NextPageURL = &next
	}

	meta.Links = append(meta.Links, PageLink{URL: meta.PrevPageURL, Label: "&laquo; Previous"})
	for _, n := range pageNumbers(page, lastPage) {
		if n == 0 {
			meta.Links = append(meta.Links, PageLink{Label: "..."})
			continue
		}
		u := p.url(n)
		meta.Links = append(meta.Links, PageLink{URL: &u, Label: strconv.Itoa(n), Active: n == page})
	}
	meta.Links = append(meta.Links, PageLink{URL: meta.NextPageURL, Label: "Next &raquo;"})
	return meta
}

// pageNumbers lists the page links to render; 0 marks an elided gap.
// Small page counts are listed in full. Longer ones keep the first and
// last two pages and a window around the current page.
func pageNumbers(current, last int) []int {
	if last < pageWindow*2+8 {
		return pageRange(1, last)
	}

	window := pageWindow * 2
	switch {
	case current <= window:
		pages := pageRange(1, window+2)
		pages = append(pages, 0)
		return append(pages, last-1, last)
	case current > last-window:
		pages := []int{1, 2, 0}
		return append(pages, pageRange(last-(window+1), last)...)
	default:
		pages := []int{1, 2, 0}
		pages = append(pages, pageRange(current-pageWindow, current+pageWindow)...)
		pages = append(pages, 0)
		return append(pages, last-1, last)
	}
}

func pageRange(from, to int) []int {
	pages := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		pages = append(pages, n)
	}
	return pages
}
