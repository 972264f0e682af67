package pieces

import (
	"context"
	"errors"

	"howett.net/jigsaw"
)

// Errors returned by Paginator.Page for pages that do not exist.
var (
	ErrPageLessThan1 = errors.New("That page number is less than 1")
	ErrEmptyPage     = errors.New("That page contains no results")
)

// Paginator splits a query set into pages of PerPage objects. Up to Orphans
// trailing objects are folded into the last page rather than forming a page
// of their own.
type Paginator struct {
	ctx     context.Context
	qs      jigsaw.QuerySet
	count   int
	PerPage int
	Orphans int

	// AllowEmptyFirstPage makes page 1 valid even with no objects.
	AllowEmptyFirstPage bool
}

// NewPaginator counts qs and returns its paginator.
func NewPaginator(ctx context.Context, qs jigsaw.QuerySet, perPage, orphans int, allowEmptyFirstPage bool) (*Paginator, error) {
	if perPage < 1 {
		perPage = 1
	}
	n, err := qs.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Paginator{
		ctx:                 ctx,
		qs:                  qs,
		count:               n,
		PerPage:             perPage,
		Orphans:             orphans,
		AllowEmptyFirstPage: allowEmptyFirstPage,
	}, nil
}

// Count returns the total number of objects.
func (p *Paginator) Count() int {
	return p.count
}

// NumPages returns the number of pages.
func (p *Paginator) NumPages() int {
	if p.count == 0 && !p.AllowEmptyFirstPage {
		return 0
	}
	hits := p.count - p.Orphans
	if hits < 1 {
		hits = 1
	}
	return (hits + p.PerPage - 1) / p.PerPage
}

// PageRange returns the valid page numbers, from 1.
func (p *Paginator) PageRange() []int {
	n := p.NumPages()
	r := make([]int, n)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

func (p *Paginator) validate(number int) error {
	if number < 1 {
		return ErrPageLessThan1
	}
	if number > p.NumPages() {
		if number == 1 && p.AllowEmptyFirstPage {
			return nil
		}
		return ErrEmptyPage
	}
	return nil
}

// Page returns page number, counting from 1.
func (p *Paginator) Page(number int) (*Page, error) {
	if err := p.validate(number); err != nil {
		return nil, err
	}
	bottom := (number - 1) * p.PerPage
	top := bottom + p.PerPage
	if top+p.Orphans >= p.count {
		top = p.count
	}

	var objs []interface{}
	if top > bottom {
		var err error
		objs, err = p.qs.Slice(bottom, top-bottom).All(p.ctx)
		if err != nil {
			return nil, err
		}
	}
	return &Page{Number: number, ObjectList: objs, Paginator: p}, nil
}

// Page is one page of a Paginator.
type Page struct {
	Number     int
	ObjectList []interface{}
	Paginator  *Paginator
}

func (p *Page) HasNext() bool {
	return p.Number < p.Paginator.NumPages()
}

func (p *Page) HasPrevious() bool {
	return p.Number > 1
}

func (p *Page) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page) NextPageNumber() int {
	return p.Number + 1
}

func (p *Page) PreviousPageNumber() int {
	return p.Number - 1
}

// StartIndex returns the 1-based index of the page's first object, or 0
// for an empty page.
func (p *Page) StartIndex() int {
	if p.Paginator.count == 0 {
		return 0
	}
	return (p.Number-1)*p.Paginator.PerPage + 1
}

// EndIndex returns the 1-based index of the page's last object.
func (p *Page) EndIndex() int {
	if p.Number == p.Paginator.NumPages() {
		return p.Paginator.count
	}
	return p.Number * p.Paginator.PerPage
}
