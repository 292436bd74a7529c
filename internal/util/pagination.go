package util

import (
	"errors"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrBadPage = errors.New("page and size must be positive integers")

// Page is a 1-based page window. The zero Page means "no paging".
type Page struct {
	Number int
	Size   int
}

func (p Page) Enabled() bool { return p.Number > 0 }

func (p Page) Offset() int {
	if !p.Enabled() {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ParsePage reads the page and size query values. With both empty it
// returns the zero Page. A size above MaxPageSize is clamped.
func ParsePage(page, size string) (Page, error) {
	if page == "" && size == "" {
		return Page{}, nil
	}
	p := Page{Number: 1, Size: DefaultPageSize}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Page{}, ErrBadPage
		}
		p.Number = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 {
			return Page{}, ErrBadPage
		}
		p.Size = min(n, MaxPageSize)
	}
	return p, nil
}
