package service

import (
	"fmt"
	"math"

	"canopy/internal/models"
)

// PageLimits bounds offset pagination. A zero MaxSize or MaxOffset leaves
// that bound off, but Window never overflows an int.
type PageLimits struct {
	MaxSize   int
	MaxOffset int
}

// Page is a validated offset window.
type Page struct {
	Number int
	Size   int
}

// NewPage validates page and pageSize against limits.
func NewPage(page, pageSize int, limits PageLimits) (Page, error) {
	if page < 1 {
		return Page{}, models.NewValidationError("page must be at least 1")
	}
	if pageSize < 1 {
		return Page{}, models.NewValidationError("pageSize must be at least 1")
	}
	if limits.MaxSize > 0 && pageSize > limits.MaxSize {
		return Page{}, models.NewValidationError(fmt.Sprintf("pageSize must not exceed %d", limits.MaxSize))
	}

	maxOffset := math.MaxInt - pageSize
	if limits.MaxOffset > 0 && limits.MaxOffset < maxOffset {
		maxOffset = limits.MaxOffset
	}
	// Compared by division so the product never overflows.
	if page-1 > maxOffset/pageSize {
		return Page{}, models.NewValidationError(fmt.Sprintf("page is too deep: offset must not exceed %d", maxOffset))
	}
	return Page{Number: page, Size: pageSize}, nil
}

// Skip is the number of items before the page.
func (p Page) Skip() int { return (p.Number - 1) * p.Size }

// Window is the number of items each source must yield to fill the page.
func (p Page) Window() int { return p.Skip() + p.Size }
