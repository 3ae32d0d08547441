package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrAlreadyExists = errors.New("book already exists")
	ErrInvalidStock  = errors.New("stock quantity would become negative")
	ErrInvalidBook   = errors.New("invalid book")

	// ErrInsufficientStock is the kind carried by InsufficientStockError;
	// match it with errors.Is.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockRace reports a concurrent stock mutation detected while a
	// checkout deduction was in flight. Only the Postgres-backed store can
	// produce it; the in-memory store serializes all writers.
	ErrStockRace = errors.New("concurrent stock mutation")
)

// InsufficientStockError names the offending book and how many units
// were actually available when the check failed.
type InsufficientStockError struct {
	ISBN      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.ISBN, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Category classifies a book. The set is closed.
type Category string

const (
	CategoryFiction    Category = "fiction"
	CategoryNonFiction Category = "nonfiction"
	CategoryScience    Category = "science"
	CategoryChildren   Category = "children"
	CategoryComics     Category = "comics"
)

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFiction, CategoryNonFiction, CategoryScience, CategoryChildren, CategoryComics:
		return true
	}
	return false
}

// Book is a catalog record. ISBN is the identity and never changes after
// creation. Stock never goes negative; every stock change routes through
// the store's AdjustStock or DecrementBatch.
type Book struct {
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	Publisher string    `json:"publisher,omitempty"`
	Price     float64   `json:"price"`
	Category  Category  `json:"category"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants a book must satisfy on create.
func (b *Book) Validate() error {
	if b.ISBN == "" {
		return fmt.Errorf("%w: isbn is required", ErrInvalidBook)
	}
	if b.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidBook)
	}
	if b.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	}
	if !b.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidBook, b.Category)
	}
	if b.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidBook)
	}
	if b.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative", ErrInvalidBook)
	}
	return nil
}

// FieldPatch carries a partial non-stock update. Nil fields are untouched.
// Stock is deliberately absent: stock only moves through AdjustStock so the
// non-negative invariant and the threshold-crossing signal cannot be bypassed.
type FieldPatch struct {
	Title     *string   `json:"title,omitempty"`
	Authors   []string  `json:"authors,omitempty"`
	Publisher *string   `json:"publisher,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	Category  *Category `json:"category,omitempty"`
	Threshold *int      `json:"threshold,omitempty"`
}

// StockLine is one (isbn, quantity) pair of a batch deduction.
type StockLine struct {
	ISBN     string
	Quantity int
}

// LowStockFunc receives the post-adjustment book each time a stock change
// crosses the reorder threshold downward. It runs outside the store lock.
type LowStockFunc func(b Book)
