package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bookery/internal/catalog"

	"github.com/lib/pq"
)

// CatalogStore implements catalog.Store on Postgres. Row locks taken in a
// fixed order make DecrementBatch atomic across lines; a serialization
// failure surfaces as catalog.ErrStockRace with nothing applied.
type CatalogStore struct {
	db *sql.DB

	mu       sync.RWMutex
	lowStock []catalog.LowStockFunc
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

var _ catalog.Store = (*CatalogStore)(nil)

const bookColumns = "isbn, title, authors, publisher, price, category, stock, threshold, created_at, updated_at"

func scanBook(row interface{ Scan(...any) error }) (*catalog.Book, error) {
	var b catalog.Book
	var authors pq.StringArray
	err := row.Scan(&b.ISBN, &b.Title, &authors, &b.Publisher, &b.Price,
		&b.Category, &b.Stock, &b.Threshold, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Authors = authors
	return &b, nil
}

func (s *CatalogStore) OnLowStock(fn catalog.LowStockFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lowStock = append(s.lowStock, fn)
}

func (s *CatalogStore) fireLowStock(books []catalog.Book) {
	s.mu.RLock()
	fns := s.lowStock
	s.mu.RUnlock()
	for _, b := range books {
		for _, fn := range fns {
			fn(b)
		}
	}
}

func (s *CatalogStore) Get(ctx context.Context, isbn string) (*catalog.Book, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE isbn = $1", isbn)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (s *CatalogStore) List(ctx context.Context) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bookColumns+" FROM books ORDER BY isbn")
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []catalog.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *CatalogStore) Create(ctx context.Context, b *catalog.Book) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO books (isbn, title, authors, publisher, price, category, stock, threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (isbn) DO NOTHING
		RETURNING created_at, updated_at`,
		b.ISBN, b.Title, pq.Array(b.Authors), b.Publisher, b.Price, b.Category, b.Stock, b.Threshold)
	err := row.Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", catalog.ErrAlreadyExists, b.ISBN)
	}
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (s *CatalogStore) SetFields(ctx context.Context, isbn string, patch catalog.FieldPatch) (*catalog.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE books SET
			title      = COALESCE($2, title),
			authors    = COALESCE($3, authors),
			publisher  = COALESCE($4, publisher),
			price      = COALESCE($5, price),
			category   = COALESCE($6, category),
			threshold  = COALESCE($7, threshold),
			updated_at = NOW()
		WHERE isbn = $1
		RETURNING `+bookColumns,
		isbn, patch.Title, authorsOrNil(patch.Authors), patch.Publisher,
		patch.Price, patch.Category, patch.Threshold)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

func authorsOrNil(authors []string) any {
	if authors == nil {
		return nil
	}
	return pq.Array(authors)
}

func (s *CatalogStore) AdjustStock(ctx context.Context, isbn string, delta int) (*catalog.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE books SET stock = stock + $2, updated_at = NOW()
		WHERE isbn = $1 AND stock + $2 >= 0
		RETURNING `+bookColumns,
		isbn, delta)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing book from an invalid delta.
		if _, getErr := s.Get(ctx, isbn); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s, delta %d", catalog.ErrInvalidStock, isbn, delta)
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	old := b.Stock - delta
	if old >= b.Threshold && b.Stock < b.Threshold {
		s.fireLowStock([]catalog.Book{*b})
	}
	return b, nil
}

func (s *CatalogStore) DecrementBatch(ctx context.Context, lines []catalog.StockLine) error {
	crossed, err := s.decrementBatchTx(ctx, lines)
	if err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", catalog.ErrStockRace, err)
		}
		return err
	}
	s.fireLowStock(crossed)
	return nil
}

func (s *CatalogStore) decrementBatchTx(ctx context.Context, lines []catalog.StockLine) ([]catalog.Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock every row up front, in a fixed order so two concurrent
	// checkouts over the same books cannot deadlock.
	isbns := uniqueISBNs(lines)
	locked := make(map[string]*catalog.Book, len(isbns))
	origStock := make(map[string]int, len(isbns))
	for _, isbn := range sortedCopy(isbns) {
		row := tx.QueryRowContext(ctx,
			"SELECT "+bookColumns+" FROM books WHERE isbn = $1 FOR UPDATE", isbn)
		b, err := scanBook(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, isbn)
		}
		if err != nil {
			return nil, fmt.Errorf("lock book: %w", err)
		}
		locked[isbn] = b
		origStock[isbn] = b.Stock
	}

	// Validate in line order so the first insufficient line is reported;
	// repeated isbns check cumulatively against the running balance.
	for _, ln := range lines {
		b := locked[ln.ISBN]
		if b.Stock < ln.Quantity {
			return nil, &catalog.InsufficientStockError{ISBN: ln.ISBN, Available: b.Stock}
		}
		b.Stock -= ln.Quantity
	}

	for _, isbn := range isbns {
		b := locked[isbn]
		if _, err := tx.ExecContext(ctx, `
			UPDATE books SET stock = $2, updated_at = NOW()
			WHERE isbn = $1`,
			isbn, b.Stock); err != nil {
			return nil, fmt.Errorf("deduct stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// Crossing detection against the pre-deduction stock levels.
	var crossed []catalog.Book
	for _, isbn := range isbns {
		b := locked[isbn]
		if origStock[isbn] >= b.Threshold && b.Stock < b.Threshold {
			crossed = append(crossed, *b)
		}
	}
	return crossed, nil
}

func uniqueISBNs(lines []catalog.StockLine) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if !seen[ln.ISBN] {
			seen[ln.ISBN] = true
			out = append(out, ln.ISBN)
		}
	}
	return out
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func (s *CatalogStore) Delete(ctx context.Context, isbn string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE isbn = $1", isbn)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, isbn)
	}
	return nil
}
