package cart

import (
	"context"
	"testing"

	"bookery/internal/catalog"
	"bookery/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestServices(t rapid.TB, books ...catalog.Book) (Service, catalog.Service) {
	t.Helper()
	catalogSvc := catalog.NewService(catalog.NewMemoryStore(), events.Nop{})
	for _, b := range books {
		_, err := catalogSvc.CreateBook(context.Background(), b)
		require.NoError(t, err)
	}
	return NewService(NewMemoryStore(), catalogSvc), catalogSvc
}

func book(isbn string, price float64, stock int) catalog.Book {
	return catalog.Book{
		ISBN:     isbn,
		Title:    "Book " + isbn,
		Authors:  []string{"Ann Author"},
		Price:    price,
		Category: catalog.CategoryFiction,
		Stock:    stock,
	}
}

func TestGetCartReturnsEmptyCart(t *testing.T) {
	svc, _ := newTestServices(t)
	c, err := svc.GetCart(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalItems)
	assert.Zero(t, c.TotalPrice)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("y", 4.00, 10))

	_, err := svc.AddItem(ctx, "cust-1", "y", 2)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "cust-1", "y", 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 5, c.TotalItems)
	assert.InDelta(t, 20.00, c.TotalPrice, 1e-9)
}

// Cart holds 2 of a 10-stock book; adding 9 more would exceed stock and
// must leave the cart untouched.
func TestAddItemInsufficientStockLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("y", 4.00, 10))

	_, err := svc.AddItem(ctx, "cust-1", "y", 2)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "cust-1", "y", 9)
	var insufficientErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "y", insufficientErr.ISBN)
	assert.Equal(t, 10, insufficientErr.Available)

	c, err := svc.GetCart(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItemUnknownBook(t *testing.T) {
	svc, _ := newTestServices(t)
	_, err := svc.AddItem(context.Background(), "cust-1", "missing", 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("y", 4.00, 10))

	_, err := svc.AddItem(ctx, "cust-1", "y", 2)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, "cust-1", "y", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Items[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, "cust-1", "y", 11)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)

	// Zero or negative quantity removes the line.
	c, err = svc.UpdateQuantity(ctx, "cust-1", "y", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = svc.UpdateQuantity(ctx, "cust-1", "y", 3)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("y", 4.00, 10))

	_, err := svc.AddItem(ctx, "cust-1", "y", 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "cust-1", "y")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// Removing again, or removing something never added, is a no-op.
	c, err = svc.RemoveItem(ctx, "cust-1", "y")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("a", 1.00, 5), book("b", 2.00, 5))

	_, err := svc.AddItem(ctx, "cust-1", "a", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "cust-1", "b", 1)
	require.NoError(t, err)

	c, err := svc.Clear(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalItems)
	assert.Zero(t, c.TotalPrice)
}

func TestCartsAreIndependentPerCustomer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t, book("y", 4.00, 10))

	_, err := svc.AddItem(ctx, "cust-1", "y", 2)
	require.NoError(t, err)

	c, err := svc.GetCart(ctx, "cust-2")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

// Property: after any sequence of cart mutations the derived totals equal
// the sums recomputed from the item list.
func TestTotalsNeverDrift(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		isbns := []string{"a", "b", "c"}
		svc, _ := newTestServices(t,
			book("a", 1.50, 1000),
			book("b", 7.25, 1000),
			book("c", 0.99, 1000),
		)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		var last *Cart
		for i := 0; i < steps; i++ {
			isbn := rapid.SampledFrom(isbns).Draw(t, "isbn")
			var err error
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				last, err = svc.AddItem(ctx, "cust", isbn, rapid.IntRange(1, 5).Draw(t, "qty"))
			case 1:
				last, err = svc.UpdateQuantity(ctx, "cust", isbn, rapid.IntRange(0, 8).Draw(t, "newqty"))
			case 2:
				last, err = svc.RemoveItem(ctx, "cust", isbn)
			case 3:
				last, err = svc.Clear(ctx, "cust")
			}
			if err != nil {
				continue
			}

			wantItems := 0
			wantPrice := 0.0
			seen := map[string]bool{}
			for _, it := range last.Items {
				require.False(t, seen[it.ISBN], "duplicate line for %s", it.ISBN)
				seen[it.ISBN] = true
				require.GreaterOrEqual(t, it.Quantity, 1)
				wantItems += it.Quantity
				wantPrice += float64(it.Quantity) * it.UnitPrice
			}
			require.Equal(t, wantItems, last.TotalItems)
			require.InDelta(t, wantPrice, last.TotalPrice, 1e-9)
		}
	})
}
