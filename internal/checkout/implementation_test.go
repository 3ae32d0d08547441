package checkout

import (
	"context"
	"sync"
	"testing"

	"bookery/internal/cart"
	"bookery/internal/catalog"
	"bookery/internal/events"
	"bookery/internal/replenish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog   catalog.Service
	cart      cart.Service
	replenish replenish.Service
	checkout  Service
}

func newFixture(t *testing.T, books ...catalog.Book) *fixture {
	t.Helper()
	catalogSvc := catalog.NewService(catalog.NewMemoryStore(), events.Nop{})
	replenishSvc := replenish.NewService(replenish.NewMemoryLedger(), catalogSvc, 20)
	catalogSvc.OnLowStock(replenishSvc.HandleLowStock)
	cartSvc := cart.NewService(cart.NewMemoryStore(), catalogSvc)
	checkoutSvc := NewService(cartSvc, catalogSvc, NewMemoryHistory(), events.Nop{})

	for _, b := range books {
		_, err := catalogSvc.CreateBook(context.Background(), b)
		require.NoError(t, err)
	}
	return &fixture{catalog: catalogSvc, cart: cartSvc, replenish: replenishSvc, checkout: checkoutSvc}
}

func book(isbn string, price float64, stock, threshold int) catalog.Book {
	return catalog.Book{
		ISBN:      isbn,
		Title:     "Book " + isbn,
		Authors:   []string{"Ann Author"},
		Price:     price,
		Category:  catalog.CategoryFiction,
		Stock:     stock,
		Threshold: threshold,
	}
}

var validPayment = Payment{CardNumber: "4111111111111111", Expiry: "12/27", CVV: "123"}

func TestPaymentValidate(t *testing.T) {
	cases := []struct {
		name    string
		p       Payment
		wantErr bool
	}{
		{"valid", validPayment, false},
		{"valid with separators", Payment{CardNumber: "4111 1111 1111 1111", Expiry: "01/30", CVV: "1234"}, false},
		{"13 digits is enough", Payment{CardNumber: "4111111111111", Expiry: "06/29", CVV: "999"}, false},
		{"too short", Payment{CardNumber: "411111111111", Expiry: "12/27", CVV: "123"}, true},
		{"letters in number", Payment{CardNumber: "4111x11111111111", Expiry: "12/27", CVV: "123"}, true},
		{"bad month", Payment{CardNumber: "4111111111111111", Expiry: "13/27", CVV: "123"}, true},
		{"missing slash", Payment{CardNumber: "4111111111111111", Expiry: "1227", CVV: "123"}, true},
		{"bad cvv", Payment{CardNumber: "4111111111111111", Expiry: "12/27", CVV: "12"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayment)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Full happy path: 3 copies of a 10.00 book, stock 5, threshold 2.
// Checkout leaves stock at 2, places one auto replenishment order for 20,
// records a 30.00 order, and clears the cart.
func TestSubmitHappyPathWithAutoReplenish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("z", 10.00, 5, 2))

	_, err := f.cart.AddItem(ctx, "cust-1", "z", 3)
	require.NoError(t, err)

	order, err := f.checkout.Submit(ctx, "cust-1", validPayment)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "z", order.Lines[0].ISBN)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.InDelta(t, 30.00, order.Lines[0].LineTotal, 1e-9)
	assert.InDelta(t, 30.00, order.TotalAmount, 1e-9)
	assert.Equal(t, "placed", order.Status)

	b, err := f.catalog.GetBook(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Stock)

	pending, err := f.replenish.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "z", pending[0].ISBN)
	assert.Equal(t, 20, pending[0].Quantity)
	assert.Equal(t, replenish.StatusPending, pending[0].Status)

	c, err := f.cart.GetCart(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// The order is in the customer's history.
	orders, err := f.checkout.ListOrders(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestSubmitEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("z", 10.00, 5, 2))

	_, err := f.checkout.Submit(ctx, "cust-1", validPayment)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// No order recorded, no stock touched.
	orders, err := f.checkout.ListOrders(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	b, err := f.catalog.GetBook(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, 5, b.Stock)
}

func TestSubmitInvalidPaymentLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("z", 10.00, 5, 2))

	_, err := f.cart.AddItem(ctx, "cust-1", "z", 1)
	require.NoError(t, err)

	_, err = f.checkout.Submit(ctx, "cust-1", Payment{CardNumber: "1", Expiry: "12/27", CVV: "123"})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	c, err := f.cart.GetCart(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	b, err := f.catalog.GetBook(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, 5, b.Stock)
}

// Stock dropped between add-to-cart and checkout: the re-validation gate
// reports the offending line and nothing is deducted or recorded.
func TestSubmitRevalidatesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("z", 10.00, 5, 0))

	_, err := f.cart.AddItem(ctx, "cust-1", "z", 4)
	require.NoError(t, err)

	// Admin pulls stock out from under the cart.
	_, err = f.catalog.AdjustStock(ctx, "z", -3)
	require.NoError(t, err)

	_, err = f.checkout.Submit(ctx, "cust-1", validPayment)
	var insufficientErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "z", insufficientErr.ISBN)
	assert.Equal(t, 2, insufficientErr.Available)

	// Cart survives so the customer can adjust and retry.
	c, err := f.cart.GetCart(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	orders, err := f.checkout.ListOrders(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// Two customers race for the last unit: exactly one order is placed and
// stock ends at zero.
func TestConcurrentCheckoutsLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("w", 10.00, 1, 0))

	customers := []string{"cust-1", "cust-2"}
	for _, id := range customers {
		_, err := f.cart.AddItem(ctx, id, "w", 1)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]error, len(customers))
	for i, id := range customers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = f.checkout.Submit(ctx, id, validPayment)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	b, err := f.catalog.GetBook(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Stock)
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("z", 10.00, 5, 0))

	_, err := f.cart.AddItem(ctx, "cust-1", "z", 1)
	require.NoError(t, err)
	placed, err := f.checkout.Submit(ctx, "cust-1", validPayment)
	require.NoError(t, err)

	got, err := f.checkout.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.TotalAmount, got.TotalAmount)

	_, err = f.checkout.GetOrder(ctx, [16]byte{1})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMultiLineCheckoutSnapshotsCartOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, book("a", 5.00, 10, 0), book("b", 2.50, 10, 0))

	_, err := f.cart.AddItem(ctx, "cust-1", "a", 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, "cust-1", "b", 4)
	require.NoError(t, err)

	order, err := f.checkout.Submit(ctx, "cust-1", validPayment)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "a", order.Lines[0].ISBN)
	assert.Equal(t, "b", order.Lines[1].ISBN)
	assert.InDelta(t, 20.00, order.TotalAmount, 1e-9)
}
