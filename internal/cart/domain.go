package cart

import "errors"

// ErrItemNotFound reports that a cart line for the given isbn is absent.
var ErrItemNotFound = errors.New("cart item not found")

// Item is one cart line: a snapshot of the book taken when the line was
// added, plus the requested quantity. Quantity is always >= 1; a line that
// would drop to zero is removed instead.
type Item struct {
	ISBN      string  `json:"isbn"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Cart holds the lines of one customer, unique by isbn, in insertion
// order. TotalItems and TotalPrice are derived and recomputed after every
// mutation; they are never stored independently of the item list.
type Cart struct {
	CustomerID string  `json:"customer_id"`
	Items      []Item  `json:"items"`
	TotalItems int     `json:"total_items"`
	TotalPrice float64 `json:"total_price"`
}

// NewCart returns the empty cart a customer starts with.
func NewCart(customerID string) *Cart {
	return &Cart{CustomerID: customerID, Items: []Item{}}
}

// Recompute rebuilds the derived totals from the item list.
func (c *Cart) Recompute() {
	c.TotalItems = 0
	c.TotalPrice = 0
	for _, it := range c.Items {
		c.TotalItems += it.Quantity
		c.TotalPrice += float64(it.Quantity) * it.UnitPrice
	}
}

// Find returns the index of the line for isbn, or -1.
func (c *Cart) Find(isbn string) int {
	for i, it := range c.Items {
		if it.ISBN == isbn {
			return i
		}
	}
	return -1
}
