package events

import "context"

// Publisher delivers domain events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}

// Topic names for the bookstore event stream.
const (
	TopicStock  = "bookery.stock"
	TopicOrders = "bookery.orders"
)

// BookLowStock is published when a stock adjustment drops a book
// below its reorder threshold.
type BookLowStock struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// OrderPlaced is published after a successful checkout.
type OrderPlaced struct {
	OrderID     string  `json:"order_id"`
	CustomerID  string  `json:"customer_id"`
	TotalAmount float64 `json:"total_amount"`
	TotalItems  int     `json:"total_items"`
}
