package checkout

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidPayment = errors.New("invalid payment details")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrOrderNotFound  = errors.New("order not found")
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
var cvvPattern = regexp.MustCompile(`^\d{3,4}$`)

// Payment is the card descriptor submitted at checkout. Only the format is
// checked; no gateway is involved.
type Payment struct {
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
}

// Validate performs the format checks: at least 13 card digits, an MM/YY
// expiry, and a 3-4 digit cvv.
func (p Payment) Validate() error {
	digits := 0
	for _, r := range p.CardNumber {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
			// separators are tolerated
		default:
			return fmt.Errorf("%w: card number contains invalid characters", ErrInvalidPayment)
		}
	}
	if digits < 13 {
		return fmt.Errorf("%w: card number too short", ErrInvalidPayment)
	}
	if !expiryPattern.MatchString(p.Expiry) {
		return fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidPayment)
	}
	if !cvvPattern.MatchString(p.CVV) {
		return fmt.Errorf("%w: cvv must be 3 or 4 digits", ErrInvalidPayment)
	}
	return nil
}

// OrderLine is one line of an order snapshot.
type OrderLine struct {
	ISBN      string  `json:"isbn"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// CustomerOrder is the immutable snapshot of a cart at checkout time. It
// is created exactly once per successful checkout and never mutated.
type CustomerOrder struct {
	ID          uuid.UUID   `json:"id"`
	CustomerID  string      `json:"customer_id"`
	Lines       []OrderLine `json:"lines"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
