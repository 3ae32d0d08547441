package customer

import "context"

// Service defines the interface for the customer account service. It is a
// thin collaborator of the core: its only job is turning credentials into
// the opaque customer id the cart and checkout operations are scoped by.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*Customer, error)
	// Login returns a session token on success.
	Login(ctx context.Context, email, password string) (string, *Customer, error)
	// Resolve maps a session token back to a customer id.
	Resolve(token string) (string, bool)
}
