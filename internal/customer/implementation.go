package customer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type account struct {
	customer Customer
	hash     string
	salt     string
}

// service implements the Service interface with in-memory accounts and
// sessions, reset on restart.
type service struct {
	mu       sync.RWMutex
	byEmail  map[string]*account
	sessions map[string]string // token -> customer id
	limiter  *rate.Limiter
}

// NewService creates a new customer service instance.
func NewService() Service {
	return &service{
		byEmail:  make(map[string]*account),
		sessions: make(map[string]string),
		limiter:  rate.NewLimiter(rate.Every(time.Minute), 5), // 5 registrations per minute
	}
}

func (s *service) Register(ctx context.Context, email, name, password string) (*Customer, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	c := Customer{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.byEmail[email] = &account{customer: c, hash: hash, salt: salt}
	slog.Info("customer registered", "customer_id", c.ID, "email", email)
	return &c, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	acc, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	match, err := verifyPassword(password, acc.salt, acc.hash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = acc.customer.ID.String()
	s.mu.Unlock()

	c := acc.customer
	return token, &c, nil
}

func (s *service) Resolve(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok
}
