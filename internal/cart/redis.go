package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each cart as a JSON value under one key per customer.
// Carts are session state, so a TTL keeps abandoned ones from piling up.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func cartKey(customerID string) string { return "cart:" + customerID }

func (r *RedisStore) Get(ctx context.Context, customerID string) (*Cart, error) {
	raw, err := r.rdb.Get(ctx, cartKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewCart(customerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func (r *RedisStore) Update(ctx context.Context, customerID string, mutate func(*Cart) error) (*Cart, error) {
	key := cartKey(customerID)

	var out *Cart
	// Optimistic transaction: retry if the key changes between read and write.
	txn := func(tx *redis.Tx) error {
		c := NewCart(customerID)
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(raw, c); err != nil {
				return fmt.Errorf("decode cart: %w", err)
			}
		}

		if err := mutate(c); err != nil {
			return err
		}
		c.Recompute()

		encoded, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	}

	for i := 0; i < 3; i++ {
		err := r.rdb.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update cart: too many conflicts for %s", customerID)
}
