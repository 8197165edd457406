// internal/domain/cart/session_store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore is the narrow interface the cart service uses to persist guest
// carts. Implementations key carts by an opaque session id; the cart value is
// never ambient state.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*SessionCart, error)
	Save(ctx context.Context, sessionID string, cart *SessionCart) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore stores guest carts as JSON values with a TTL
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

// Get retrieves the guest cart for a session, returning a fresh empty cart
// when none exists yet
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID required for guest cart")
	}

	data, err := s.client.Get(ctx, sessionCartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Lines:     []SessionCartLine{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session cart: %w", err)
	}

	var cart SessionCart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, fmt.Errorf("failed to decode session cart: %w", err)
	}

	return &cart, nil
}

// Save persists the guest cart, refreshing its TTL
func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, cart *SessionCart) error {
	cart.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode session cart: %w", err)
	}

	return s.client.Set(ctx, sessionCartKey(sessionID), data, s.ttl).Err()
}

// Delete removes the guest cart key
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionCartKey(sessionID)).Err()
}
