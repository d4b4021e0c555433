package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// stateKey holds the latest protocol state snapshot. The program has exactly
// one state account, so a single fixed key suffices.
const stateKey = "state:latest"

// StateCache implements domain.StateCache as a single JSON blob.
type StateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateCache creates a StateCache backed by the given Client.
func NewStateCache(c *Client, ttl time.Duration) *StateCache {
	return &StateCache{rdb: c.Underlying(), ttl: ttl}
}

// Set stores the latest protocol state snapshot.
func (sc *StateCache) Set(ctx context.Context, state domain.ProtocolStatus) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal state: %w", err)
	}
	if err := sc.rdb.Set(ctx, stateKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set state: %w", err)
	}
	return nil
}

// Get retrieves the latest protocol state snapshot. It returns
// domain.ErrNotFound when no snapshot has been cached yet.
func (sc *StateCache) Get(ctx context.Context) (domain.ProtocolStatus, error) {
	data, err := sc.rdb.Get(ctx, stateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ProtocolStatus{}, domain.ErrNotFound
		}
		return domain.ProtocolStatus{}, fmt.Errorf("redis: get state: %w", err)
	}

	var state domain.ProtocolStatus
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ProtocolStatus{}, fmt.Errorf("redis: unmarshal state: %w", err)
	}
	return state, nil
}

// Compile-time interface check.
var _ domain.StateCache = (*StateCache)(nil)
