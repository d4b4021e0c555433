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

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized Market snapshots and a per-protocol index set.
//
// Key schema:
//
//	market:{address}           - hash with field "data" containing JSON
//	market:protocol:{protocol} - set of market addresses tracking the protocol
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. Entries
// expire after ttl unless refreshed by the watcher.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	return &MarketCache{rdb: c.Underlying(), ttl: ttl}
}

func marketKey(address string) string { return "market:" + address }

func marketProtocolKey(protocolID string) string { return "market:protocol:" + protocolID }

// Set stores a Market snapshot and registers it in its protocol's index set.
// Both keys have their TTL refreshed.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.Address, err)
	}

	key := marketKey(market.Address)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, mc.ttl)

	if market.ProtocolID != "" {
		idxKey := marketProtocolKey(market.ProtocolID)
		pipe.SAdd(ctx, idxKey, market.Address)
		pipe.Expire(ctx, idxKey, mc.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.Address, err)
	}
	return nil
}

// Get retrieves a Market snapshot by its account address.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, address string) (domain.Market, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(address), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", address, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", address, err)
	}
	return market, nil
}

// ListByProtocol returns every cached market tracking the given protocol.
// Market keys can expire before the index set does; dangling index members
// are pruned as they are discovered.
func (mc *MarketCache) ListByProtocol(ctx context.Context, protocolID string) ([]domain.Market, error) {
	addrs, err := mc.rdb.SMembers(ctx, marketProtocolKey(protocolID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list markets for protocol %s: %w", protocolID, err)
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	pipe := mc.rdb.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(addrs))
	for _, addr := range addrs {
		cmds[addr] = pipe.HGet(ctx, marketKey(addr), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: list markets for protocol %s: %w", protocolID, err)
	}

	var markets []domain.Market
	var stale []interface{}
	for _, addr := range addrs {
		data, err := cmds[addr].Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				stale = append(stale, addr)
			}
			continue
		}
		var m domain.Market
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		markets = append(markets, m)
	}

	if len(stale) > 0 {
		_ = mc.rdb.SRem(ctx, marketProtocolKey(protocolID), stale...).Err()
	}
	return markets, nil
}

// Invalidate removes a Market and its protocol index entry from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, address string) error {
	// Read the market first so its index entry can be cleaned up too.
	market, err := mc.Get(ctx, address)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("redis: invalidate market %s: %w", address, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, marketKey(address))
	if err == nil && market.ProtocolID != "" {
		pipe.SRem(ctx, marketProtocolKey(market.ProtocolID), address)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", address, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
