package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByAddress(ctx context.Context, address string) (Market, error)
	ListOpen(ctx context.Context, opts ListOpts) ([]Market, error)
	ListResolved(ctx context.Context, opts ListOpts) ([]Market, error)
	ListByProtocol(ctx context.Context, protocolID string, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Market, error)
	DeleteByAddresses(ctx context.Context, addresses []string) (int64, error)
}

// BetStore persists bet snapshots.
type BetStore interface {
	Upsert(ctx context.Context, bet Bet) error
	UpsertBatch(ctx context.Context, bets []Bet) error
	GetByAddress(ctx context.Context, address string) (Bet, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Bet, error)
	ListByMarket(ctx context.Context, market string, opts ListOpts) ([]Bet, error)
	Count(ctx context.Context) (int64, error)
	ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Bet, error)
	DeleteByAddresses(ctx context.Context, addresses []string) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
