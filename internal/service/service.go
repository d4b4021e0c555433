package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
)

// ChainReader is the read-only slice of the Solana RPC client the services
// depend on.
type ChainReader interface {
	FetchAccount(ctx context.Context, address solanago.PublicKey) ([]byte, uint64, error)
	FetchAccounts(ctx context.Context, addresses []solanago.PublicKey) ([][]byte, uint64, error)
	ScanProgramAccounts(ctx context.Context, programID solanago.PublicKey, tag [8]byte) ([]solana.KeyedAccount, error)
	CurrentSlot(ctx context.Context) (uint64, error)
	ClusterTime(ctx context.Context) time.Time
}

// TxSender signs and submits transactions. Services are constructed without
// one in read-only modes; submission methods refuse to run until a sender is
// attached.
type TxSender interface {
	Payer() solanago.PublicKey
	Submit(ctx context.Context, instructions []solanago.Instruction) (solanago.Signature, error)
}

// StateReader supplies protocol state snapshots. State may serve a cached
// snapshot; RefreshState always reads the chain.
type StateReader interface {
	State(ctx context.Context) (domain.ProtocolStatus, error)
	RefreshState(ctx context.Context) (domain.ProtocolStatus, error)
}

// MarketGetter supplies market snapshots for bet placement and quoting.
type MarketGetter interface {
	GetMarket(ctx context.Context, address string) (domain.Market, error)
	RefreshMarket(ctx context.Context, address solanago.PublicKey) (domain.Market, error)
}

// Notifier pushes operator alerts. The implementation filters by event type,
// so callers always emit and let the filter decide.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// publishEvent fans an event out on a pub/sub channel and mirrors it onto the
// shared event stream. Signals are best-effort: failures are logged, never
// returned.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, evt map[string]string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "signal publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, "events", payload); err != nil {
		logger.WarnContext(ctx, "event stream append failed",
			slog.String("error", err.Error()),
		)
	}
}
