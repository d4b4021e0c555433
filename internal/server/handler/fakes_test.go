package handler

import (
	"context"
	"io"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testMarketAddr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	testOwnerAddr  = "So11111111111111111111111111111111111111112"
	testBetAddr    = "Vote111111111111111111111111111111111111111"
)

type fakeMarketService struct {
	markets  map[string]domain.Market
	open     []domain.Market
	resolved []domain.Market
	byProto  map[string][]domain.Market
	count    int64
	err      error
}

func newFakeMarketService() *fakeMarketService {
	return &fakeMarketService{
		markets: make(map[string]domain.Market),
		byProto: make(map[string][]domain.Market),
	}
}

func (f *fakeMarketService) GetMarket(ctx context.Context, address string) (domain.Market, error) {
	if f.err != nil {
		return domain.Market{}, f.err
	}
	m, ok := f.markets[address]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return f.open, f.err
}

func (f *fakeMarketService) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return f.resolved, f.err
}

func (f *fakeMarketService) ListByProtocol(ctx context.Context, protocolID string, opts domain.ListOpts) ([]domain.Market, error) {
	return f.byProto[protocolID], f.err
}

func (f *fakeMarketService) Count(ctx context.Context) (int64, error) {
	return f.count, nil
}

type fakeBetService struct {
	bets     map[string]domain.Bet
	byOwner  map[string][]domain.Bet
	byMarket map[string][]domain.Bet
	quote    domain.PayoutPreview
	quoteErr error

	quotedMarket solanago.PublicKey
	quotedAmount uint64
	quotedYes    bool
	quotedOwner  solanago.PublicKey
}

func newFakeBetService() *fakeBetService {
	return &fakeBetService{
		bets:     make(map[string]domain.Bet),
		byOwner:  make(map[string][]domain.Bet),
		byMarket: make(map[string][]domain.Bet),
	}
}

func (f *fakeBetService) GetBet(ctx context.Context, address string) (domain.Bet, error) {
	b, ok := f.bets[address]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBetService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Bet, error) {
	return f.byOwner[owner], nil
}

func (f *fakeBetService) ListByMarket(ctx context.Context, market string, opts domain.ListOpts) ([]domain.Bet, error) {
	return f.byMarket[market], nil
}

func (f *fakeBetService) QuotePayout(ctx context.Context, market solanago.PublicKey, amount uint64, betYes bool, owner solanago.PublicKey) (domain.PayoutPreview, error) {
	f.quotedMarket = market
	f.quotedAmount = amount
	f.quotedYes = betYes
	f.quotedOwner = owner
	if f.quoteErr != nil {
		return domain.PayoutPreview{}, f.quoteErr
	}
	return f.quote, nil
}

type fakeStakeService struct {
	staker   domain.StakePosition
	lock     *domain.VeLock
	badge    domain.Badge
	stakeErr error
	badgeErr error
}

func (f *fakeStakeService) GetStaker(ctx context.Context, owner solanago.PublicKey) (domain.StakePosition, *domain.VeLock, error) {
	if f.stakeErr != nil {
		return domain.StakePosition{}, nil, f.stakeErr
	}
	return f.staker, f.lock, nil
}

func (f *fakeStakeService) GetBadge(ctx context.Context, owner solanago.PublicKey) (domain.Badge, error) {
	if f.badgeErr != nil {
		return domain.Badge{}, f.badgeErr
	}
	return f.badge, nil
}

type fakeStateService struct {
	st  domain.ProtocolStatus
	err error
}

func (f *fakeStateService) State(ctx context.Context) (domain.ProtocolStatus, error) {
	return f.st, f.err
}

type fakeSyncSource struct {
	at time.Time
	ok bool
}

func (f *fakeSyncSource) LastSync() (time.Time, bool) {
	return f.at, f.ok
}

type fakeCounter struct {
	count int64
	err   error
}

func (f *fakeCounter) Count(ctx context.Context) (int64, error) {
	return f.count, f.err
}

type fakeTrigger struct {
	calls int
}

func (f *fakeTrigger) Trigger() {
	f.calls++
}
