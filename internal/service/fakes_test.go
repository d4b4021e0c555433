package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testPayer    = solanago.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testOracle   = solanago.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	testTreasury = solanago.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	testMarket   = solanago.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	testOther    = solanago.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
)

type fakeChain struct {
	accounts map[solanago.PublicKey][]byte
	scans    map[[8]byte][]solana.KeyedAccount
	slot     uint64
	now      time.Time
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts: make(map[solanago.PublicKey][]byte),
		scans:    make(map[[8]byte][]solana.KeyedAccount),
		slot:     42,
	}
}

func (f *fakeChain) FetchAccount(_ context.Context, address solanago.PublicKey) ([]byte, uint64, error) {
	data, ok := f.accounts[address]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	return data, f.slot, nil
}

func (f *fakeChain) FetchAccounts(_ context.Context, addresses []solanago.PublicKey) ([][]byte, uint64, error) {
	out := make([][]byte, len(addresses))
	for i, addr := range addresses {
		if data, ok := f.accounts[addr]; ok {
			out[i] = data
		}
	}
	return out, f.slot, nil
}

func (f *fakeChain) ScanProgramAccounts(_ context.Context, _ solanago.PublicKey, tag [8]byte) ([]solana.KeyedAccount, error) {
	return f.scans[tag], nil
}

func (f *fakeChain) CurrentSlot(context.Context) (uint64, error) { return f.slot, nil }

func (f *fakeChain) ClusterTime(context.Context) time.Time {
	if f.now.IsZero() {
		return time.Now().UTC()
	}
	return f.now
}

type fakeSender struct {
	payer solanago.PublicKey
	subs  [][]solanago.Instruction
	err   error
}

func (f *fakeSender) Payer() solanago.PublicKey { return f.payer }

func (f *fakeSender) Submit(_ context.Context, instructions []solanago.Instruction) (solanago.Signature, error) {
	if f.err != nil {
		return solanago.Signature{}, f.err
	}
	f.subs = append(f.subs, instructions)
	return solanago.Signature{}, nil
}

type fakeStateReader struct {
	st        domain.ProtocolStatus
	err       error
	refreshes int
}

func (f *fakeStateReader) State(context.Context) (domain.ProtocolStatus, error) {
	return f.st, f.err
}

func (f *fakeStateReader) RefreshState(context.Context) (domain.ProtocolStatus, error) {
	f.refreshes++
	return f.st, f.err
}

type fakeMarketGetter struct {
	markets   map[string]domain.Market
	refreshes []string
}

func newFakeMarketGetter(markets ...domain.Market) *fakeMarketGetter {
	f := &fakeMarketGetter{markets: make(map[string]domain.Market)}
	for _, m := range markets {
		f.markets[m.Address] = m
	}
	return f
}

func (f *fakeMarketGetter) GetMarket(_ context.Context, address string) (domain.Market, error) {
	m, ok := f.markets[address]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketGetter) RefreshMarket(_ context.Context, address solanago.PublicKey) (domain.Market, error) {
	f.refreshes = append(f.refreshes, address.String())
	m, ok := f.markets[address.String()]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

type fakeMarketStore struct {
	markets map[string]domain.Market
	batches [][]domain.Market
	gets    int
}

func newFakeMarketStore(markets ...domain.Market) *fakeMarketStore {
	f := &fakeMarketStore{markets: make(map[string]domain.Market)}
	for _, m := range markets {
		f.markets[m.Address] = m
	}
	return f
}

func (f *fakeMarketStore) Upsert(_ context.Context, m domain.Market) error {
	f.markets[m.Address] = m
	return nil
}

func (f *fakeMarketStore) UpsertBatch(_ context.Context, markets []domain.Market) error {
	f.batches = append(f.batches, markets)
	for _, m := range markets {
		f.markets[m.Address] = m
	}
	return nil
}

func (f *fakeMarketStore) GetByAddress(_ context.Context, address string) (domain.Market, error) {
	f.gets++
	m, ok := f.markets[address]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketStore) ListOpen(context.Context, domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if !m.Resolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMarketStore) ListResolved(context.Context, domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if m.Resolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMarketStore) ListByProtocol(_ context.Context, protocolID string, _ domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if m.ProtocolID == protocolID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMarketStore) Count(context.Context) (int64, error) {
	return int64(len(f.markets)), nil
}

func (f *fakeMarketStore) ListResolvedBefore(context.Context, time.Time, int) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeMarketStore) DeleteByAddresses(_ context.Context, addresses []string) (int64, error) {
	var n int64
	for _, a := range addresses {
		if _, ok := f.markets[a]; ok {
			delete(f.markets, a)
			n++
		}
	}
	return n, nil
}

type fakeBetStore struct {
	bets    map[string]domain.Bet
	batches [][]domain.Bet
}

func newFakeBetStore() *fakeBetStore {
	return &fakeBetStore{bets: make(map[string]domain.Bet)}
}

func (f *fakeBetStore) Upsert(_ context.Context, b domain.Bet) error {
	f.bets[b.Address] = b
	return nil
}

func (f *fakeBetStore) UpsertBatch(_ context.Context, bets []domain.Bet) error {
	f.batches = append(f.batches, bets)
	for _, b := range bets {
		f.bets[b.Address] = b
	}
	return nil
}

func (f *fakeBetStore) GetByAddress(_ context.Context, address string) (domain.Bet, error) {
	b, ok := f.bets[address]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBetStore) ListByOwner(_ context.Context, owner string, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range f.bets {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBetStore) ListByMarket(_ context.Context, market string, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range f.bets {
		if b.Market == market {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBetStore) Count(context.Context) (int64, error) {
	return int64(len(f.bets)), nil
}

func (f *fakeBetStore) ListClaimedBefore(context.Context, time.Time, int) ([]domain.Bet, error) {
	return nil, nil
}

func (f *fakeBetStore) DeleteByAddresses(_ context.Context, addresses []string) (int64, error) {
	var n int64
	for _, a := range addresses {
		if _, ok := f.bets[a]; ok {
			delete(f.bets, a)
			n++
		}
	}
	return n, nil
}

type fakeMarketCache struct {
	markets map[string]domain.Market
	sets    []string
}

func newFakeMarketCache(markets ...domain.Market) *fakeMarketCache {
	f := &fakeMarketCache{markets: make(map[string]domain.Market)}
	for _, m := range markets {
		f.markets[m.Address] = m
	}
	return f
}

func (f *fakeMarketCache) Set(_ context.Context, m domain.Market) error {
	f.markets[m.Address] = m
	f.sets = append(f.sets, m.Address)
	return nil
}

func (f *fakeMarketCache) Get(_ context.Context, address string) (domain.Market, error) {
	m, ok := f.markets[address]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketCache) ListByProtocol(_ context.Context, protocolID string) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if m.ProtocolID == protocolID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMarketCache) Invalidate(_ context.Context, address string) error {
	delete(f.markets, address)
	return nil
}

type fakeStateCache struct {
	st   *domain.ProtocolStatus
	sets int
}

func (f *fakeStateCache) Set(_ context.Context, st domain.ProtocolStatus) error {
	f.st = &st
	f.sets++
	return nil
}

func (f *fakeStateCache) Get(context.Context) (domain.ProtocolStatus, error) {
	if f.st == nil {
		return domain.ProtocolStatus{}, domain.ErrNotFound
	}
	return *f.st, nil
}

type fakeLockManager struct {
	held     map[string]bool
	acquired []string
}

func newFakeLockManager() *fakeLockManager {
	return &fakeLockManager{held: make(map[string]bool)}
}

func (f *fakeLockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	f.acquired = append(f.acquired, key)
	return func() { delete(f.held, key) }, nil
}

type busMessage struct {
	channel string
	payload []byte
}

type fakeSignalBus struct {
	published []busMessage
	streamed  []busMessage
}

func (f *fakeSignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.published = append(f.published, busMessage{channel: channel, payload: payload})
	return nil
}

func (f *fakeSignalBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (f *fakeSignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	f.streamed = append(f.streamed, busMessage{channel: stream, payload: payload})
	return nil
}

func (f *fakeSignalBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fakeAuditLog struct {
	events  []string
	details []map[string]any
}

func (f *fakeAuditLog) Log(_ context.Context, event string, detail map[string]any) error {
	f.events = append(f.events, event)
	f.details = append(f.details, detail)
	return nil
}

func (f *fakeAuditLog) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAuditLog) has(event string) bool {
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

func (f *fakeAuditLog) detailFor(event string) map[string]any {
	for i, e := range f.events {
		if e == event {
			return f.details[i]
		}
	}
	return nil
}

type alert struct {
	event   string
	title   string
	message string
}

type fakeAlerter struct {
	alerts []alert
	err    error
}

func (f *fakeAlerter) Notify(ctx context.Context, event, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, alert{event: event, title: title, message: message})
	return nil
}
