package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
)

// MarketService owns market reads, chain sync and market creation.
type MarketService struct {
	programID solanago.PublicKey
	chain     ChainReader
	markets   domain.MarketStore
	cache     domain.MarketCache
	state     domain.StateCache
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
	params    idlprotocol.Params
	sender    TxSender
}

// NewMarketService creates a MarketService. The result is read-only until a
// sender is attached with WithSender.
func NewMarketService(
	programID solanago.PublicKey,
	chain ChainReader,
	markets domain.MarketStore,
	cache domain.MarketCache,
	state domain.StateCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		programID: programID,
		chain:     chain,
		markets:   markets,
		cache:     cache,
		state:     state,
		bus:       bus,
		audit:     audit,
		logger:    logger,
		params:    idlprotocol.DefaultParams(),
	}
}

// WithSender attaches a transaction sender, enabling market creation.
func (s *MarketService) WithSender(sender TxSender) *MarketService {
	s.sender = sender
	return s
}

// GetMarket retrieves a market by address, checking the cache first and
// falling back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, address string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, address)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByAddress(ctx, address)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %s: %w", address, err)
	}

	// Back-fill the cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market", address),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// RefreshMarket reads one market account from the chain and writes it through
// to the store and cache.
func (s *MarketService) RefreshMarket(ctx context.Context, address solanago.PublicKey) (domain.Market, error) {
	data, slot, err := s.chain.FetchAccount(ctx, address)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: refresh %s: %w", address, err)
	}
	acc, err := idlprotocol.ParseAccount_PredictionMarket(data)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: refresh %s: %w", address, err)
	}

	m := solana.MarketToDomain(address, acc, s.params, slot, time.Now().UTC())
	if err := s.markets.Upsert(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: refresh %s: %w", address, err)
	}
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market", m.Address),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// SyncMarkets scans every market account owned by the program, persists the
// batch and returns the fresh snapshots together with the markets that
// flipped to resolved since the previous sync. Accounts that fail to parse
// are skipped with a warning so one foreign account cannot stall the sync.
func (s *MarketService) SyncMarkets(ctx context.Context) (fresh, newlyResolved []domain.Market, err error) {
	prior, err := s.markets.ListOpen(ctx, domain.ListOpts{})
	if err != nil {
		return nil, nil, fmt.Errorf("market_service: sync: list open: %w", err)
	}
	wasOpen := make(map[string]bool, len(prior))
	for _, m := range prior {
		wasOpen[m.Address] = true
	}

	accounts, err := s.chain.ScanProgramAccounts(ctx, s.programID, idlprotocol.Account_PredictionMarket)
	if err != nil {
		return nil, nil, fmt.Errorf("market_service: sync: %w", err)
	}
	slot, err := s.chain.CurrentSlot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "market_service: current slot unavailable",
			slog.String("error", err.Error()),
		)
	}
	now := time.Now().UTC()

	fresh = make([]domain.Market, 0, len(accounts))
	for _, ka := range accounts {
		acc, parseErr := idlprotocol.ParseAccount_PredictionMarket(ka.Data)
		if parseErr != nil {
			s.logger.WarnContext(ctx, "market_service: skipping unparseable market account",
				slog.String("address", ka.Pubkey.String()),
				slog.String("error", parseErr.Error()),
			)
			continue
		}
		m := solana.MarketToDomain(ka.Pubkey, acc, s.params, slot, now)
		fresh = append(fresh, m)
		if m.Resolved && wasOpen[m.Address] {
			newlyResolved = append(newlyResolved, m)
		}
	}
	if len(fresh) == 0 {
		return nil, nil, nil
	}

	if err := s.markets.UpsertBatch(ctx, fresh); err != nil {
		return nil, nil, fmt.Errorf("market_service: sync: %w", err)
	}
	for _, m := range fresh {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market", m.Address),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	for _, m := range newlyResolved {
		outcome := "no"
		if m.Outcome != nil && *m.Outcome {
			outcome = "yes"
		}
		publishEvent(ctx, s.bus, s.logger, "markets", map[string]string{
			"type":    "market_resolved",
			"market":  m.Address,
			"outcome": outcome,
		})
	}

	s.logger.InfoContext(ctx, "market_service: synced markets",
		slog.Int("count", len(fresh)),
		slog.Int("newly_resolved", len(newlyResolved)),
	)
	return fresh, newlyResolved, nil
}

// ListOpen returns markets still accepting bets, straight from the store.
func (s *MarketService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list open: %w", err)
	}
	return markets, nil
}

// ListResolved returns settled markets, straight from the store.
func (s *MarketService) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListResolved(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list resolved: %w", err)
	}
	return markets, nil
}

// ListByProtocol returns one protocol's markets, serving from the cache index
// when no filters are requested.
func (s *MarketService) ListByProtocol(ctx context.Context, protocolID string, opts domain.ListOpts) ([]domain.Market, error) {
	if opts == (domain.ListOpts{}) {
		if cached, err := s.cache.ListByProtocol(ctx, protocolID); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}
	markets, err := s.markets.ListByProtocol(ctx, protocolID, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list by protocol %q: %w", protocolID, err)
	}
	return markets, nil
}

// Count returns the total number of markets in the persistent store.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// State returns the protocol state, preferring the cached snapshot.
func (s *MarketService) State(ctx context.Context) (domain.ProtocolStatus, error) {
	if st, err := s.state.Get(ctx); err == nil {
		return st, nil
	}
	return s.RefreshState(ctx)
}

// RefreshState reads the state singleton from the chain and caches it. A
// stored bump that disagrees with the derived one means the account was
// created from different seeds than this client derives; it is logged, not
// fatal.
func (s *MarketService) RefreshState(ctx context.Context) (domain.ProtocolStatus, error) {
	address, bump, err := idlprotocol.DeriveStateAddress()
	if err != nil {
		return domain.ProtocolStatus{}, fmt.Errorf("market_service: refresh state: %w", err)
	}
	data, slot, err := s.chain.FetchAccount(ctx, address)
	if err != nil {
		return domain.ProtocolStatus{}, fmt.Errorf("market_service: refresh state: %w", err)
	}
	acc, err := idlprotocol.ParseAccount_ProtocolState(data)
	if err != nil {
		return domain.ProtocolStatus{}, fmt.Errorf("market_service: refresh state: %w", err)
	}
	if acc.Bump != bump {
		s.logger.WarnContext(ctx, "market_service: state bump mismatch",
			slog.Int("stored", int(acc.Bump)),
			slog.Int("derived", int(bump)),
		)
	}

	st := solana.StateToDomain(address, acc, slot, time.Now().UTC())
	if cacheErr := s.state.Set(ctx, st); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: state cache set failed",
			slog.String("error", cacheErr.Error()),
		)
	}
	return st, nil
}

// CreateMarket submits a create_market transaction with the wallet as the
// creator and returns the derived market address and the signature.
func (s *MarketService) CreateMarket(
	ctx context.Context,
	oracle solanago.PublicKey,
	protocolID string,
	metricType idlprotocol.MetricType,
	targetValue uint64,
	resolutionTime time.Time,
	description string,
) (solanago.PublicKey, solanago.Signature, error) {
	if s.sender == nil {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: no transaction sender configured")
	}
	if protocolID == "" {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: protocol id must not be empty")
	}
	if !resolutionTime.After(s.chain.ClusterTime(ctx)) {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: resolution time %s is not in the future", resolutionTime.UTC().Format(time.RFC3339))
	}
	st, err := s.State(ctx)
	if err != nil {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: %w", err)
	}
	if st.Paused {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: %w", domain.ErrPaused)
	}

	creator := s.sender.Payer()
	ix, market, err := idlprotocol.NewCreateMarketInstruction(creator, oracle, protocolID, metricType, targetValue, resolutionTime.Unix(), description)
	if err != nil {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.PublicKey{}, solanago.Signature{}, fmt.Errorf("market_service: create market: %w", err)
	}

	// Pull the freshly created account into the store so reads see it before
	// the next sync cycle.
	if _, refreshErr := s.RefreshMarket(ctx, market); refreshErr != nil {
		s.logger.WarnContext(ctx, "market_service: post-create refresh failed",
			slog.String("market", market.String()),
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "market_created", map[string]any{
		"market":      market.String(),
		"creator":     creator.String(),
		"oracle":      oracle.String(),
		"protocol_id": protocolID,
		"metric":      metricType.String(),
		"target":      targetValue,
		"resolves_at": resolutionTime.UTC().Format(time.RFC3339),
		"signature":   sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "markets", map[string]string{
		"type":        "market_created",
		"market":      market.String(),
		"protocol_id": protocolID,
	})

	s.logger.InfoContext(ctx, "market_service: created market",
		slog.String("market", market.String()),
		slog.String("protocol_id", protocolID),
		slog.String("signature", sig.String()),
	)
	return market, sig, nil
}
