package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
)

// betLockTTL bounds how long a bet placement may hold the per-(market, owner)
// lock. Generous next to a normal confirmation, short enough that a crashed
// process does not wedge the pair.
const betLockTTL = 30 * time.Second

// BetService places and settles bets and produces payout quotes.
type BetService struct {
	programID solanago.PublicKey
	chain     ChainReader
	state     StateReader
	markets   MarketGetter
	bets      domain.BetStore
	locks     domain.LockManager
	audit     domain.AuditStore
	bus       domain.SignalBus
	logger    *slog.Logger
	params    idlprotocol.Params
	sender    TxSender
}

// NewBetService creates a BetService. The result is read-only until a sender
// is attached with WithSender.
func NewBetService(
	programID solanago.PublicKey,
	chain ChainReader,
	state StateReader,
	markets MarketGetter,
	bets domain.BetStore,
	locks domain.LockManager,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		programID: programID,
		chain:     chain,
		state:     state,
		markets:   markets,
		bets:      bets,
		locks:     locks,
		audit:     audit,
		bus:       bus,
		logger:    logger,
		params:    idlprotocol.DefaultParams(),
	}
}

// WithSender attaches a transaction sender, enabling submissions.
func (s *BetService) WithSender(sender TxSender) *BetService {
	s.sender = sender
	return s
}

// PlaceBet wagers amount on one side of a market. The nonce the bet address
// derives from is random; a Redis lock serialises placements per
// (market, owner) so two in-flight bets from the same wallet cannot race on
// account creation. The receipt carries everything needed to find the bet
// again, including the nonce.
func (s *BetService) PlaceBet(ctx context.Context, market solanago.PublicKey, amount uint64, betYes bool) (domain.BetReceipt, error) {
	if s.sender == nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: no transaction sender configured")
	}
	if amount == 0 {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: amount must be positive")
	}
	if amount > s.params.MaxBetAmount {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %d > %d: %w", amount, s.params.MaxBetAmount, domain.ErrBetTooLarge)
	}

	st, err := s.state.State(ctx)
	if err != nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", err)
	}
	if st.Paused {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", domain.ErrPaused)
	}

	m, err := s.markets.GetMarket(ctx, market.String())
	if errors.Is(err, domain.ErrNotFound) {
		// Not yet synced; the account may still exist on chain.
		m, err = s.markets.RefreshMarket(ctx, market)
	}
	if err != nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", err)
	}
	now := s.chain.ClusterTime(ctx)
	if status := m.StatusAt(now); status != domain.MarketStatusOpen {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: market %s is %s: %w", market, status, domain.ErrMarketClosed)
	}

	owner := s.sender.Payer()
	unlock, err := s.locks.Acquire(ctx, "bet:"+market.String()+":"+owner.String(), betLockTTL)
	if err != nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", err)
	}
	defer unlock()

	u := uuid.New()
	nonce := binary.BigEndian.Uint64(u[:8])
	ix, betAddr, err := idlprotocol.NewPlaceBetInstruction(owner, market, amount, betYes, nonce)
	if err != nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return domain.BetReceipt{}, fmt.Errorf("bet_service: place bet: %w", err)
	}

	// Pull the freshly created account into the store so reads see it before
	// the next sync cycle.
	if _, refreshErr := s.refreshBet(ctx, betAddr); refreshErr != nil {
		s.logger.WarnContext(ctx, "bet_service: post-bet refresh failed",
			slog.String("bet", betAddr.String()),
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "bet_placed", map[string]any{
		"bet":       betAddr.String(),
		"market":    market.String(),
		"owner":     owner.String(),
		"amount":    amount,
		"bet_yes":   betYes,
		"nonce":     nonce,
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "bet_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "bets", map[string]string{
		"type":    "bet_placed",
		"bet":     betAddr.String(),
		"market":  market.String(),
		"owner":   owner.String(),
		"amount":  strconv.FormatUint(amount, 10),
		"bet_yes": strconv.FormatBool(betYes),
	})

	s.logger.InfoContext(ctx, "bet_service: placed bet",
		slog.String("bet", betAddr.String()),
		slog.String("market", market.String()),
		slog.Uint64("amount", amount),
		slog.Bool("bet_yes", betYes),
		slog.String("signature", sig.String()),
	)
	return domain.BetReceipt{
		BetAddress:  betAddr.String(),
		Market:      market.String(),
		Nonce:       nonce,
		Amount:      amount,
		BetYes:      betYes,
		Signature:   sig.String(),
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// ClaimWinnings settles a winning bet held by the wallet. Ownership, the
// market's resolution and the bet's side are all checked client-side first
// so predictable failures do not cost a transaction.
func (s *BetService) ClaimWinnings(ctx context.Context, bet solanago.PublicKey) (solanago.Signature, error) {
	if s.sender == nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings: no transaction sender configured")
	}

	data, _, err := s.chain.FetchAccount(ctx, bet)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: %w", bet, err)
	}
	acc, err := idlprotocol.ParseAccount_Bet(data)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: %w", bet, err)
	}

	owner := s.sender.Payer()
	if !acc.Owner.Equals(owner) {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: bet belongs to %s: %w", bet, acc.Owner, domain.ErrUnauthorized)
	}
	if acc.Claimed {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: already claimed", bet)
	}

	m, err := s.markets.RefreshMarket(ctx, acc.Market)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: %w", bet, err)
	}
	if !m.Resolved || m.Outcome == nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: market %s is not resolved", bet, m.Address)
	}
	if acc.BetYes != *m.Outcome {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: bet is on the losing side", bet)
	}

	ix, err := idlprotocol.NewClaimWinningsInstruction(owner, acc.Market, bet)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: %w", bet, err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("bet_service: claim winnings %s: %w", bet, err)
	}

	if _, refreshErr := s.refreshBet(ctx, bet); refreshErr != nil {
		s.logger.WarnContext(ctx, "bet_service: post-claim refresh failed",
			slog.String("bet", bet.String()),
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "winnings_claimed", map[string]any{
		"bet":       bet.String(),
		"market":    m.Address,
		"owner":     owner.String(),
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "bet_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "bets", map[string]string{
		"type":   "winnings_claimed",
		"bet":    bet.String(),
		"market": m.Address,
		"owner":  owner.String(),
	})

	s.logger.InfoContext(ctx, "bet_service: claimed winnings",
		slog.String("bet", bet.String()),
		slog.String("market", m.Address),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// QuotePayout prices a hypothetical bet against the market's live pools,
// folding the wager into its side before dividing the way the program will.
// A zero owner skips the staker bonus lookup.
func (s *BetService) QuotePayout(ctx context.Context, market solanago.PublicKey, amount uint64, betYes bool, owner solanago.PublicKey) (domain.PayoutPreview, error) {
	if amount == 0 {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: amount must be positive")
	}
	if amount > s.params.MaxBetAmount {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: %d > %d: %w", amount, s.params.MaxBetAmount, domain.ErrBetTooLarge)
	}

	m, err := s.markets.RefreshMarket(ctx, market)
	if err != nil {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: %w", err)
	}
	if status := m.StatusAt(s.chain.ClusterTime(ctx)); status != domain.MarketStatusOpen {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: market %s is %s: %w", market, status, domain.ErrMarketClosed)
	}

	var staked uint64
	if !owner.IsZero() {
		staked, err = s.stakedAmount(ctx, owner)
		if err != nil {
			return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: %w", err)
		}
	}

	effective, err := s.params.EffectiveBetAmount(amount, staked)
	if err != nil {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: %w", err)
	}
	winning, losing := m.TotalNoAmount, m.TotalYesAmount
	if betYes {
		winning, losing = m.TotalYesAmount, m.TotalNoAmount
	}
	quote, err := s.params.Payout(amount, effective, winning+effective, losing)
	if err != nil {
		return domain.PayoutPreview{}, fmt.Errorf("bet_service: quote: %w", err)
	}

	return domain.PayoutPreview{
		Market:          market.String(),
		Amount:          amount,
		BetYes:          betYes,
		BonusBps:        s.params.StakerBonusBps(staked),
		EffectiveAmount: effective,
		Share:           quote.Share,
		Gross:           quote.Gross,
		Fee:             quote.Fee,
		Net:             quote.Net,
		QuotedAt:        time.Now().UTC(),
	}, nil
}

// GetBet retrieves a bet from the persistent store.
func (s *BetService) GetBet(ctx context.Context, address string) (domain.Bet, error) {
	b, err := s.bets.GetByAddress(ctx, address)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: get %s: %w", address, err)
	}
	return b, nil
}

// ListByOwner returns a wallet's bets, straight from the store.
func (s *BetService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list by owner %q: %w", owner, err)
	}
	return bets, nil
}

// ListByMarket returns a market's bets, straight from the store.
func (s *BetService) ListByMarket(ctx context.Context, market string, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByMarket(ctx, market, opts)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list by market %q: %w", market, err)
	}
	return bets, nil
}

// SyncBets scans every bet account owned by the program and upserts the
// batch, keeping the store complete across wallets. Bets this process places
// itself are announced at submission time; the scan stays quiet. Accounts
// that fail to parse are skipped with a warning.
func (s *BetService) SyncBets(ctx context.Context) (int, error) {
	accounts, err := s.chain.ScanProgramAccounts(ctx, s.programID, idlprotocol.Account_Bet)
	if err != nil {
		return 0, fmt.Errorf("bet_service: sync: %w", err)
	}
	slot, err := s.chain.CurrentSlot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "bet_service: current slot unavailable",
			slog.String("error", err.Error()),
		)
	}
	now := time.Now().UTC()

	bets := make([]domain.Bet, 0, len(accounts))
	for _, ka := range accounts {
		acc, parseErr := idlprotocol.ParseAccount_Bet(ka.Data)
		if parseErr != nil {
			s.logger.WarnContext(ctx, "bet_service: skipping unparseable bet account",
				slog.String("address", ka.Pubkey.String()),
				slog.String("error", parseErr.Error()),
			)
			continue
		}
		bets = append(bets, solana.BetToDomain(ka.Pubkey, acc, slot, now))
	}
	if len(bets) == 0 {
		return 0, nil
	}

	if err := s.bets.UpsertBatch(ctx, bets); err != nil {
		return 0, fmt.Errorf("bet_service: sync: %w", err)
	}
	s.logger.InfoContext(ctx, "bet_service: synced bets", slog.Int("count", len(bets)))
	return len(bets), nil
}

// stakedAmount reads the owner's staked balance, zero when no staker account
// exists.
func (s *BetService) stakedAmount(ctx context.Context, owner solanago.PublicKey) (uint64, error) {
	stakerPDA, _, err := idlprotocol.DeriveStakerAddress(owner)
	if err != nil {
		return 0, err
	}
	data, _, err := s.chain.FetchAccount(ctx, stakerPDA)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	acc, err := idlprotocol.ParseAccount_StakerAccount(data)
	if err != nil {
		return 0, err
	}
	return acc.StakedAmount, nil
}

// refreshBet pulls one bet account from the chain into the store.
func (s *BetService) refreshBet(ctx context.Context, address solanago.PublicKey) (domain.Bet, error) {
	data, slot, err := s.chain.FetchAccount(ctx, address)
	if err != nil {
		return domain.Bet{}, err
	}
	acc, err := idlprotocol.ParseAccount_Bet(data)
	if err != nil {
		return domain.Bet{}, err
	}
	b := solana.BetToDomain(address, acc, slot, time.Now().UTC())
	if err := s.bets.Upsert(ctx, b); err != nil {
		return domain.Bet{}, err
	}
	return b, nil
}
