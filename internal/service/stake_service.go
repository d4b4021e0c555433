package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
)

// StakeService handles staking and vote-escrow submissions plus the pure
// dry-run previews backing them. Position reads go straight to the chain;
// staker accounts are not synced to the store.
type StakeService struct {
	programID solanago.PublicKey
	chain     ChainReader
	state     StateReader
	audit     domain.AuditStore
	bus       domain.SignalBus
	logger    *slog.Logger
	params    idlprotocol.Params
	sender    TxSender
}

// NewStakeService creates a StakeService. The result is read-only until a
// sender is attached with WithSender.
func NewStakeService(
	programID solanago.PublicKey,
	chain ChainReader,
	state StateReader,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StakeService {
	return &StakeService{
		programID: programID,
		chain:     chain,
		state:     state,
		audit:     audit,
		bus:       bus,
		logger:    logger,
		params:    idlprotocol.DefaultParams(),
	}
}

// WithSender attaches a transaction sender, enabling submissions.
func (s *StakeService) WithSender(sender TxSender) *StakeService {
	s.sender = sender
	return s
}

// requireActive rejects submissions without a sender or while the protocol
// is paused.
func (s *StakeService) requireActive(ctx context.Context) error {
	if s.sender == nil {
		return fmt.Errorf("no transaction sender configured")
	}
	st, err := s.state.State(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return domain.ErrPaused
	}
	return nil
}

// Stake submits a stake transaction for the wallet.
func (s *StakeService) Stake(ctx context.Context, amount uint64) (solanago.Signature, error) {
	if amount == 0 {
		return solanago.Signature{}, fmt.Errorf("stake_service: stake: amount must be positive")
	}
	if err := s.requireActive(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: stake: %w", err)
	}

	owner := s.sender.Payer()
	ix, err := idlprotocol.NewStakeInstruction(owner, amount)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: stake: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: stake: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "staked", map[string]any{
		"owner":     owner.String(),
		"amount":    amount,
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "stake_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":   "staked",
		"owner":  owner.String(),
		"amount": strconv.FormatUint(amount, 10),
	})

	s.logger.InfoContext(ctx, "stake_service: staked",
		slog.String("owner", owner.String()),
		slog.Uint64("amount", amount),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// Unstake submits an unstake transaction. When the wallet holds a ve
// position the program also needs that account to verify the remaining free
// stake, so its presence is checked first.
func (s *StakeService) Unstake(ctx context.Context, amount uint64) (solanago.Signature, error) {
	if amount == 0 {
		return solanago.Signature{}, fmt.Errorf("stake_service: unstake: amount must be positive")
	}
	if err := s.requireActive(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unstake: %w", err)
	}

	owner := s.sender.Payer()
	vePDA, _, err := idlprotocol.DeriveVePositionAddress(owner)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unstake: %w", err)
	}
	hasVePosition := true
	if _, _, fetchErr := s.chain.FetchAccount(ctx, vePDA); fetchErr != nil {
		if !errors.Is(fetchErr, domain.ErrNotFound) {
			return solanago.Signature{}, fmt.Errorf("stake_service: unstake: %w", fetchErr)
		}
		hasVePosition = false
	}

	ix, err := idlprotocol.NewUnstakeInstruction(owner, amount, hasVePosition)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unstake: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unstake: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "unstaked", map[string]any{
		"owner":     owner.String(),
		"amount":    amount,
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "stake_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":   "unstaked",
		"owner":  owner.String(),
		"amount": strconv.FormatUint(amount, 10),
	})

	s.logger.InfoContext(ctx, "stake_service: unstaked",
		slog.String("owner", owner.String()),
		slog.Uint64("amount", amount),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// LockForVe locks the wallet's stake for lockDuration, minting veIDL.
func (s *StakeService) LockForVe(ctx context.Context, lockDuration time.Duration) (solanago.Signature, error) {
	secs := int64(lockDuration / time.Second)
	if secs < s.params.MinLockDuration || secs > s.params.MaxLockDuration {
		return solanago.Signature{}, fmt.Errorf("stake_service: lock: duration %s outside [%d, %d] seconds",
			lockDuration, s.params.MinLockDuration, s.params.MaxLockDuration)
	}
	if err := s.requireActive(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: lock: %w", err)
	}

	owner := s.sender.Payer()
	ix, err := idlprotocol.NewLockForVeInstruction(owner, secs)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: lock: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: lock: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "ve_locked", map[string]any{
		"owner":         owner.String(),
		"duration_secs": secs,
		"signature":     sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "stake_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":          "ve_locked",
		"owner":         owner.String(),
		"duration_secs": strconv.FormatInt(secs, 10),
	})

	s.logger.InfoContext(ctx, "stake_service: locked for ve",
		slog.String("owner", owner.String()),
		slog.Int64("duration_secs", secs),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// UnlockVe releases an expired vote-escrow lock. The lock's end is checked
// against cluster time first so a premature call fails here instead of
// costing a transaction.
func (s *StakeService) UnlockVe(ctx context.Context) (solanago.Signature, error) {
	if err := s.requireActive(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}

	owner := s.sender.Payer()
	vePDA, _, err := idlprotocol.DeriveVePositionAddress(owner)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}
	data, _, err := s.chain.FetchAccount(ctx, vePDA)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}
	acc, err := idlprotocol.ParseAccount_VePosition(data)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}
	if end := time.Unix(acc.LockEnd, 0); s.chain.ClusterTime(ctx).Before(end) {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: lock active until %s", end.UTC().Format(time.RFC3339))
	}

	ix, err := idlprotocol.NewUnlockVeInstruction(owner)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("stake_service: unlock: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "ve_unlocked", map[string]any{
		"owner":     owner.String(),
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "stake_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":  "ve_unlocked",
		"owner": owner.String(),
	})

	s.logger.InfoContext(ctx, "stake_service: unlocked ve position",
		slog.String("owner", owner.String()),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// GetStaker reads a user's staking position and vote-escrow lock straight
// from the chain. The lock is nil when the user holds none.
func (s *StakeService) GetStaker(ctx context.Context, owner solanago.PublicKey) (domain.StakePosition, *domain.VeLock, error) {
	stakerPDA, _, err := idlprotocol.DeriveStakerAddress(owner)
	if err != nil {
		return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker: %w", err)
	}
	vePDA, _, err := idlprotocol.DeriveVePositionAddress(owner)
	if err != nil {
		return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker: %w", err)
	}

	data, slot, err := s.chain.FetchAccounts(ctx, []solanago.PublicKey{stakerPDA, vePDA})
	if err != nil {
		return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker %s: %w", owner, err)
	}
	if data[0] == nil {
		return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker %s: %w", owner, domain.ErrNotFound)
	}
	acc, err := idlprotocol.ParseAccount_StakerAccount(data[0])
	if err != nil {
		return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker %s: %w", owner, err)
	}

	now := time.Now().UTC()
	position := solana.StakeToDomain(stakerPDA, acc, slot, now)

	var lock *domain.VeLock
	if data[1] != nil {
		veAcc, veErr := idlprotocol.ParseAccount_VePosition(data[1])
		if veErr != nil {
			return domain.StakePosition{}, nil, fmt.Errorf("stake_service: get staker %s: %w", owner, veErr)
		}
		l := solana.VeLockToDomain(vePDA, veAcc, slot, now)
		lock = &l
	}
	return position, lock, nil
}

// GetBadge reads a user's volume badge straight from the chain.
func (s *StakeService) GetBadge(ctx context.Context, owner solanago.PublicKey) (domain.Badge, error) {
	badgePDA, _, err := idlprotocol.DeriveBadgeAddress(owner)
	if err != nil {
		return domain.Badge{}, fmt.Errorf("stake_service: get badge: %w", err)
	}
	data, slot, err := s.chain.FetchAccount(ctx, badgePDA)
	if err != nil {
		return domain.Badge{}, fmt.Errorf("stake_service: get badge %s: %w", owner, err)
	}
	acc, err := idlprotocol.ParseAccount_VolumeBadge(data)
	if err != nil {
		return domain.Badge{}, fmt.Errorf("stake_service: get badge %s: %w", owner, err)
	}
	return solana.BadgeToDomain(badgePDA, acc, slot, time.Now().UTC()), nil
}

// ScanBadges lists every volume badge under the program. Badges live only on
// the chain, so callers that want change detection diff successive scans.
// Accounts that fail to parse are skipped with a warning.
func (s *StakeService) ScanBadges(ctx context.Context) ([]domain.Badge, error) {
	accounts, err := s.chain.ScanProgramAccounts(ctx, s.programID, idlprotocol.Account_VolumeBadge)
	if err != nil {
		return nil, fmt.Errorf("stake_service: scan badges: %w", err)
	}
	slot, err := s.chain.CurrentSlot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "stake_service: current slot unavailable",
			slog.String("error", err.Error()),
		)
	}
	now := time.Now().UTC()

	badges := make([]domain.Badge, 0, len(accounts))
	for _, ka := range accounts {
		acc, parseErr := idlprotocol.ParseAccount_VolumeBadge(ka.Data)
		if parseErr != nil {
			s.logger.WarnContext(ctx, "stake_service: skipping unparseable badge account",
				slog.String("address", ka.Pubkey.String()),
				slog.String("error", parseErr.Error()),
			)
			continue
		}
		badges = append(badges, solana.BadgeToDomain(ka.Pubkey, acc, slot, now))
	}
	return badges, nil
}

// PreviewStake computes the dry-run economics of a stake of the given size
// against the current pools: bet bonus, claimable reward share and the veIDL
// a maximum-duration lock would mint.
func (s *StakeService) PreviewStake(ctx context.Context, stakedAmount uint64) (domain.StakePreview, error) {
	st, err := s.state.State(ctx)
	if err != nil {
		return domain.StakePreview{}, fmt.Errorf("stake_service: preview: %w", err)
	}
	share, err := s.params.StakingRewardShare(stakedAmount, st.RewardPool, st.TotalStaked)
	if err != nil {
		return domain.StakePreview{}, fmt.Errorf("stake_service: preview: %w", err)
	}
	veMax, err := s.params.VeAmountForLock(stakedAmount, s.params.MaxLockDuration)
	if err != nil {
		return domain.StakePreview{}, fmt.Errorf("stake_service: preview: %w", err)
	}
	return domain.StakePreview{
		StakedAmount: stakedAmount,
		BonusBps:     s.params.StakerBonusBps(stakedAmount),
		RewardShare:  share,
		VeForMaxLock: veMax,
	}, nil
}

// PreviewVe returns the veIDL minted for locking stakedAmount over
// lockDuration. Pure arithmetic, no chain access.
func (s *StakeService) PreviewVe(stakedAmount uint64, lockDuration time.Duration) (uint64, error) {
	ve, err := s.params.VeAmountForLock(stakedAmount, int64(lockDuration/time.Second))
	if err != nil {
		return 0, fmt.Errorf("stake_service: preview ve: %w", err)
	}
	return ve, nil
}
