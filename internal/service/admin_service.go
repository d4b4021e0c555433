package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
)

// AdminService wraps the authority and oracle instructions: protocol
// bootstrap, market resolution, pausing, authority transfer and badge
// management. Guards read live state so a stale cache cannot wave through a
// rejected transaction.
type AdminService struct {
	state    StateReader
	markets  MarketGetter
	audit    domain.AuditStore
	bus      domain.SignalBus
	logger   *slog.Logger
	params   idlprotocol.Params
	sender   TxSender
	notifier Notifier
}

// NewAdminService creates an AdminService. Every operation needs a sender
// attached with WithSender.
func NewAdminService(
	state StateReader,
	markets MarketGetter,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		state:   state,
		markets: markets,
		audit:   audit,
		bus:     bus,
		logger:  logger,
		params:  idlprotocol.DefaultParams(),
	}
}

// WithSender attaches a transaction sender.
func (s *AdminService) WithSender(sender TxSender) *AdminService {
	s.sender = sender
	return s
}

// WithNotifier attaches an operator alert channel, so one-shot CLI admin ops
// alert without a running watcher.
func (s *AdminService) WithNotifier(notifier Notifier) *AdminService {
	s.notifier = notifier
	return s
}

// notify pushes an operator alert when a notifier is attached. Best-effort,
// like the bus events.
func (s *AdminService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "admin_service: notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// requireAuthority reads live state and verifies the wallet is the protocol
// authority.
func (s *AdminService) requireAuthority(ctx context.Context) (domain.ProtocolStatus, error) {
	if s.sender == nil {
		return domain.ProtocolStatus{}, fmt.Errorf("no transaction sender configured")
	}
	st, err := s.state.RefreshState(ctx)
	if err != nil {
		return domain.ProtocolStatus{}, err
	}
	if st.Authority != s.sender.Payer().String() {
		return domain.ProtocolStatus{}, fmt.Errorf("wallet %s is not the authority: %w", s.sender.Payer(), domain.ErrUnauthorized)
	}
	return st, nil
}

// Initialize bootstraps the protocol state singleton with the wallet as
// authority. The program rejects a second initialization.
func (s *AdminService) Initialize(ctx context.Context, treasury solanago.PublicKey) (solanago.Signature, error) {
	if s.sender == nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: initialize: no transaction sender configured")
	}
	if treasury.IsZero() {
		return solanago.Signature{}, fmt.Errorf("admin_service: initialize: treasury must not be the zero address")
	}

	authority := s.sender.Payer()
	ix, err := idlprotocol.NewInitializeInstruction(authority, treasury)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: initialize: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: initialize: %w", err)
	}

	if _, refreshErr := s.state.RefreshState(ctx); refreshErr != nil {
		s.logger.WarnContext(ctx, "admin_service: post-initialize state refresh failed",
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "initialized", map[string]any{
		"authority": authority.String(),
		"treasury":  treasury.String(),
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":      "initialized",
		"authority": authority.String(),
	})

	s.logger.InfoContext(ctx, "admin_service: initialized protocol",
		slog.String("authority", authority.String()),
		slog.String("treasury", treasury.String()),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// ResolveMarket records a market's observed metric value as its oracle. The
// outcome the program will derive (actual >= target) is computed here first
// and logged with the submission.
func (s *AdminService) ResolveMarket(ctx context.Context, market solanago.PublicKey, actualValue uint64) (solanago.Signature, error) {
	if s.sender == nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market: no transaction sender configured")
	}

	m, err := s.markets.RefreshMarket(ctx, market)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market: %w", err)
	}
	oracle := s.sender.Payer()
	if m.Oracle != oracle.String() {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market %s: wallet %s is not the oracle: %w", market, oracle, domain.ErrUnauthorized)
	}
	if m.Resolved {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market %s: already resolved", market)
	}
	if now := time.Now().UTC(); now.Before(m.ResolutionTime) {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market %s: resolves at %s", market, m.ResolutionTime.Format(time.RFC3339))
	}

	outcome := idlprotocol.ResolveOutcome(actualValue, m.TargetValue)
	ix, err := idlprotocol.NewResolveMarketInstruction(oracle, market, actualValue)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: resolve market: %w", err)
	}

	if _, refreshErr := s.markets.RefreshMarket(ctx, market); refreshErr != nil {
		s.logger.WarnContext(ctx, "admin_service: post-resolve refresh failed",
			slog.String("market", market.String()),
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "market_resolved", map[string]any{
		"market":       market.String(),
		"actual_value": actualValue,
		"target_value": m.TargetValue,
		"outcome":      outcome,
		"signature":    sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "markets", map[string]string{
		"type":    "market_resolved",
		"market":  market.String(),
		"outcome": strconv.FormatBool(outcome),
	})

	title := "Market resolved NO"
	if outcome {
		title = "Market resolved YES"
	}
	s.notify(ctx, "market_resolved", title,
		fmt.Sprintf("%s (%s %s) resolved with value %d.", market, m.ProtocolID, m.Metric, actualValue))

	s.logger.InfoContext(ctx, "admin_service: resolved market",
		slog.String("market", market.String()),
		slog.Uint64("actual_value", actualValue),
		slog.Bool("outcome", outcome),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// SetPaused flips the protocol pause flag.
func (s *AdminService) SetPaused(ctx context.Context, paused bool) (solanago.Signature, error) {
	st, err := s.requireAuthority(ctx)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: set paused: %w", err)
	}
	if st.Paused == paused {
		return solanago.Signature{}, fmt.Errorf("admin_service: set paused: already %t", paused)
	}

	ix, err := idlprotocol.NewSetPausedInstruction(s.sender.Payer(), paused)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: set paused: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: set paused: %w", err)
	}

	if _, refreshErr := s.state.RefreshState(ctx); refreshErr != nil {
		s.logger.WarnContext(ctx, "admin_service: post-pause state refresh failed",
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "paused_changed", map[string]any{
		"paused":    paused,
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":   "paused_changed",
		"paused": strconv.FormatBool(paused),
	})

	title := "Protocol unpaused"
	if paused {
		title = "Protocol paused"
	}
	s.notify(ctx, "paused_changed", title,
		fmt.Sprintf("Changed by authority %s.", s.sender.Payer()))

	s.logger.InfoContext(ctx, "admin_service: set paused",
		slog.Bool("paused", paused),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// TransferAuthority hands the protocol to a new authority key.
func (s *AdminService) TransferAuthority(ctx context.Context, newAuthority solanago.PublicKey) (solanago.Signature, error) {
	st, err := s.requireAuthority(ctx)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: transfer authority: %w", err)
	}
	if newAuthority.IsZero() {
		return solanago.Signature{}, fmt.Errorf("admin_service: transfer authority: new authority must not be the zero address")
	}

	ix, err := idlprotocol.NewTransferAuthorityInstruction(s.sender.Payer(), newAuthority)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: transfer authority: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: transfer authority: %w", err)
	}

	if _, refreshErr := s.state.RefreshState(ctx); refreshErr != nil {
		s.logger.WarnContext(ctx, "admin_service: post-transfer state refresh failed",
			slog.String("error", refreshErr.Error()),
		)
	}

	if auditErr := s.audit.Log(ctx, "authority_transferred", map[string]any{
		"old_authority": st.Authority,
		"new_authority": newAuthority.String(),
		"signature":     sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":          "authority_transferred",
		"new_authority": newAuthority.String(),
	})

	s.logger.InfoContext(ctx, "admin_service: transferred authority",
		slog.String("new_authority", newAuthority.String()),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// IssueBadge grants a volume badge, deriving the tier from the qualifying
// volume the same way the program does.
func (s *AdminService) IssueBadge(ctx context.Context, recipient solanago.PublicKey, volumeUsd uint64) (solanago.Signature, error) {
	if _, err := s.requireAuthority(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: issue badge: %w", err)
	}

	tier := s.params.TierForVolume(volumeUsd)
	if tier == idlprotocol.TierNone {
		return solanago.Signature{}, fmt.Errorf("admin_service: issue badge: volume %d below the bronze threshold %d", volumeUsd, s.params.BadgeVolumeThresholds[0])
	}

	ix, err := idlprotocol.NewIssueBadgeInstruction(s.sender.Payer(), recipient, tier, volumeUsd)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: issue badge: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: issue badge: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "badge_issued", map[string]any{
		"owner":      recipient.String(),
		"tier":       tier.String(),
		"volume_usd": volumeUsd,
		"ve_grant":   s.params.VeGrantForTier(tier),
		"signature":  sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":  "badge_issued",
		"owner": recipient.String(),
		"tier":  tier.String(),
	})

	s.notify(ctx, "badge_issued", "Volume badge issued",
		fmt.Sprintf("%s earned the %s badge for $%d lifetime volume.", recipient, tier, volumeUsd))

	s.logger.InfoContext(ctx, "admin_service: issued badge",
		slog.String("owner", recipient.String()),
		slog.String("tier", tier.String()),
		slog.Uint64("volume_usd", volumeUsd),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}

// RevokeBadge clears a previously issued badge and its veIDL grant.
func (s *AdminService) RevokeBadge(ctx context.Context, badgeOwner solanago.PublicKey) (solanago.Signature, error) {
	if _, err := s.requireAuthority(ctx); err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: revoke badge: %w", err)
	}

	ix, err := idlprotocol.NewRevokeBadgeInstruction(s.sender.Payer(), badgeOwner)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: revoke badge: %w", err)
	}
	sig, err := s.sender.Submit(ctx, []solanago.Instruction{ix})
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("admin_service: revoke badge: %w", err)
	}

	if auditErr := s.audit.Log(ctx, "badge_revoked", map[string]any{
		"owner":     badgeOwner.String(),
		"signature": sig.String(),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", auditErr.Error()),
		)
	}
	publishEvent(ctx, s.bus, s.logger, "state", map[string]string{
		"type":  "badge_revoked",
		"owner": badgeOwner.String(),
	})

	s.logger.InfoContext(ctx, "admin_service: revoked badge",
		slog.String("owner", badgeOwner.String()),
		slog.String("signature", sig.String()),
	)
	return sig, nil
}
