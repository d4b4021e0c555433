// Package pipeline runs the background loops that keep the store and cache
// in step with the chain: the periodic account sync, change detection for
// operator alerts, and the cold-storage archive cycle.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// MarketSyncer pulls every market account into the store and reports which
// ones flipped to resolved.
type MarketSyncer interface {
	SyncMarkets(ctx context.Context) (fresh, newlyResolved []domain.Market, err error)
}

// BetSyncer pulls every bet account into the store.
type BetSyncer interface {
	SyncBets(ctx context.Context) (int, error)
}

// StateRefresher reads live protocol state and refreshes the cached snapshot.
type StateRefresher interface {
	RefreshState(ctx context.Context) (domain.ProtocolStatus, error)
}

// BadgeScanner lists the volume badges currently on chain.
type BadgeScanner interface {
	ScanBadges(ctx context.Context) ([]domain.Badge, error)
}

// Notifier delivers operator alerts for a named event type.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// archiveLockTTL caps how long a crashed process can hold the archive
// single-flight lock before another instance may take over.
const archiveLockTTL = 10 * time.Minute

// Watcher drives the sync cycle on a ticker: state, markets, bets and badges
// in turn, each cycle under a shared timeout. Changes the cycle detects
// (pause flips, fresh resolutions, new badges) are published on the signal
// bus and forwarded to the notifier. A failed step logs, alerts and leaves
// the rest of the cycle running.
type Watcher struct {
	markets MarketSyncer
	bets    BetSyncer
	state   StateRefresher
	badges  BadgeScanner
	bus     domain.SignalBus
	logger  *slog.Logger

	pollInterval time.Duration
	syncTimeout  time.Duration

	archiver        domain.Archiver
	locks           domain.LockManager
	archiveInterval time.Duration
	archiveAfter    int // days

	notifier Notifier

	trigger  chan struct{}
	lastSync atomic.Int64 // unix nanos of the last completed cycle

	// Cycle-local change tracking, touched only by the sync goroutine.
	prevState  *domain.ProtocolStatus
	prevBadges map[string]domain.Badge
	flagged    map[string]bool // markets already flagged as awaiting the oracle
}

// NewWatcher creates a Watcher. Archival and notifications are attached with
// WithArchiver and WithNotifier.
func NewWatcher(
	markets MarketSyncer,
	bets BetSyncer,
	state StateRefresher,
	badges BadgeScanner,
	bus domain.SignalBus,
	pollInterval time.Duration,
	syncTimeout time.Duration,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		markets:      markets,
		bets:         bets,
		state:        state,
		badges:       badges,
		bus:          bus,
		logger:       logger.With(slog.String("component", "watcher")),
		pollInterval: pollInterval,
		syncTimeout:  syncTimeout,
		trigger:      make(chan struct{}, 1),
		flagged:      make(map[string]bool),
	}
}

// WithArchiver enables the cold-storage cycle: every interval, rows settled
// more than retainDays ago move to object storage. The lock manager keeps
// concurrent instances from archiving the same rows twice.
func (w *Watcher) WithArchiver(archiver domain.Archiver, locks domain.LockManager, interval time.Duration, retainDays int) *Watcher {
	w.archiver = archiver
	w.locks = locks
	w.archiveInterval = interval
	w.archiveAfter = retainDays
	return w
}

// WithNotifier attaches an operator alert channel.
func (w *Watcher) WithNotifier(n Notifier) *Watcher {
	w.notifier = n
	return w
}

// Trigger requests an immediate sync cycle without waiting for the ticker.
// Safe from any goroutine; a trigger while a cycle is already pending is
// dropped.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// LastSync reports when the most recent sync cycle completed, and false if
// none has yet.
func (w *Watcher) LastSync() (time.Time, bool) {
	ns := w.lastSync.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}

// Run starts the sync loop and, when configured, the archive loop, and blocks
// until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "starting",
		slog.Duration("poll_interval", w.pollInterval),
		slog.Duration("sync_timeout", w.syncTimeout),
		slog.Bool("archive_enabled", w.archiver != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.runSyncLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("sync loop: %w", err)
	})

	if w.archiver != nil {
		g.Go(func() error {
			err := w.runArchiveLoop(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archive loop: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		w.logger.Error("stopped with error", slog.String("error", err.Error()))
		return err
	}
	w.logger.Info("stopped")
	return nil
}

func (w *Watcher) runSyncLoop(ctx context.Context) error {
	// Run immediately on start.
	w.syncOnce(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.syncOnce(ctx)
		case <-w.trigger:
			w.syncOnce(ctx)
		}
	}
}

// syncOnce runs one full sync cycle under the configured timeout. Step
// failures are collected and alerted together; a bad RPC answer in one step
// never starves the others.
func (w *Watcher) syncOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.syncTimeout)
	defer cancel()
	started := time.Now()

	var stepErrs []error
	if err := w.syncState(ctx); err != nil {
		w.logger.ErrorContext(ctx, "state sync failed", slog.String("error", err.Error()))
		stepErrs = append(stepErrs, fmt.Errorf("state: %w", err))
	}
	if err := w.syncMarkets(ctx); err != nil {
		w.logger.ErrorContext(ctx, "market sync failed", slog.String("error", err.Error()))
		stepErrs = append(stepErrs, fmt.Errorf("markets: %w", err))
	}
	if err := w.syncBets(ctx); err != nil {
		w.logger.ErrorContext(ctx, "bet sync failed", slog.String("error", err.Error()))
		stepErrs = append(stepErrs, fmt.Errorf("bets: %w", err))
	}
	if err := w.syncBadges(ctx); err != nil {
		w.logger.ErrorContext(ctx, "badge sync failed", slog.String("error", err.Error()))
		stepErrs = append(stepErrs, fmt.Errorf("badges: %w", err))
	}

	if len(stepErrs) > 0 {
		w.notify(ctx, "watcher_error", "Watcher sync error", errors.Join(stepErrs...).Error())
	}

	w.lastSync.Store(time.Now().UnixNano())
	w.logger.DebugContext(ctx, "sync cycle complete",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("failed_steps", len(stepErrs)),
	)
}

// syncState refreshes the cached protocol snapshot and announces pause flips
// made by other processes. The first cycle primes the comparison silently.
func (w *Watcher) syncState(ctx context.Context) error {
	st, err := w.state.RefreshState(ctx)
	if err != nil {
		return err
	}

	if w.prevState != nil && w.prevState.Paused != st.Paused {
		w.logger.WarnContext(ctx, "protocol pause flag changed",
			slog.Bool("paused", st.Paused),
		)
		w.publish(ctx, "state", map[string]string{
			"type":   "paused_changed",
			"paused": strconv.FormatBool(st.Paused),
		})
		title := "Protocol unpaused"
		if st.Paused {
			title = "Protocol paused"
		}
		w.notify(ctx, "paused_changed", title,
			fmt.Sprintf("Pause flag is now %t (authority %s).", st.Paused, st.Authority))
	}
	w.prevState = &st
	return nil
}

// syncMarkets persists the full market set, alerts on fresh resolutions and
// flags markets sitting past their resolution time without an oracle answer.
func (w *Watcher) syncMarkets(ctx context.Context) error {
	fresh, newlyResolved, err := w.markets.SyncMarkets(ctx)
	if err != nil {
		return err
	}

	for _, m := range newlyResolved {
		outcome := "NO"
		if m.Outcome != nil && *m.Outcome {
			outcome = "YES"
		}
		w.notify(ctx, "market_resolved",
			fmt.Sprintf("Market resolved %s", outcome),
			fmt.Sprintf("%s (%s %s) resolved %s.", m.Address, m.ProtocolID, m.Metric, outcome))
	}

	now := time.Now().UTC()
	for _, m := range fresh {
		if m.Resolved {
			delete(w.flagged, m.Address)
			continue
		}
		if now.After(m.ResolutionTime) && !w.flagged[m.Address] {
			w.flagged[m.Address] = true
			w.logger.WarnContext(ctx, "market past resolution time, awaiting oracle",
				slog.String("market", m.Address),
				slog.Time("resolution_time", m.ResolutionTime),
				slog.String("oracle", m.Oracle),
			)
		}
	}
	return nil
}

func (w *Watcher) syncBets(ctx context.Context) error {
	_, err := w.bets.SyncBets(ctx)
	return err
}

// syncBadges diffs successive badge scans. Badges have no store table, so
// the previous scan lives in memory; the first cycle primes it silently.
func (w *Watcher) syncBadges(ctx context.Context) error {
	badges, err := w.badges.ScanBadges(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]domain.Badge, len(badges))
	for _, b := range badges {
		if b.Revoked() {
			continue
		}
		next[b.Owner] = b
	}

	if w.prevBadges != nil {
		for owner, b := range next {
			prev, had := w.prevBadges[owner]
			if had && prev.Tier == b.Tier {
				continue
			}
			w.logger.InfoContext(ctx, "volume badge issued",
				slog.String("owner", owner),
				slog.String("tier", b.Tier),
			)
			w.publish(ctx, "state", map[string]string{
				"type":  "badge_issued",
				"owner": owner,
				"tier":  b.Tier,
			})
			w.notify(ctx, "badge_issued",
				fmt.Sprintf("Badge issued: %s", b.Tier),
				fmt.Sprintf("%s earned a %s badge at $%d lifetime volume.", owner, b.Tier, b.VolumeUSD))
		}
		for owner := range w.prevBadges {
			if _, still := next[owner]; !still {
				w.logger.InfoContext(ctx, "volume badge revoked", slog.String("owner", owner))
			}
		}
	}
	w.prevBadges = next
	return nil
}

func (w *Watcher) runArchiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.archiveOnce(ctx)
		}
	}
}

// archiveOnce moves one batch of settled markets and bets to object storage.
// The distributed lock keeps concurrent instances off the same rows; a held
// lock means another instance is already on it, so this one skips the cycle.
func (w *Watcher) archiveOnce(ctx context.Context) {
	unlock, err := w.locks.Acquire(ctx, "archive", archiveLockTTL)
	if errors.Is(err, domain.ErrLockHeld) {
		w.logger.InfoContext(ctx, "archive cycle already running elsewhere, skipping")
		return
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "archive lock acquire failed", slog.String("error", err.Error()))
		return
	}
	defer unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -w.archiveAfter)

	marketsMoved, err := w.archiver.ArchiveMarkets(ctx, cutoff)
	if err != nil {
		w.logger.ErrorContext(ctx, "market archive failed", slog.String("error", err.Error()))
		w.notify(ctx, "watcher_error", "Archive error", fmt.Sprintf("Market archive failed: %v", err))
	}
	betsMoved, err := w.archiver.ArchiveBets(ctx, cutoff)
	if err != nil {
		w.logger.ErrorContext(ctx, "bet archive failed", slog.String("error", err.Error()))
		w.notify(ctx, "watcher_error", "Archive error", fmt.Sprintf("Bet archive failed: %v", err))
	}

	if marketsMoved > 0 || betsMoved > 0 {
		w.logger.InfoContext(ctx, "archive cycle complete",
			slog.Int64("markets_moved", marketsMoved),
			slog.Int64("bets_moved", betsMoved),
			slog.Time("cutoff", cutoff),
		)
	}
}

// publish sends an event on the bus and mirrors it to the durable event
// stream. Failures are logged and swallowed; watching must not stop because
// Redis hiccupped.
func (w *Watcher) publish(ctx context.Context, channel string, evt map[string]string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		w.logger.WarnContext(ctx, "event marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := w.bus.Publish(ctx, channel, payload); err != nil {
		w.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := w.bus.StreamAppend(ctx, "events", payload); err != nil {
		w.logger.WarnContext(ctx, "event stream append failed",
			slog.String("error", err.Error()),
		)
	}
}

// notify forwards an operator alert when a notifier is attached. Delivery
// failures are logged only.
func (w *Watcher) notify(ctx context.Context, event, title, message string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, event, title, message); err != nil {
		w.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
