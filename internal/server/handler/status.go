package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// SyncSource reports when the watcher last completed a sync cycle. Nil when
// the process runs without the watcher.
type SyncSource interface {
	LastSync() (time.Time, bool)
}

// MarketCounter reports how many markets the store tracks.
type MarketCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatusHandler serves the daemon's operational summary for the dashboard.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	watcher   SyncSource
	markets   MarketCounter
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. watcher may be nil in serve mode.
func NewStatusHandler(mode string, startedAt time.Time, watcher SyncSource, markets MarketCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		watcher:   watcher,
		markets:   markets,
		logger:    logHandler(logger, "status"),
	}
}

// GetStatus responds with the current mode, uptime and sync progress.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := domain.ServiceStatus{
		Mode:           h.mode,
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		WatcherRunning: h.watcher != nil,
	}
	if st.UptimeSeconds < 0 {
		st.UptimeSeconds = 0
	}

	if h.watcher != nil {
		if at, ok := h.watcher.LastSync(); ok {
			st.LastSyncAt = &at
		}
	}

	count, err := h.markets.Count(r.Context())
	if err != nil {
		// Status stays useful even when the store is unreachable.
		h.logger.WarnContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
	} else {
		st.MarketsTracked = count
	}

	writeJSON(w, http.StatusOK, st)
}
