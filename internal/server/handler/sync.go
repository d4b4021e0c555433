package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SyncTrigger schedules one watcher cycle ahead of the ticker. Nil when the
// process runs without the watcher.
type SyncTrigger interface {
	Trigger()
}

// SyncHandler serves the manual sync trigger.
type SyncHandler struct {
	watcher SyncTrigger
	logger  *slog.Logger
}

// NewSyncHandler creates a SyncHandler. watcher may be nil in serve mode.
func NewSyncHandler(watcher SyncTrigger, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		watcher: watcher,
		logger:  logHandler(logger, "sync"),
	}
}

// TriggerSync enqueues one sync cycle. The request returns as soon as the
// cycle is scheduled, not when it completes; repeated triggers before the
// watcher picks one up coalesce into a single run.
// POST /api/sync
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "no watcher in this process")
		return
	}

	h.logger.InfoContext(r.Context(), "handler: sync requested")
	h.watcher.Trigger()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
