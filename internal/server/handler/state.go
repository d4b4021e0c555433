package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// StateService defines what the state handler needs from the service layer.
type StateService interface {
	State(ctx context.Context) (domain.ProtocolStatus, error)
}

// StateHandler serves the global protocol state account.
type StateHandler struct {
	state  StateService
	logger *slog.Logger
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(state StateService, logger *slog.Logger) *StateHandler {
	return &StateHandler{
		state:  state,
		logger: logHandler(logger, "state"),
	}
}

// GetState returns the protocol state snapshot.
// GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.State(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "protocol state not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get state failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get protocol state")
		return
	}

	writeJSON(w, http.StatusOK, st)
}
