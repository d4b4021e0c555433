package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// StakeService defines the methods the staker handler requires from the
// service layer. Both lookups read the chain directly.
type StakeService interface {
	GetStaker(ctx context.Context, owner solanago.PublicKey) (domain.StakePosition, *domain.VeLock, error)
	GetBadge(ctx context.Context, owner solanago.PublicKey) (domain.Badge, error)
}

// StakerHandler serves staker and volume badge lookups.
type StakerHandler struct {
	stakers StakeService
	logger  *slog.Logger
}

// NewStakerHandler creates a StakerHandler with the given service and logger.
func NewStakerHandler(stakers StakeService, logger *slog.Logger) *StakerHandler {
	return &StakerHandler{
		stakers: stakers,
		logger:  logHandler(logger, "staker"),
	}
}

// stakerResponse bundles a stake position with its vote-escrow lock, when one
// exists.
type stakerResponse struct {
	Staker domain.StakePosition `json:"staker"`
	VeLock *domain.VeLock       `json:"ve_lock,omitempty"`
}

// GetStaker returns a wallet's stake position and ve lock.
// GET /api/stakers/{address}
func (h *StakerHandler) GetStaker(w http.ResponseWriter, r *http.Request) {
	owner, err := solanago.PublicKeyFromBase58(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staker address")
		return
	}

	staker, lock, err := h.stakers.GetStaker(r.Context(), owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "staker not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get staker failed",
			slog.String("owner", owner.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get staker")
		return
	}

	writeJSON(w, http.StatusOK, stakerResponse{Staker: staker, VeLock: lock})
}

// GetBadge returns a wallet's volume badge.
// GET /api/badges/{address}
func (h *StakerHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	owner, err := solanago.PublicKeyFromBase58(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid badge owner address")
		return
	}

	badge, err := h.stakers.GetBadge(r.Context(), owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "badge not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get badge failed",
			slog.String("owner", owner.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get badge")
		return
	}

	writeJSON(w, http.StatusOK, badge)
}
