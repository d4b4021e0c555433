package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// BetService defines the methods the bet handler requires from the service
// layer.
type BetService interface {
	GetBet(ctx context.Context, address string) (domain.Bet, error)
	ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Bet, error)
	ListByMarket(ctx context.Context, market string, opts domain.ListOpts) ([]domain.Bet, error)
	QuotePayout(ctx context.Context, market solanago.PublicKey, amount uint64, betYes bool, owner solanago.PublicKey) (domain.PayoutPreview, error)
}

// BetHandler serves bet-related HTTP endpoints, including the payout quote.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logHandler(logger, "bet"),
	}
}

// listBetsResponse wraps the list endpoints' output.
type listBetsResponse struct {
	Bets   []domain.Bet `json:"bets"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListOwnerBets returns a wallet's bets.
// GET /api/bets?owner=<address>&limit=50&offset=0
func (h *BetHandler) ListOwnerBets(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	opts := parseListOpts(r)
	bets, err := h.bets.ListByOwner(r.Context(), owner, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list bets failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}
	if bets == nil {
		bets = []domain.Bet{}
	}

	writeJSON(w, http.StatusOK, listBetsResponse{
		Bets:   bets,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// ListMarketBets returns the bets placed on one market.
// GET /api/markets/{address}/bets?limit=50&offset=0
func (h *BetHandler) ListMarketBets(w http.ResponseWriter, r *http.Request) {
	market := pathParam(r, "address")
	if market == "" {
		writeError(w, http.StatusBadRequest, "missing market address")
		return
	}

	opts := parseListOpts(r)
	bets, err := h.bets.ListByMarket(r.Context(), market, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market bets failed",
			slog.String("market", market),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}
	if bets == nil {
		bets = []domain.Bet{}
	}

	writeJSON(w, http.StatusOK, listBetsResponse{
		Bets:   bets,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetBet returns a single bet by its account address.
// GET /api/bets/{address}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing bet address")
		return
	}

	bet, err := h.bets.GetBet(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bet not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get bet failed",
			slog.String("bet", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get bet")
		return
	}

	writeJSON(w, http.StatusOK, bet)
}

// quoteRequest is the JSON body for the payout quote endpoint. Owner is
// optional; when present the quote applies that wallet's staker bonus.
type quoteRequest struct {
	Amount uint64 `json:"amount"`
	BetYes bool   `json:"bet_yes"`
	Owner  string `json:"owner,omitempty"`
}

// QuotePayout prices a hypothetical bet against the market's live pools.
// POST /api/markets/{address}/quote
func (h *BetHandler) QuotePayout(w http.ResponseWriter, r *http.Request) {
	market, err := solanago.PublicKeyFromBase58(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	var owner solanago.PublicKey
	if req.Owner != "" {
		owner, err = solanago.PublicKeyFromBase58(req.Owner)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid owner address")
			return
		}
	}

	quote, err := h.bets.QuotePayout(r.Context(), market, req.Amount, req.BetYes, owner)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, domain.ErrMarketClosed):
			writeError(w, http.StatusConflict, "market is not accepting bets")
		case errors.Is(err, domain.ErrBetTooLarge):
			writeError(w, http.StatusBadRequest, "bet exceeds maximum amount")
		default:
			h.logger.ErrorContext(r.Context(), "handler: quote payout failed",
				slog.String("market", market.String()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to quote payout")
		}
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
