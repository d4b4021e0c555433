package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/server/handler"
)

const (
	testOwner  = "So11111111111111111111111111111111111111112"
	testMarket = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubMarkets struct{}

func (stubMarkets) GetMarket(ctx context.Context, address string) (domain.Market, error) {
	return domain.Market{Address: address}, nil
}
func (stubMarkets) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}
func (stubMarkets) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}
func (stubMarkets) ListByProtocol(ctx context.Context, protocolID string, opts domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}
func (stubMarkets) Count(ctx context.Context) (int64, error) { return 0, nil }

type stubBets struct{}

func (stubBets) GetBet(ctx context.Context, address string) (domain.Bet, error) {
	return domain.Bet{Address: address}, nil
}
func (stubBets) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Bet, error) {
	return nil, nil
}
func (stubBets) ListByMarket(ctx context.Context, market string, opts domain.ListOpts) ([]domain.Bet, error) {
	return nil, nil
}
func (stubBets) QuotePayout(ctx context.Context, market solanago.PublicKey, amount uint64, betYes bool, owner solanago.PublicKey) (domain.PayoutPreview, error) {
	return domain.PayoutPreview{Market: market.String(), Amount: amount}, nil
}

type stubStakers struct{}

func (stubStakers) GetStaker(ctx context.Context, owner solanago.PublicKey) (domain.StakePosition, *domain.VeLock, error) {
	return domain.StakePosition{Owner: owner.String()}, nil, nil
}
func (stubStakers) GetBadge(ctx context.Context, owner solanago.PublicKey) (domain.Badge, error) {
	return domain.Badge{Owner: owner.String(), Tier: "bronze"}, nil
}

type stubState struct{}

func (stubState) State(ctx context.Context) (domain.ProtocolStatus, error) {
	return domain.ProtocolStatus{Authority: testOwner}, nil
}

type stubTrigger struct{}

func (stubTrigger) Trigger() {}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}
func (denyLimiter) Wait(ctx context.Context, key string) error { return nil }

func newTestServer(t *testing.T, cfg Config, limiter domain.RateLimiter) *Server {
	t.Helper()
	logger := discardLogger()
	h := Handlers{
		Health: handler.NewHealthHandler(),
		Status: handler.NewStatusHandler("serve", time.Now(), nil, stubMarkets{}, logger),
		State:  handler.NewStateHandler(stubState{}, logger),
		Market: handler.NewMarketHandler(stubMarkets{}, logger),
		Bet:    handler.NewBetHandler(stubBets{}, logger),
		Staker: handler.NewStakerHandler(stubStakers{}, logger),
		Sync:   handler.NewSyncHandler(stubTrigger{}, logger),
	}
	return New(cfg, h, nil, limiter, logger)
}

func TestRouteMatrix(t *testing.T) {
	srv := newTestServer(t, Config{Port: 8080}, nil)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/status", "", http.StatusOK},
		{http.MethodGet, "/api/state", "", http.StatusOK},
		{http.MethodGet, "/api/markets", "", http.StatusOK},
		{http.MethodGet, "/api/markets/" + testMarket, "", http.StatusOK},
		{http.MethodGet, "/api/markets/" + testMarket + "/bets", "", http.StatusOK},
		{http.MethodPost, "/api/markets/" + testMarket + "/quote", `{"amount":100,"bet_yes":true}`, http.StatusOK},
		{http.MethodGet, "/api/bets?owner=" + testOwner, "", http.StatusOK},
		{http.MethodGet, "/api/bets/" + testMarket, "", http.StatusOK},
		{http.MethodGet, "/api/stakers/" + testOwner, "", http.StatusOK},
		{http.MethodGet, "/api/badges/" + testOwner, "", http.StatusOK},
		{http.MethodPost, "/api/sync", "", http.StatusAccepted},
		{http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{http.MethodDelete, "/api/markets", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			rr := httptest.NewRecorder()
			srv.httpServer.Handler.ServeHTTP(rr, req)

			require.Equal(t, tc.want, rr.Code, "body: %s", rr.Body.String())
		})
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	srv := newTestServer(t, Config{Port: 8080}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOmitsHeadersForUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, Config{Port: 8080, CORSOrigins: []string{"http://localhost:3000"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterDenies(t *testing.T) {
	srv := newTestServer(t, Config{Port: 8080}, denyLimiter{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "rate limit exceeded")
}
