package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
)

func TestListOwnerBetsRequiresOwner(t *testing.T) {
	h := NewBetHandler(newFakeBetService(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/bets", nil)
	rr := httptest.NewRecorder()
	h.ListOwnerBets(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "owner query parameter required")
}

func TestListOwnerBets(t *testing.T) {
	svc := newFakeBetService()
	svc.byOwner[testOwnerAddr] = []domain.Bet{
		{Address: testBetAddr, Owner: testOwnerAddr, Market: testMarketAddr, Amount: 1_000, BetYes: true},
	}
	h := NewBetHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/bets?owner="+testOwnerAddr, nil)
	rr := httptest.NewRecorder()
	h.ListOwnerBets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listBetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Bets, 1)
	require.Equal(t, testBetAddr, resp.Bets[0].Address)
}

func TestListMarketBetsEmptyIsArrayNotNull(t *testing.T) {
	h := NewBetHandler(newFakeBetService(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets/"+testMarketAddr+"/bets", nil)
	req.SetPathValue("address", testMarketAddr)
	rr := httptest.NewRecorder()
	h.ListMarketBets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"bets":[]`)
}

func TestGetBetNotFound(t *testing.T) {
	h := NewBetHandler(newFakeBetService(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/bets/"+testBetAddr, nil)
	req.SetPathValue("address", testBetAddr)
	rr := httptest.NewRecorder()
	h.GetBet(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func quoteReq(t *testing.T, market, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/markets/"+market+"/quote", strings.NewReader(body))
	req.SetPathValue("address", market)
	return req
}

func TestQuotePayout(t *testing.T) {
	svc := newFakeBetService()
	svc.quote = domain.PayoutPreview{
		Market:          testMarketAddr,
		Amount:          10_000,
		BetYes:          true,
		EffectiveAmount: 10_500,
		Share:           4_000,
		Gross:           14_000,
		Fee:             420,
		Net:             13_580,
		QuotedAt:        time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
	h := NewBetHandler(svc, discardLogger())

	rr := httptest.NewRecorder()
	h.QuotePayout(rr, quoteReq(t, testMarketAddr,
		`{"amount":10000,"bet_yes":true,"owner":"`+testOwnerAddr+`"}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp domain.PayoutPreview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, uint64(13_580), resp.Net)

	require.Equal(t, solanago.MustPublicKeyFromBase58(testMarketAddr), svc.quotedMarket)
	require.Equal(t, uint64(10_000), svc.quotedAmount)
	require.True(t, svc.quotedYes)
	require.Equal(t, solanago.MustPublicKeyFromBase58(testOwnerAddr), svc.quotedOwner)
}

func TestQuotePayoutOwnerOptional(t *testing.T) {
	svc := newFakeBetService()
	h := NewBetHandler(svc, discardLogger())

	rr := httptest.NewRecorder()
	h.QuotePayout(rr, quoteReq(t, testMarketAddr, `{"amount":500,"bet_yes":false}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, svc.quotedOwner.IsZero())
}

func TestQuotePayoutRejectsBadInput(t *testing.T) {
	h := NewBetHandler(newFakeBetService(), discardLogger())

	cases := []struct {
		name   string
		market string
		body   string
		want   string
	}{
		{"bad market address", "not-base58", `{"amount":100}`, "invalid market address"},
		{"bad body", testMarketAddr, `{`, "invalid request body"},
		{"zero amount", testMarketAddr, `{"amount":0,"bet_yes":true}`, "amount must be positive"},
		{"bad owner", testMarketAddr, `{"amount":100,"owner":"nope"}`, "invalid owner address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.QuotePayout(rr, quoteReq(t, tc.market, tc.body))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Contains(t, rr.Body.String(), tc.want)
		})
	}
}

func TestQuotePayoutErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"market not found", domain.ErrNotFound, http.StatusNotFound},
		{"market closed", domain.ErrMarketClosed, http.StatusConflict},
		{"bet too large", domain.ErrBetTooLarge, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeBetService()
			svc.quoteErr = tc.err
			h := NewBetHandler(svc, discardLogger())

			rr := httptest.NewRecorder()
			h.QuotePayout(rr, quoteReq(t, testMarketAddr, `{"amount":100,"bet_yes":true}`))

			require.Equal(t, tc.want, rr.Code)
		})
	}
}
