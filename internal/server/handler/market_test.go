package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
)

func sampleMarket(address, protocolID string) domain.Market {
	return domain.Market{
		Address:        address,
		ProtocolID:     protocolID,
		Metric:         "tvl",
		TargetValue:    1_000_000,
		ResolutionTime: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		BetCutoffTime:  time.Date(2026, 8, 31, 23, 55, 0, 0, time.UTC),
		TotalYesAmount: 600,
		TotalNoAmount:  400,
	}
}

func TestListMarketsDefaultsToOpen(t *testing.T) {
	svc := newFakeMarketService()
	svc.open = []domain.Market{sampleMarket(testMarketAddr, "jupiter")}
	svc.resolved = []domain.Market{sampleMarket(testBetAddr, "marinade")}
	svc.count = 7
	h := NewMarketHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	rr := httptest.NewRecorder()
	h.ListMarkets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listMarketsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 1)
	require.Equal(t, testMarketAddr, resp.Markets[0].Address)
	require.Equal(t, int64(7), resp.Total)
	require.Equal(t, 50, resp.Limit)
	require.Equal(t, 0, resp.Offset)
}

func TestListMarketsResolvedFilter(t *testing.T) {
	svc := newFakeMarketService()
	svc.resolved = []domain.Market{sampleMarket(testBetAddr, "marinade")}
	h := NewMarketHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets?status=resolved", nil)
	rr := httptest.NewRecorder()
	h.ListMarkets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listMarketsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 1)
	require.Equal(t, testBetAddr, resp.Markets[0].Address)
}

func TestListMarketsProtocolFilterWins(t *testing.T) {
	svc := newFakeMarketService()
	svc.open = []domain.Market{sampleMarket(testBetAddr, "marinade")}
	svc.byProto["jupiter"] = []domain.Market{sampleMarket(testMarketAddr, "jupiter")}
	h := NewMarketHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets?protocol=jupiter&status=resolved", nil)
	rr := httptest.NewRecorder()
	h.ListMarkets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listMarketsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 1)
	require.Equal(t, "jupiter", resp.Markets[0].ProtocolID)
}

func TestListMarketsEmptyIsArrayNotNull(t *testing.T) {
	h := NewMarketHandler(newFakeMarketService(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	rr := httptest.NewRecorder()
	h.ListMarkets(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"markets":[]`)
}

func TestGetMarketNotFound(t *testing.T) {
	h := NewMarketHandler(newFakeMarketService(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets/"+testMarketAddr, nil)
	req.SetPathValue("address", testMarketAddr)
	rr := httptest.NewRecorder()
	h.GetMarket(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "market not found")
}

func TestGetMarketFound(t *testing.T) {
	svc := newFakeMarketService()
	svc.markets[testMarketAddr] = sampleMarket(testMarketAddr, "jupiter")
	h := NewMarketHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/markets/"+testMarketAddr, nil)
	req.SetPathValue("address", testMarketAddr)
	rr := httptest.NewRecorder()
	h.GetMarket(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var m domain.Market
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	require.Equal(t, testMarketAddr, m.Address)
	require.Equal(t, uint64(600), m.TotalYesAmount)
}
