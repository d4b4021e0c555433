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

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestGetStatusWithWatcher(t *testing.T) {
	lastSync := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	h := NewStatusHandler(
		"full",
		time.Now().Add(-90*time.Second),
		&fakeSyncSource{at: lastSync, ok: true},
		&fakeCounter{count: 12},
		discardLogger(),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var st domain.ServiceStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.Equal(t, "full", st.Mode)
	require.True(t, st.WatcherRunning)
	require.GreaterOrEqual(t, st.UptimeSeconds, int64(90))
	require.NotNil(t, st.LastSyncAt)
	require.WithinDuration(t, lastSync, *st.LastSyncAt, time.Second)
	require.Equal(t, int64(12), st.MarketsTracked)
}

func TestGetStatusServeModeHasNoWatcher(t *testing.T) {
	h := NewStatusHandler("serve", time.Now(), nil, &fakeCounter{count: 3}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var st domain.ServiceStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.False(t, st.WatcherRunning)
	require.Nil(t, st.LastSyncAt)
}

func TestGetStatusBeforeFirstSync(t *testing.T) {
	h := NewStatusHandler("watch", time.Now(), &fakeSyncSource{}, &fakeCounter{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var st domain.ServiceStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.True(t, st.WatcherRunning)
	require.Nil(t, st.LastSyncAt)
}

func TestGetState(t *testing.T) {
	svc := &fakeStateService{st: domain.ProtocolStatus{
		Authority:   testOwnerAddr,
		TotalStaked: 9_000_000,
		Paused:      false,
	}}
	h := NewStateHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rr := httptest.NewRecorder()
	h.GetState(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var st domain.ProtocolStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	require.Equal(t, testOwnerAddr, st.Authority)
	require.Equal(t, uint64(9_000_000), st.TotalStaked)
}

func TestGetStateNotFound(t *testing.T) {
	h := NewStateHandler(&fakeStateService{err: domain.ErrNotFound}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rr := httptest.NewRecorder()
	h.GetState(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "protocol state not found")
}

func TestTriggerSyncSchedulesCycle(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewSyncHandler(trigger, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rr := httptest.NewRecorder()
	h.TriggerSync(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, 1, trigger.calls)
}

func TestTriggerSyncWithoutWatcher(t *testing.T) {
	h := NewSyncHandler(nil, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rr := httptest.NewRecorder()
	h.TriggerSync(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "no watcher")
}
