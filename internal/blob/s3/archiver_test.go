package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
)

type fakeMarketArchiveStore struct {
	markets   []domain.Market
	deleted   []string
	deleteErr error
}

func (f *fakeMarketArchiveStore) ListResolvedBefore(_ context.Context, _ time.Time, limit int) ([]domain.Market, error) {
	if limit < len(f.markets) {
		return f.markets[:limit], nil
	}
	return f.markets, nil
}

func (f *fakeMarketArchiveStore) DeleteByAddresses(_ context.Context, addresses []string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, addresses...)
	return int64(len(addresses)), nil
}

type fakeBetArchiveStore struct {
	bets    []domain.Bet
	deleted []string
}

func (f *fakeBetArchiveStore) ListClaimedBefore(_ context.Context, _ time.Time, limit int) ([]domain.Bet, error) {
	if limit < len(f.bets) {
		return f.bets[:limit], nil
	}
	return f.bets, nil
}

func (f *fakeBetArchiveStore) DeleteByAddresses(_ context.Context, addresses []string) (int64, error) {
	f.deleted = append(f.deleted, addresses...)
	return int64(len(addresses)), nil
}

type fakeBlobWriter struct {
	puts       map[string][]byte
	multiparts map[string][]byte
}

func newFakeBlobWriter() *fakeBlobWriter {
	return &fakeBlobWriter{
		puts:       map[string][]byte{},
		multiparts: map[string][]byte{},
	}
}

func (f *fakeBlobWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.puts[path] = buf
	return nil
}

func (f *fakeBlobWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.multiparts[path] = buf
	return nil
}

type fakeAuditStore struct {
	events  []string
	details []map[string]any
}

func (f *fakeAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	f.events = append(f.events, event)
	f.details = append(f.details, detail)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func archivedMarket(address string) domain.Market {
	outcome := true
	actual := uint64(2_000_000)
	return domain.Market{
		Address:        address,
		ProtocolID:     "jupiter",
		Metric:         "tvl",
		TargetValue:    1_000_000,
		ResolutionTime: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Resolved:       true,
		Outcome:        &outcome,
		ActualValue:    &actual,
	}
}

func TestArchiveMarketsMovesRows(t *testing.T) {
	markets := &fakeMarketArchiveStore{
		markets: []domain.Market{archivedMarket("mktA"), archivedMarket("mktB")},
	}
	writer := newFakeBlobWriter()
	audit := &fakeAuditStore{}

	a := NewArchiver(writer, markets, &fakeBetArchiveStore{}, audit, 0)

	before := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveMarkets(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.Len(t, writer.puts, 1)
	var path string
	var data []byte
	for p, d := range writer.puts {
		path, data = p, d
	}
	assert.True(t, strings.HasPrefix(path, "archive/markets/2026-05/"), "unexpected path %s", path)
	assert.True(t, strings.HasSuffix(path, ".jsonl"))

	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	var first domain.Market
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "mktA", first.Address)
	require.NotNil(t, first.Outcome)
	assert.True(t, *first.Outcome)

	assert.Equal(t, []string{"mktA", "mktB"}, markets.deleted)
	require.Equal(t, []string{"archive.markets"}, audit.events)
	assert.Equal(t, int64(2), audit.details[0]["count"])
}

func TestArchiveMarketsNothingToDo(t *testing.T) {
	writer := newFakeBlobWriter()
	audit := &fakeAuditStore{}
	a := NewArchiver(writer, &fakeMarketArchiveStore{}, &fakeBetArchiveStore{}, audit, 100)

	count, err := a.ArchiveMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.puts)
	assert.Empty(t, audit.events)
}

func TestArchiveMarketsDeleteFailureKeepsCount(t *testing.T) {
	markets := &fakeMarketArchiveStore{
		markets:   []domain.Market{archivedMarket("mktA")},
		deleteErr: errors.New("connection reset"),
	}
	writer := newFakeBlobWriter()
	audit := &fakeAuditStore{}
	a := NewArchiver(writer, markets, &fakeBetArchiveStore{}, audit, 100)

	count, err := a.ArchiveMarkets(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, writer.puts, 1)
	assert.Empty(t, audit.events)
}

func TestArchiveBetsMovesRows(t *testing.T) {
	bets := &fakeBetArchiveStore{
		bets: []domain.Bet{
			{Address: "betA", Owner: "w1", Market: "mktA", Amount: 100, Claimed: true},
			{Address: "betB", Owner: "w2", Market: "mktA", Amount: 250, Claimed: true},
			{Address: "betC", Owner: "w3", Market: "mktB", Amount: 400, Claimed: true},
		},
	}
	writer := newFakeBlobWriter()
	audit := &fakeAuditStore{}
	a := NewArchiver(writer, &fakeMarketArchiveStore{}, bets, audit, 100)

	before := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveBets(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []string{"betA", "betB", "betC"}, bets.deleted)
	require.Equal(t, []string{"archive.bets"}, audit.events)

	require.Len(t, writer.puts, 1)
	for path := range writer.puts {
		assert.True(t, strings.HasPrefix(path, "archive/bets/2026-05/"), "unexpected path %s", path)
	}
}

func TestArchiveBatchSizeCapsRun(t *testing.T) {
	markets := &fakeMarketArchiveStore{
		markets: []domain.Market{archivedMarket("mktA"), archivedMarket("mktB"), archivedMarket("mktC")},
	}
	a := NewArchiver(newFakeBlobWriter(), markets, &fakeBetArchiveStore{}, &fakeAuditStore{}, 2)

	count, err := a.ArchiveMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, []string{"mktA", "mktB"}, markets.deleted)
}

func TestUploadSwitchesToMultipartForLargePayloads(t *testing.T) {
	writer := newFakeBlobWriter()
	a := NewArchiver(writer, &fakeMarketArchiveStore{}, &fakeBetArchiveStore{}, &fakeAuditStore{}, 0)

	small := []byte("one line\n")
	require.NoError(t, a.upload(context.Background(), "small.jsonl", small))
	assert.Contains(t, writer.puts, "small.jsonl")
	assert.NotContains(t, writer.multiparts, "small.jsonl")

	large := make([]byte, minPartSize+1)
	require.NoError(t, a.upload(context.Background(), "large.jsonl", large))
	assert.Contains(t, writer.multiparts, "large.jsonl")
	assert.NotContains(t, writer.puts, "large.jsonl")
}
