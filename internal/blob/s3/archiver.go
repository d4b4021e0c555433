package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these implicitly; the archiver does not need the full domain
// store surface.

// MarketArchiveStore provides the market queries the archiver needs.
type MarketArchiveStore interface {
	// ListResolvedBefore returns markets resolved before the cutoff, oldest
	// first, capped at limit.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Market, error)
	DeleteByAddresses(ctx context.Context, addresses []string) (int64, error)
}

// BetArchiveStore provides the bet queries the archiver needs.
type BetArchiveStore interface {
	// ListClaimedBefore returns claimed bets placed before the cutoff, oldest
	// first, capped at limit.
	ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Bet, error)
	DeleteByAddresses(ctx context.Context, addresses []string) (int64, error)
}

// defaultArchiveBatch caps how many rows a single archive run moves when the
// caller does not configure a batch size.
const defaultArchiveBatch = 500

// Archiver implements domain.Archiver. Each run selects settled rows older
// than the cutoff, uploads them as JSONL to object storage, deletes them
// from the database, and records the run in the audit log.
//
// Upload happens before deletion, so a failed run can only produce duplicate
// archive objects, never lose rows.
type Archiver struct {
	writer    domain.BlobWriter
	markets   MarketArchiveStore
	bets      BetArchiveStore
	audit     domain.AuditStore
	batchSize int
}

// NewArchiver creates an Archiver. batchSize <= 0 selects the default.
func NewArchiver(
	writer domain.BlobWriter,
	markets MarketArchiveStore,
	bets BetArchiveStore,
	audit domain.AuditStore,
	batchSize int,
) *Archiver {
	if batchSize <= 0 {
		batchSize = defaultArchiveBatch
	}
	return &Archiver{
		writer:    writer,
		markets:   markets,
		bets:      bets,
		audit:     audit,
		batchSize: batchSize,
	}
}

// ArchiveMarkets moves resolved markets older than the cutoff to object
// storage and returns how many rows were archived. At most one batch is
// moved per call; the watcher invokes it periodically until it reports zero.
func (a *Archiver) ArchiveMarkets(ctx context.Context, before time.Time) (int64, error) {
	markets, err := a.markets.ListResolvedBefore(ctx, before, a.batchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets query: %w", err)
	}
	if len(markets) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(markets)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive markets marshal: %w", err)
	}

	path := archivePath("markets", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive markets upload: %w", err)
	}

	addresses := make([]string, len(markets))
	for i, m := range markets {
		addresses[i] = m.Address
	}

	count := int64(len(markets))

	deleted, err := a.markets.DeleteByAddresses(ctx, addresses)
	if err != nil {
		// The upload succeeded; the rows stay put and will be re-archived
		// under a fresh key on the next run.
		return count, fmt.Errorf("s3blob: archive markets delete: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.markets", map[string]any{
		"path":    path,
		"count":   count,
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive markets audit log: %w", err)
	}

	return count, nil
}

// ArchiveBets moves claimed bets placed before the cutoff to object storage
// and returns how many rows were archived.
func (a *Archiver) ArchiveBets(ctx context.Context, before time.Time) (int64, error) {
	bets, err := a.bets.ListClaimedBefore(ctx, before, a.batchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bets query: %w", err)
	}
	if len(bets) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(bets)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bets marshal: %w", err)
	}

	path := archivePath("bets", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive bets upload: %w", err)
	}

	addresses := make([]string, len(bets))
	for i, b := range bets {
		addresses[i] = b.Address
	}

	count := int64(len(bets))

	deleted, err := a.bets.DeleteByAddresses(ctx, addresses)
	if err != nil {
		return count, fmt.Errorf("s3blob: archive bets delete: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.bets", map[string]any{
		"path":    path,
		"count":   count,
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive bets audit log: %w", err)
	}

	return count, nil
}

// upload sends the buffer through the multipart path when it exceeds the S3
// part-size threshold, and as a single PutObject otherwise.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	if int64(len(buf)) > minPartSize {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the object key for an archive batch. Keys carry the run
// timestamp because archived rows are deleted afterwards; reusing a key
// across runs would clobber earlier batches.
//
//	archive/markets/2026-08/20260825T143000Z.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s.jsonl",
		kind, before.Format("2006-01"), time.Now().UTC().Format("20060102T150405Z"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
