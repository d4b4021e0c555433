package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketQuery = `
	INSERT INTO markets (
		address, creator, protocol_id, metric, target_value,
		resolution_ts, bet_cutoff_ts, description, total_yes, total_no,
		resolved, outcome, actual_value, oracle, created_at,
		bump, last_slot, fetched_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15,
		$16, $17, $18, NOW()
	)
	ON CONFLICT (address) DO UPDATE SET
		creator       = EXCLUDED.creator,
		protocol_id   = EXCLUDED.protocol_id,
		metric        = EXCLUDED.metric,
		target_value  = EXCLUDED.target_value,
		resolution_ts = EXCLUDED.resolution_ts,
		bet_cutoff_ts = EXCLUDED.bet_cutoff_ts,
		description   = EXCLUDED.description,
		total_yes     = EXCLUDED.total_yes,
		total_no      = EXCLUDED.total_no,
		resolved      = EXCLUDED.resolved,
		outcome       = EXCLUDED.outcome,
		actual_value  = EXCLUDED.actual_value,
		oracle        = EXCLUDED.oracle,
		bump          = EXCLUDED.bump,
		last_slot     = EXCLUDED.last_slot,
		fetched_at    = EXCLUDED.fetched_at,
		updated_at    = NOW()`

// marketArgs flattens a market into upsert arguments. On-chain u64 amounts
// are stored as BIGINT; they stay well below 2^63 because they are bounded
// by the token supply.
func marketArgs(m domain.Market) []any {
	return []any{
		m.Address, m.Creator, m.ProtocolID, m.Metric, int64(m.TargetValue),
		m.ResolutionTime, m.BetCutoffTime, m.Description,
		int64(m.TotalYesAmount), int64(m.TotalNoAmount),
		m.Resolved, m.Outcome, nullableInt64(m.ActualValue),
		m.Oracle, m.CreatedAt,
		int16(m.Bump), int64(m.Slot), m.FetchedAt,
	}
}

func nullableInt64(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	iv := int64(*v)
	return &iv
}

// Upsert inserts or updates a single market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	_, err := s.pool.Exec(ctx, upsertMarketQuery, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.Address, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple market snapshots in a single batch.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(upsertMarketQuery, marketArgs(m)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

const marketCols = `address, creator, protocol_id, metric, target_value,
	resolution_ts, bet_cutoff_ts, description, total_yes, total_no,
	resolved, outcome, actual_value, oracle, created_at,
	bump, last_slot, fetched_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m           domain.Market
		targetValue int64
		totalYes    int64
		totalNo     int64
		actualValue *int64
		bump        int16
		lastSlot    int64
	)
	err := row.Scan(
		&m.Address, &m.Creator, &m.ProtocolID, &m.Metric, &targetValue,
		&m.ResolutionTime, &m.BetCutoffTime, &m.Description,
		&totalYes, &totalNo,
		&m.Resolved, &m.Outcome, &actualValue,
		&m.Oracle, &m.CreatedAt,
		&bump, &lastSlot, &m.FetchedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.TargetValue = uint64(targetValue)
	m.TotalYesAmount = uint64(totalYes)
	m.TotalNoAmount = uint64(totalNo)
	if actualValue != nil {
		av := uint64(*actualValue)
		m.ActualValue = &av
	}
	m.Bump = uint8(bump)
	m.Slot = uint64(lastSlot)
	return m, nil
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	defer rows.Close()
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// appendListOpts appends time filters and pagination to a list query that
// already has a WHERE clause. timeCol is the column Since/Until apply to.
func appendListOpts(query string, args []any, opts domain.ListOpts, timeCol, orderBy string) (string, []any) {
	argIdx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND %s >= $%d", timeCol, argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND %s <= $%d", timeCol, argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY " + orderBy

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

// GetByAddress retrieves a market by its account address.
func (s *MarketStore) GetByAddress(ctx context.Context, address string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE address = $1`, address)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", address, err)
	}
	return m, nil
}

// ListOpen returns unresolved markets ordered by soonest resolution.
func (s *MarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query, args := appendListOpts(
		`SELECT `+marketCols+` FROM markets WHERE resolved = FALSE`,
		nil, opts, "created_at", "resolution_ts ASC")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	markets, err := collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	return markets, nil
}

// ListResolved returns resolved markets, most recently resolved first.
func (s *MarketStore) ListResolved(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query, args := appendListOpts(
		`SELECT `+marketCols+` FROM markets WHERE resolved = TRUE`,
		nil, opts, "created_at", "resolution_ts DESC")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets: %w", err)
	}
	markets, err := collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets: %w", err)
	}
	return markets, nil
}

// ListByProtocol returns markets tracking the given protocol, newest first.
func (s *MarketStore) ListByProtocol(ctx context.Context, protocolID string, opts domain.ListOpts) ([]domain.Market, error) {
	query, args := appendListOpts(
		`SELECT `+marketCols+` FROM markets WHERE protocol_id = $1`,
		[]any{protocolID}, opts, "created_at", "created_at DESC")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets for protocol %s: %w", protocolID, err)
	}
	markets, err := collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets for protocol %s: %w", protocolID, err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// ListResolvedBefore returns markets resolved before the cutoff, oldest
// first. Used by the archiver to select rows ready for cold storage.
func (s *MarketStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE resolved = TRUE AND resolution_ts < $1
		 ORDER BY resolution_ts ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	markets, err := collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved markets before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return markets, nil
}

// DeleteByAddresses removes the given markets and reports how many rows
// were deleted.
func (s *MarketStore) DeleteByAddresses(ctx context.Context, addresses []string) (int64, error) {
	if len(addresses) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE address = ANY($1)`, addresses)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete markets: %w", err)
	}
	return tag.RowsAffected(), nil
}
