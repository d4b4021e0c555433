package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const upsertBetQuery = `
	INSERT INTO bets (
		address, owner, market, amount, effective_amount,
		bet_yes, placed_at, claimed, bump, last_slot,
		fetched_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, NOW()
	)
	ON CONFLICT (address) DO UPDATE SET
		owner            = EXCLUDED.owner,
		market           = EXCLUDED.market,
		amount           = EXCLUDED.amount,
		effective_amount = EXCLUDED.effective_amount,
		bet_yes          = EXCLUDED.bet_yes,
		placed_at        = EXCLUDED.placed_at,
		claimed          = EXCLUDED.claimed,
		bump             = EXCLUDED.bump,
		last_slot        = EXCLUDED.last_slot,
		fetched_at       = EXCLUDED.fetched_at,
		updated_at       = NOW()`

func betArgs(b domain.Bet) []any {
	return []any{
		b.Address, b.Owner, b.Market, int64(b.Amount), int64(b.EffectiveAmount),
		b.BetYes, b.PlacedAt, b.Claimed, int16(b.Bump), int64(b.Slot),
		b.FetchedAt,
	}
}

// Upsert inserts or updates a single bet snapshot.
func (s *BetStore) Upsert(ctx context.Context, b domain.Bet) error {
	_, err := s.pool.Exec(ctx, upsertBetQuery, betArgs(b)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert bet %s: %w", b.Address, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple bet snapshots in a single batch.
func (s *BetStore) UpsertBatch(ctx context.Context, bets []domain.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, b := range bets {
		batch.Queue(upsertBetQuery, betArgs(b)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range bets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert bet batch item %d: %w", i, err)
		}
	}
	return nil
}

const betCols = `address, owner, market, amount, effective_amount,
	bet_yes, placed_at, claimed, bump, last_slot, fetched_at`

// scanBet scans a single bet row into a domain.Bet.
func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b         domain.Bet
		amount    int64
		effective int64
		bump      int16
		lastSlot  int64
	)
	err := row.Scan(
		&b.Address, &b.Owner, &b.Market, &amount, &effective,
		&b.BetYes, &b.PlacedAt, &b.Claimed, &bump, &lastSlot,
		&b.FetchedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Amount = uint64(amount)
	b.EffectiveAmount = uint64(effective)
	b.Bump = uint8(bump)
	b.Slot = uint64(lastSlot)
	return b, nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	defer rows.Close()
	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// GetByAddress retrieves a bet by its account address.
func (s *BetStore) GetByAddress(ctx context.Context, address string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE address = $1`, address)
	b, err := scanBet(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", address, err)
	}
	return b, nil
}

// ListByOwner returns bets placed by the given wallet, newest first.
func (s *BetStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Bet, error) {
	query, args := appendListOpts(
		`SELECT `+betCols+` FROM bets WHERE owner = $1`,
		[]any{owner}, opts, "placed_at", "placed_at DESC")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for owner %s: %w", owner, err)
	}
	bets, err := collectBets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for owner %s: %w", owner, err)
	}
	return bets, nil
}

// ListByMarket returns bets placed on the given market, newest first.
func (s *BetStore) ListByMarket(ctx context.Context, market string, opts domain.ListOpts) ([]domain.Bet, error) {
	query, args := appendListOpts(
		`SELECT `+betCols+` FROM bets WHERE market = $1`,
		[]any{market}, opts, "placed_at", "placed_at DESC")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %s: %w", market, err)
	}
	bets, err := collectBets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %s: %w", market, err)
	}
	return bets, nil
}

// Count returns the total number of bets in the database.
func (s *BetStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count bets: %w", err)
	}
	return count, nil
}

// ListClaimedBefore returns claimed bets placed before the cutoff, oldest
// first. Used by the archiver to select rows ready for cold storage.
func (s *BetStore) ListClaimedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE claimed = TRUE AND placed_at < $1
		 ORDER BY placed_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claimed bets before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	bets, err := collectBets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claimed bets before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return bets, nil
}

// DeleteByAddresses removes the given bets and reports how many rows were
// deleted.
func (s *BetStore) DeleteByAddresses(ctx context.Context, addresses []string) (int64, error) {
	if len(addresses) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM bets WHERE address = ANY($1)`, addresses)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete bets: %w", err)
	}
	return tag.RowsAffected(), nil
}
