package domain

import (
	"math/bits"
	"time"
)

// MarketStatus represents the lifecycle state of a prediction market.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "open"     // accepting bets
	MarketStatusClosed   MarketStatus = "closed"   // past the betting cutoff, awaiting resolution
	MarketStatusResolved MarketStatus = "resolved"
)

// Market is a snapshot of an on-chain prediction market account, enriched
// with the account address and fetch metadata.
type Market struct {
	Address        string // base58 account address
	Creator        string
	ProtocolID     string // e.g. "jupiter", "marinade"
	Metric         string // "tvl", "volume_24h", "users", ...
	TargetValue    uint64
	ResolutionTime time.Time
	BetCutoffTime  time.Time // last instant bets are accepted
	Description    string
	TotalYesAmount uint64 // lamports of IDL
	TotalNoAmount  uint64
	Resolved       bool
	Outcome        *bool   // nil until resolved
	ActualValue    *uint64 // oracle-reported metric value, nil until resolved
	Oracle         string
	CreatedAt      time.Time
	Bump           uint8
	Slot           uint64 // slot the snapshot was taken at
	FetchedAt      time.Time
}

// StatusAt reports the market lifecycle state at the given instant.
func (m Market) StatusAt(now time.Time) MarketStatus {
	switch {
	case m.Resolved:
		return MarketStatusResolved
	case now.Before(m.BetCutoffTime):
		return MarketStatusOpen
	default:
		return MarketStatusClosed
	}
}

// Pool returns the total amount wagered on both sides.
func (m Market) Pool() uint64 {
	return m.TotalYesAmount + m.TotalNoAmount
}

// OddsBps returns the pool-implied probability of each outcome in basis
// points. The two values always sum to 10000; an empty market reports even
// odds.
func (m Market) OddsBps() (yesBps, noBps uint64) {
	pool := m.Pool()
	if pool == 0 {
		return 5000, 5000
	}
	hi, lo := bits.Mul64(m.TotalYesAmount, 10_000)
	yesBps, _ = bits.Div64(hi, lo, pool)
	return yesBps, 10_000 - yesBps
}
