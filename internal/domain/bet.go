package domain

import "time"

// Bet is a snapshot of an on-chain bet account.
type Bet struct {
	Address         string // base58 account address
	Owner           string
	Market          string // market account address
	Amount          uint64 // wagered amount in lamports of IDL
	EffectiveAmount uint64 // amount after the staker bonus multiplier
	BetYes          bool
	PlacedAt        time.Time
	Claimed         bool
	Bump            uint8
	Slot            uint64
	FetchedAt       time.Time
}

// Won reports whether the bet picked the given market outcome.
func (b Bet) Won(outcome bool) bool {
	return b.BetYes == outcome
}

// BetReceipt is returned after a bet submission; the nonce is required to
// re-derive the bet address later.
type BetReceipt struct {
	BetAddress  string
	Market      string
	Nonce       uint64
	Amount      uint64
	BetYes      bool
	Signature   string // transaction signature
	SubmittedAt time.Time
}

// PayoutPreview is a dry-run settlement quote for a hypothetical bet against
// the current pools, assuming the chosen side wins and no further bets land.
// All amounts in lamports of IDL; the chain stays authoritative.
type PayoutPreview struct {
	Market          string
	Amount          uint64
	BetYes          bool
	BonusBps        uint64 // staker bonus applied to the wager
	EffectiveAmount uint64 // amount after the bonus multiplier
	Share           uint64 // slice of the losing pool
	Gross           uint64 // amount + share
	Fee             uint64 // protocol fee on gross
	Net             uint64 // gross - fee
	QuotedAt        time.Time
}
