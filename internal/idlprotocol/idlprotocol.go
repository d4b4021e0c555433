// Package idlprotocol implements the wire protocol of the IDL Protocol
// program: instruction building, account parsing, PDA derivation and the
// integer arithmetic behind client-side payout estimates.
//
// Everything in this package must stay byte-exact with the deployed program.
// All functions are pure transforms over their inputs, perform no I/O and are
// safe for concurrent use; network fetches, signing and retry belong to the
// layers that wrap it.
package idlprotocol

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the deployed address of the IDL Protocol program.
var ProgramID = solana.MustPublicKeyFromBase58("BSn7neicVV2kEzgaZmd6tZEBm4tdgzBRyELov65Lq7dt")

const bpsDenom = 10_000

// Params carries every protocol constant the client mirrors. The values must
// match the deployed program byte for byte; bundling them in one versioned
// struct keeps the literals out of call sites and lets a deployment check
// validate the whole set at startup.
type Params struct {
	Version int

	// Lock duration bounds for ve positions, in seconds.
	MaxLockDuration int64
	MinLockDuration int64

	// Betting closes this many seconds before market resolution.
	BetCutoffSecs int64

	// Fee on gross winnings and its destination split.
	BetFeeBps      uint64
	StakerFeeBps   uint64
	CreatorFeeBps  uint64
	TreasuryFeeBps uint64
	BurnFeeBps     uint64

	// Staker bet bonus: bps granted per whole million staked, and the cap.
	StakeBonusPerMillionBps uint64
	MaxStakeBonusBps        uint64

	// Upper bound a single bet may carry.
	MaxBetAmount uint64

	// Lifetime USD volume thresholds per badge tier (Bronze..Diamond) and
	// the veIDL grant attached to each.
	BadgeVolumeThresholds [5]uint64
	BadgeVeGrants         [5]uint64
}

// DefaultParams returns the v1 deployment constants.
func DefaultParams() Params {
	return Params{
		Version:                 1,
		MaxLockDuration:         126_144_000, // 4 years
		MinLockDuration:         604_800,     // 1 week
		BetCutoffSecs:           300,
		BetFeeBps:               300,
		StakerFeeBps:            5_000,
		CreatorFeeBps:           2_500,
		TreasuryFeeBps:          1_500,
		BurnFeeBps:              1_000,
		StakeBonusPerMillionBps: 100,
		MaxStakeBonusBps:        5_000,
		MaxBetAmount:            100_000_000_000_000,
		BadgeVolumeThresholds:   [5]uint64{1_000, 10_000, 100_000, 500_000, 1_000_000},
		BadgeVeGrants:           [5]uint64{50_000, 250_000, 1_000_000, 5_000_000, 20_000_000},
	}
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	var errs []string
	if p.MaxLockDuration <= 0 || p.MinLockDuration <= 0 {
		errs = append(errs, "lock durations must be positive")
	}
	if p.MinLockDuration > p.MaxLockDuration {
		errs = append(errs, "min lock duration exceeds max")
	}
	if p.BetCutoffSecs < 0 {
		errs = append(errs, "bet cutoff must not be negative")
	}
	if p.BetFeeBps > bpsDenom {
		errs = append(errs, "bet fee exceeds 100%")
	}
	if sum := p.StakerFeeBps + p.CreatorFeeBps + p.TreasuryFeeBps + p.BurnFeeBps; sum != bpsDenom {
		errs = append(errs, fmt.Sprintf("fee shares sum to %d bps, want %d", sum, bpsDenom))
	}
	if p.MaxStakeBonusBps > bpsDenom {
		errs = append(errs, "max stake bonus exceeds 100%")
	}
	if p.MaxBetAmount == 0 {
		errs = append(errs, "max bet amount must be positive")
	}
	for i := 1; i < len(p.BadgeVolumeThresholds); i++ {
		if p.BadgeVolumeThresholds[i] <= p.BadgeVolumeThresholds[i-1] {
			errs = append(errs, "badge volume thresholds must be strictly ascending")
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("idlprotocol: invalid params:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
