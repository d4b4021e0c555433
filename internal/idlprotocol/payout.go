package idlprotocol

import (
	"fmt"
	"math/big"
)

// Client-side mirrors of the program's economic arithmetic. Integer only,
// divisions floor, and anything the program would abort on (checked add or
// mul) raises ErrArithmeticOverflow here. The chain stays authoritative;
// these exist so callers can quote outcomes before paying for a transaction.

const stakeBonusUnit = 1_000_000

// mulDivFloor computes floor(a*b/den) with a 128-bit intermediate, the way
// the program widens to u128 before dividing.
func mulDivFloor(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	prod := new(big.Int).SetUint64(a)
	prod.Mul(prod, new(big.Int).SetUint64(b))
	prod.Div(prod, new(big.Int).SetUint64(den))
	if !prod.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / %d exceeds 64 bits", ErrArithmeticOverflow, a, b, den)
	}
	return prod.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d exceeds 64 bits", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

// VeAmountForLock returns the veIDL minted for locking stakedAmount over
// lockDuration seconds: floor(staked * duration / maxLockDuration). The
// result never exceeds stakedAmount while the duration stays within the
// protocol maximum.
func (p Params) VeAmountForLock(stakedAmount uint64, lockDuration int64) (uint64, error) {
	if lockDuration < 0 || lockDuration > p.MaxLockDuration {
		return 0, fmt.Errorf("idlprotocol: lock duration %d outside [0, %d]", lockDuration, p.MaxLockDuration)
	}
	return mulDivFloor(stakedAmount, uint64(lockDuration), uint64(p.MaxLockDuration))
}

// StakerBonusBps returns the bet bonus in basis points: 1% per whole million
// staked, capped. Cannot overflow: the pre-cap product stays far below 64
// bits for any stakedAmount.
func (p Params) StakerBonusBps(stakedAmount uint64) uint64 {
	bonus := (stakedAmount / stakeBonusUnit) * p.StakeBonusPerMillionBps
	return min(bonus, p.MaxStakeBonusBps)
}

// EffectiveBetAmount applies the staker bonus the way the program does:
// floor(amount * (10000 + bonus) / 10000). The result never falls below
// amount.
func (p Params) EffectiveBetAmount(amount, stakedAmount uint64) (uint64, error) {
	multiplier := bpsDenom + p.StakerBonusBps(stakedAmount)
	return mulDivFloor(amount, multiplier, bpsDenom)
}

// PayoutQuote is the client-side estimate of settling one winning bet.
type PayoutQuote struct {
	Share uint64 // slice of the losing pool
	Gross uint64 // amount + share
	Fee   uint64 // protocol fee on gross
	Net   uint64 // gross - fee
}

// Payout reproduces the parimutuel settlement: share =
// floor(effectiveAmount * losingPool / winningPool) (zero when the winning
// pool is empty), gross = amount + share, fee floors at BetFeeBps of gross,
// net = gross - fee.
func (p Params) Payout(amount, effectiveAmount, winningPool, losingPool uint64) (PayoutQuote, error) {
	var share uint64
	if winningPool > 0 {
		var err error
		if share, err = mulDivFloor(effectiveAmount, losingPool, winningPool); err != nil {
			return PayoutQuote{}, err
		}
	}
	gross, err := checkedAdd(amount, share)
	if err != nil {
		return PayoutQuote{}, err
	}
	fee, err := mulDivFloor(gross, p.BetFeeBps, bpsDenom)
	if err != nil {
		return PayoutQuote{}, err
	}
	return PayoutQuote{Share: share, Gross: gross, Fee: fee, Net: gross - fee}, nil
}

// Pools splits the market totals into (winning, losing) from the point of
// view of one bet side.
func (m *PredictionMarket) Pools(betYes bool) (winning, losing uint64) {
	if betYes {
		return m.TotalYesAmount, m.TotalNoAmount
	}
	return m.TotalNoAmount, m.TotalYesAmount
}

// Won reports whether a bet is on the winning side of a resolved outcome.
func (b *Bet) Won(outcome bool) bool {
	return b.BetYes == outcome
}

// FeeSplit is a collected fee allocated across its four destinations. Each
// leg floors independently, matching the program's bookkeeping; rounding
// dust stays unallocated.
type FeeSplit struct {
	Staker   uint64
	Creator  uint64
	Treasury uint64
	Burn     uint64
}

// SplitFee allocates a fee per the protocol's share constants. Cannot
// overflow: every leg is a fraction of fee.
func (p Params) SplitFee(fee uint64) FeeSplit {
	leg := func(shareBps uint64) uint64 {
		v, _ := mulDivFloor(fee, shareBps, bpsDenom)
		return v
	}
	return FeeSplit{
		Staker:   leg(p.StakerFeeBps),
		Creator:  leg(p.CreatorFeeBps),
		Treasury: leg(p.TreasuryFeeBps),
		Burn:     leg(p.BurnFeeBps),
	}
}

// StakingRewardShare estimates a staker's slice of the reward pool:
// floor(staked * rewardPool / totalStaked), zero when nothing is staked.
func (p Params) StakingRewardShare(stakedAmount, rewardPool, totalStaked uint64) (uint64, error) {
	if totalStaked == 0 {
		return 0, nil
	}
	return mulDivFloor(stakedAmount, rewardPool, totalStaked)
}

// ResolveOutcome is the oracle's settlement rule: the market resolves YES
// when the observed value reaches the target.
func ResolveOutcome(actualValue, targetValue uint64) bool {
	return actualValue >= targetValue
}

// TierForVolume maps lifetime USD volume to the highest badge tier whose
// threshold it reaches.
func (p Params) TierForVolume(volumeUsd uint64) BadgeTier {
	tier := TierNone
	for i, threshold := range p.BadgeVolumeThresholds {
		if volumeUsd >= threshold {
			tier = BadgeTier(i + 1)
		}
	}
	return tier
}

// VeGrantForTier returns the veIDL grant attached to a badge tier.
func (p Params) VeGrantForTier(tier BadgeTier) uint64 {
	if tier == TierNone || !tier.Valid() {
		return 0
	}
	return p.BadgeVeGrants[tier-1]
}
