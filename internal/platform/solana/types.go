package solana

import (
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/idlprotocol/idlbot/internal/domain"
	"github.com/idlprotocol/idlbot/internal/idlprotocol"
)

// The functions below turn parsed program accounts into the domain views the
// rest of the repo passes around. The snapshot slot and fetch time are
// stamped by the caller so one sync cycle carries one consistent timestamp.

// MarketToDomain maps a parsed market account to its domain view.
func MarketToDomain(address solanago.PublicKey, acc *idlprotocol.PredictionMarket, params idlprotocol.Params, slot uint64, fetchedAt time.Time) domain.Market {
	resolution := time.Unix(acc.ResolutionTimestamp, 0).UTC()
	m := domain.Market{
		Address:        address.String(),
		Creator:        acc.Creator.String(),
		ProtocolID:     acc.ProtocolID,
		Metric:         acc.MetricType.String(),
		TargetValue:    acc.TargetValue,
		ResolutionTime: resolution,
		BetCutoffTime:  resolution.Add(-time.Duration(params.BetCutoffSecs) * time.Second),
		Description:    acc.Description,
		TotalYesAmount: acc.TotalYesAmount,
		TotalNoAmount:  acc.TotalNoAmount,
		Resolved:       acc.Resolved,
		Oracle:         acc.Oracle.String(),
		CreatedAt:      time.Unix(acc.CreatedAt, 0).UTC(),
		Bump:           acc.Bump,
		Slot:           slot,
		FetchedAt:      fetchedAt,
	}
	if acc.Outcome != nil {
		outcome := *acc.Outcome
		m.Outcome = &outcome
	}
	if acc.ActualValue != nil {
		actual := *acc.ActualValue
		m.ActualValue = &actual
	}
	return m
}

// BetToDomain maps a parsed bet account to its domain view.
func BetToDomain(address solanago.PublicKey, acc *idlprotocol.Bet, slot uint64, fetchedAt time.Time) domain.Bet {
	return domain.Bet{
		Address:         address.String(),
		Owner:           acc.Owner.String(),
		Market:          acc.Market.String(),
		Amount:          acc.Amount,
		EffectiveAmount: acc.EffectiveAmount,
		BetYes:          acc.BetYes,
		PlacedAt:        time.Unix(acc.Timestamp, 0).UTC(),
		Claimed:         acc.Claimed,
		Bump:            acc.Bump,
		Slot:            slot,
		FetchedAt:       fetchedAt,
	}
}

// StakeToDomain maps a parsed staker account to its domain view.
func StakeToDomain(address solanago.PublicKey, acc *idlprotocol.StakerAccount, slot uint64, fetchedAt time.Time) domain.StakePosition {
	return domain.StakePosition{
		Address:      address.String(),
		Owner:        acc.Owner.String(),
		StakedAmount: acc.StakedAmount,
		LastStakeAt:  time.Unix(acc.LastStakeTimestamp, 0).UTC(),
		Bump:         acc.Bump,
		Slot:         slot,
		FetchedAt:    fetchedAt,
	}
}

// VeLockToDomain maps a parsed ve position to its domain view.
func VeLockToDomain(address solanago.PublicKey, acc *idlprotocol.VePosition, slot uint64, fetchedAt time.Time) domain.VeLock {
	return domain.VeLock{
		Address:     address.String(),
		Owner:       acc.Owner.String(),
		LockedStake: acc.LockedStake,
		VeAmount:    acc.VeAmount,
		LockStart:   time.Unix(acc.LockStart, 0).UTC(),
		LockEnd:     time.Unix(acc.LockEnd, 0).UTC(),
		Bump:        acc.Bump,
		Slot:        slot,
		FetchedAt:   fetchedAt,
	}
}

// BadgeToDomain maps a parsed volume badge to its domain view.
func BadgeToDomain(address solanago.PublicKey, acc *idlprotocol.VolumeBadge, slot uint64, fetchedAt time.Time) domain.Badge {
	return domain.Badge{
		Address:   address.String(),
		Owner:     acc.Owner.String(),
		Tier:      acc.Tier.String(),
		VolumeUSD: acc.VolumeUsd,
		VeAmount:  acc.VeAmount,
		IssuedAt:  time.Unix(acc.IssuedAt, 0).UTC(),
		Bump:      acc.Bump,
		Slot:      slot,
		FetchedAt: fetchedAt,
	}
}

// StateToDomain maps the parsed protocol state to its domain view.
func StateToDomain(address solanago.PublicKey, acc *idlprotocol.ProtocolState, slot uint64, fetchedAt time.Time) domain.ProtocolStatus {
	return domain.ProtocolStatus{
		Address:            address.String(),
		Authority:          acc.Authority.String(),
		Treasury:           acc.Treasury.String(),
		TotalStaked:        acc.TotalStaked,
		TotalVeSupply:      acc.TotalVeSupply,
		RewardPool:         acc.RewardPool,
		TotalFeesCollected: acc.TotalFeesCollected,
		TotalBurned:        acc.TotalBurned,
		Paused:             acc.Paused,
		Bump:               acc.Bump,
		Slot:               slot,
		FetchedAt:          fetchedAt,
	}
}
