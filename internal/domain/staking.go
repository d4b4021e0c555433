package domain

import "time"

// StakePosition is a snapshot of an on-chain staker account.
type StakePosition struct {
	Address      string // base58 account address
	Owner        string
	StakedAmount uint64 // lamports of IDL
	LastStakeAt  time.Time
	Bump         uint8
	Slot         uint64
	FetchedAt    time.Time
}

// VeLock is a snapshot of an on-chain vote-escrow position.
type VeLock struct {
	Address     string
	Owner       string
	LockedStake uint64 // stake committed to the lock
	VeAmount    uint64 // veIDL minted for the lock
	LockStart   time.Time
	LockEnd     time.Time
	Bump        uint8
	Slot        uint64
	FetchedAt   time.Time
}

// Expired reports whether the lock may be unlocked at the given instant.
func (v VeLock) Expired(now time.Time) bool {
	return !now.Before(v.LockEnd)
}

// StakePreview is the result of a dry-run staking calculation.
type StakePreview struct {
	StakedAmount uint64
	BonusBps     uint64 // betting bonus earned by the stake
	RewardShare  uint64 // claimable share of the current reward pool
	VeForMaxLock uint64 // veIDL if the full stake were locked for the maximum duration
}
