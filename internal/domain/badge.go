package domain

import "time"

// Badge is a snapshot of an on-chain volume badge account.
type Badge struct {
	Address   string
	Owner     string
	Tier      string // "bronze" .. "diamond", "none" once revoked
	VolumeUSD uint64 // qualifying volume in whole USD
	VeAmount  uint64 // veIDL granted with the badge
	IssuedAt  time.Time
	Bump      uint8
	Slot      uint64
	FetchedAt time.Time
}

// Revoked reports whether the badge has been revoked by the authority.
func (b Badge) Revoked() bool {
	return b.Tier == "none"
}
