package domain

import "time"

// ProtocolStatus is a snapshot of the on-chain protocol state account.
type ProtocolStatus struct {
	Address            string
	Authority          string
	Treasury           string
	TotalStaked        uint64
	TotalVeSupply      uint64
	RewardPool         uint64
	TotalFeesCollected uint64
	TotalBurned        uint64
	Paused             bool
	Bump               uint8
	Slot               uint64
	FetchedAt          time.Time
}

// ServiceStatus is a summary of the daemon's operational state.
type ServiceStatus struct {
	Mode           string
	UptimeSeconds  int64
	WatcherRunning bool
	LastSyncAt     *time.Time
	MarketsTracked int64
}
