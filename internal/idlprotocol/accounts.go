package idlprotocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account schemas mirror the program's state structs field for field. Field
// order is the wire contract: parsers read strictly in declaration order and
// encoders write the same way. Every parse verifies the leading account tag,
// so bytes from a different account type fail with ErrTypeMismatch instead
// of misparsing.

// ProtocolState is the singleton at the "state" PDA.
type ProtocolState struct {
	Authority          solana.PublicKey
	Treasury           solana.PublicKey
	TotalStaked        uint64
	TotalVeSupply      uint64
	RewardPool         uint64
	TotalFeesCollected uint64
	TotalBurned        uint64
	Bump               uint8
	Paused             bool
}

func ParseAccount_ProtocolState(data []byte) (*ProtocolState, error) {
	d := newAccountDecoder(data, Account_ProtocolState)
	var s ProtocolState
	s.Authority = d.pubkey()
	s.Treasury = d.pubkey()
	s.TotalStaked = d.u64()
	s.TotalVeSupply = d.u64()
	s.RewardPool = d.u64()
	s.TotalFeesCollected = d.u64()
	s.TotalBurned = d.u64()
	s.Bump = d.u8()
	s.Paused = d.boolByte()
	if d.err != nil {
		return nil, fmt.Errorf("ProtocolState: %w", d.err)
	}
	return &s, nil
}

func (s *ProtocolState) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+32+8*5+1+1)
	buf = append(buf, Account_ProtocolState[:]...)
	buf = appendPubkey(buf, s.Authority)
	buf = appendPubkey(buf, s.Treasury)
	buf = appendU64(buf, s.TotalStaked)
	buf = appendU64(buf, s.TotalVeSupply)
	buf = appendU64(buf, s.RewardPool)
	buf = appendU64(buf, s.TotalFeesCollected)
	buf = appendU64(buf, s.TotalBurned)
	buf = append(buf, s.Bump)
	buf = appendBool(buf, s.Paused)
	return buf, nil
}

// StakerAccount tracks one user's liquid stake. Created on first stake,
// never deleted; the balance may reach zero.
type StakerAccount struct {
	Owner              solana.PublicKey
	StakedAmount       uint64
	LastStakeTimestamp int64
	Bump               uint8
}

func ParseAccount_StakerAccount(data []byte) (*StakerAccount, error) {
	d := newAccountDecoder(data, Account_StakerAccount)
	var s StakerAccount
	s.Owner = d.pubkey()
	s.StakedAmount = d.u64()
	s.LastStakeTimestamp = d.i64()
	s.Bump = d.u8()
	if d.err != nil {
		return nil, fmt.Errorf("StakerAccount: %w", d.err)
	}
	return &s, nil
}

func (s *StakerAccount) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+8+8+1)
	buf = append(buf, Account_StakerAccount[:]...)
	buf = appendPubkey(buf, s.Owner)
	buf = appendU64(buf, s.StakedAmount)
	buf = appendI64(buf, s.LastStakeTimestamp)
	buf = append(buf, s.Bump)
	return buf, nil
}

// VePosition is one user's stake lock. VeAmount never exceeds LockedStake
// and LockEnd never precedes LockStart.
type VePosition struct {
	Owner       solana.PublicKey
	LockedStake uint64
	VeAmount    uint64
	LockStart   int64
	LockEnd     int64
	Bump        uint8
}

func ParseAccount_VePosition(data []byte) (*VePosition, error) {
	d := newAccountDecoder(data, Account_VePosition)
	var v VePosition
	v.Owner = d.pubkey()
	v.LockedStake = d.u64()
	v.VeAmount = d.u64()
	v.LockStart = d.i64()
	v.LockEnd = d.i64()
	v.Bump = d.u8()
	if d.err != nil {
		return nil, fmt.Errorf("VePosition: %w", d.err)
	}
	return &v, nil
}

func (v *VePosition) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+8*4+1)
	buf = append(buf, Account_VePosition[:]...)
	buf = appendPubkey(buf, v.Owner)
	buf = appendU64(buf, v.LockedStake)
	buf = appendU64(buf, v.VeAmount)
	buf = appendI64(buf, v.LockStart)
	buf = appendI64(buf, v.LockEnd)
	buf = append(buf, v.Bump)
	return buf, nil
}

// PredictionMarket is one market keyed by (protocolID, resolutionTimestamp).
// Pool totals move with every accepted bet; Resolved, Outcome and ActualValue
// are written exactly once at resolution and frozen after.
type PredictionMarket struct {
	Creator             solana.PublicKey
	ProtocolID          string
	MetricType          MetricType
	TargetValue         uint64
	ResolutionTimestamp int64
	Description         string
	TotalYesAmount      uint64
	TotalNoAmount       uint64
	Resolved            bool
	Outcome             *bool
	ActualValue         *uint64
	Oracle              solana.PublicKey
	CreatedAt           int64
	Bump                uint8
}

// ParseAccount_PredictionMarket reads the two variable-length strings in
// stream order, so every later fixed field lands at its data-dependent
// offset.
func ParseAccount_PredictionMarket(data []byte) (*PredictionMarket, error) {
	d := newAccountDecoder(data, Account_PredictionMarket)
	var m PredictionMarket
	m.Creator = d.pubkey()
	m.ProtocolID = d.str()
	m.MetricType = d.metricType()
	m.TargetValue = d.u64()
	m.ResolutionTimestamp = d.i64()
	m.Description = d.str()
	m.TotalYesAmount = d.u64()
	m.TotalNoAmount = d.u64()
	m.Resolved = d.boolByte()
	m.Outcome = d.optionBool()
	m.ActualValue = d.optionU64()
	m.Oracle = d.pubkey()
	m.CreatedAt = d.i64()
	m.Bump = d.u8()
	if d.err != nil {
		return nil, fmt.Errorf("PredictionMarket: %w", d.err)
	}
	return &m, nil
}

func (m *PredictionMarket) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+4+len(m.ProtocolID)+1+8+8+4+len(m.Description)+8+8+1+2+9+32+8+1)
	buf = append(buf, Account_PredictionMarket[:]...)
	buf = appendPubkey(buf, m.Creator)
	buf = appendString(buf, m.ProtocolID)
	buf = append(buf, byte(m.MetricType))
	buf = appendU64(buf, m.TargetValue)
	buf = appendI64(buf, m.ResolutionTimestamp)
	buf = appendString(buf, m.Description)
	buf = appendU64(buf, m.TotalYesAmount)
	buf = appendU64(buf, m.TotalNoAmount)
	buf = appendBool(buf, m.Resolved)
	buf = appendOptionBool(buf, m.Outcome)
	buf = appendOptionU64(buf, m.ActualValue)
	buf = appendPubkey(buf, m.Oracle)
	buf = appendI64(buf, m.CreatedAt)
	buf = append(buf, m.Bump)
	return buf, nil
}

// Bet is one wager on a market. EffectiveAmount carries the staking bonus,
// so it never falls below Amount; Claimed flips false to true exactly once.
type Bet struct {
	Owner           solana.PublicKey
	Market          solana.PublicKey
	Amount          uint64
	EffectiveAmount uint64
	BetYes          bool
	Timestamp       int64
	Claimed         bool
	Bump            uint8
}

func ParseAccount_Bet(data []byte) (*Bet, error) {
	d := newAccountDecoder(data, Account_Bet)
	var b Bet
	b.Owner = d.pubkey()
	b.Market = d.pubkey()
	b.Amount = d.u64()
	b.EffectiveAmount = d.u64()
	b.BetYes = d.boolByte()
	b.Timestamp = d.i64()
	b.Claimed = d.boolByte()
	b.Bump = d.u8()
	if d.err != nil {
		return nil, fmt.Errorf("Bet: %w", d.err)
	}
	return &b, nil
}

func (b *Bet) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+32+8+8+1+8+1+1)
	buf = append(buf, Account_Bet[:]...)
	buf = appendPubkey(buf, b.Owner)
	buf = appendPubkey(buf, b.Market)
	buf = appendU64(buf, b.Amount)
	buf = appendU64(buf, b.EffectiveAmount)
	buf = appendBool(buf, b.BetYes)
	buf = appendI64(buf, b.Timestamp)
	buf = appendBool(buf, b.Claimed)
	buf = append(buf, b.Bump)
	return buf, nil
}

// VolumeBadge records a user's lifetime-volume tier and its veIDL grant.
type VolumeBadge struct {
	Owner     solana.PublicKey
	Tier      BadgeTier
	VolumeUsd uint64
	VeAmount  uint64
	IssuedAt  int64
	Bump      uint8
}

func ParseAccount_VolumeBadge(data []byte) (*VolumeBadge, error) {
	d := newAccountDecoder(data, Account_VolumeBadge)
	var b VolumeBadge
	b.Owner = d.pubkey()
	b.Tier = d.badgeTier()
	b.VolumeUsd = d.u64()
	b.VeAmount = d.u64()
	b.IssuedAt = d.i64()
	b.Bump = d.u8()
	if d.err != nil {
		return nil, fmt.Errorf("VolumeBadge: %w", d.err)
	}
	return &b, nil
}

func (b *VolumeBadge) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+32+1+8+8+8+1)
	buf = append(buf, Account_VolumeBadge[:]...)
	buf = appendPubkey(buf, b.Owner)
	buf = append(buf, byte(b.Tier))
	buf = appendU64(buf, b.VolumeUsd)
	buf = appendU64(buf, b.VeAmount)
	buf = appendI64(buf, b.IssuedAt)
	buf = append(buf, b.Bump)
	return buf, nil
}
