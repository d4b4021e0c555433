package idlprotocol

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes as the program declares them.
var (
	seedState      = []byte("state")
	seedStaker     = []byte("staker")
	seedVePosition = []byte("ve_position")
	seedMarket     = []byte("market")
	seedBet        = []byte("bet")
	seedBadge      = []byte("badge")
)

// findProgramAddress runs the canonical bump search: starting at 255 and
// walking down, the first candidate hash that is not a valid ed25519 curve
// point wins. CreateProgramAddress performs the per-bump hash and curve
// check. Exhausting all 256 bumps means the seed list itself is unusable.
func findProgramAddress(seeds [][]byte) (solana.PublicKey, uint8, error) {
	candidate := make([][]byte, len(seeds)+1)
	copy(candidate, seeds)
	for i := 255; i >= 0; i-- {
		candidate[len(seeds)] = []byte{uint8(i)}
		addr, err := solana.CreateProgramAddress(candidate, ProgramID)
		if err == nil {
			return addr, uint8(i), nil
		}
	}
	return solana.PublicKey{}, 0, ErrDerivationExhausted
}

func le8(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// DeriveStateAddress returns the ProtocolState singleton PDA.
func DeriveStateAddress() (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedState})
}

// DeriveStakerAddress returns the StakerAccount PDA for a user.
func DeriveStakerAddress(user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedStaker, user.Bytes()})
}

// DeriveVePositionAddress returns the VePosition PDA for a user.
func DeriveVePositionAddress(user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedVePosition, user.Bytes()})
}

// DeriveMarketAddress returns the PredictionMarket PDA. The protocol id goes
// in as raw UTF-8 with no length prefix and the resolution timestamp as 8
// little-endian bytes, so every (protocolID, resolutionTimestamp) pair maps
// to its own address.
func DeriveMarketAddress(protocolID string, resolutionTimestamp int64) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedMarket, []byte(protocolID), le8(uint64(resolutionTimestamp))})
}

// DeriveBetAddress returns the Bet PDA for one (market, user, nonce) triple.
// Nonce uniqueness per (market, user) is the caller's contract; reusing one
// lands on an already-occupied address.
func DeriveBetAddress(market, user solana.PublicKey, nonce uint64) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedBet, market.Bytes(), user.Bytes(), le8(nonce)})
}

// DeriveBadgeAddress returns the VolumeBadge PDA for a user.
func DeriveBadgeAddress(user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findProgramAddress([][]byte{seedBadge, user.Bytes()})
}
