package idlprotocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction builders assemble tag + encoded args + the ordered account
// list each operation expects. Account order and writable/signer flags are
// part of the wire contract: the program rejects any deviation, the client
// cannot catch it locally. PDAs are derived here from the program id and the
// caller's identity, so callers only pass addresses the client cannot
// compute (treasury, oracle, existing markets and bets).

// NewInitializeInstruction creates the ProtocolState singleton. The
// authority pays for and signs the creation; the treasury is recorded as a
// plain reference.
func NewInitializeInstruction(authority, treasury solana.PublicKey) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(treasury, false, false),
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpInitialize, nil)), nil
}

// NewStakeInstruction adds amount to the user's stake, creating the
// StakerAccount on first use.
func NewStakeInstruction(user solana.PublicKey, amount uint64) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	staker, _, err := DeriveStakerAddress(user)
	if err != nil {
		return nil, fmt.Errorf("derive staker address: %w", err)
	}
	args := appendU64(nil, amount)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(staker, true, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpStake, args)), nil
}

// NewUnstakeInstruction withdraws amount from the user's stake. The ve
// position slot is optional on chain; when the user holds none the program
// expects the program id itself as the placeholder.
func NewUnstakeInstruction(user solana.PublicKey, amount uint64, hasVePosition bool) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	staker, _, err := DeriveStakerAddress(user)
	if err != nil {
		return nil, fmt.Errorf("derive staker address: %w", err)
	}
	vePosition := ProgramID
	if hasVePosition {
		if vePosition, _, err = DeriveVePositionAddress(user); err != nil {
			return nil, fmt.Errorf("derive ve position address: %w", err)
		}
	}
	args := appendU64(nil, amount)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(staker, true, false),
		solana.NewAccountMeta(vePosition, false, false),
		solana.NewAccountMeta(user, true, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpUnstake, args)), nil
}

// NewLockForVeInstruction locks the user's entire stake for lockDuration
// seconds, minting veIDL against it.
func NewLockForVeInstruction(user solana.PublicKey, lockDuration int64) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	staker, _, err := DeriveStakerAddress(user)
	if err != nil {
		return nil, fmt.Errorf("derive staker address: %w", err)
	}
	vePosition, _, err := DeriveVePositionAddress(user)
	if err != nil {
		return nil, fmt.Errorf("derive ve position address: %w", err)
	}
	args := appendI64(nil, lockDuration)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(staker, false, false),
		solana.NewAccountMeta(vePosition, true, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpLockForVe, args)), nil
}

// NewUnlockVeInstruction closes the user's expired ve position, returning
// its rent to the user.
func NewUnlockVeInstruction(user solana.PublicKey) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	vePosition, _, err := DeriveVePositionAddress(user)
	if err != nil {
		return nil, fmt.Errorf("derive ve position address: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(vePosition, true, false),
		solana.NewAccountMeta(user, true, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpUnlockVe, nil)), nil
}

// NewCreateMarketInstruction opens a market on (protocolID,
// resolutionTimestamp) and returns the market address it will live at. The
// oracle recorded here is the only signer resolve_market later accepts.
func NewCreateMarketInstruction(creator, oracle solana.PublicKey, protocolID string, metricType MetricType, targetValue uint64, resolutionTimestamp int64, description string) (solana.Instruction, solana.PublicKey, error) {
	if !metricType.Valid() {
		return nil, solana.PublicKey{}, fmt.Errorf("idlprotocol: unknown metric type %d", uint8(metricType))
	}
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive state address: %w", err)
	}
	market, _, err := DeriveMarketAddress(protocolID, resolutionTimestamp)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive market address: %w", err)
	}
	args := appendString(nil, protocolID)
	args = append(args, byte(metricType))
	args = appendU64(args, targetValue)
	args = appendI64(args, resolutionTimestamp)
	args = appendString(args, description)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, false, false),
		solana.NewAccountMeta(market, true, false),
		solana.NewAccountMeta(creator, true, true),
		solana.NewAccountMeta(oracle, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpCreateMarket, args)), market, nil
}

// NewPlaceBetInstruction wagers amount on one side of a market and returns
// the bet address the program will create. Nonce uniqueness per
// (market, user) is the caller's contract: two concurrent bets sharing a
// nonce collide on the same derived address.
func NewPlaceBetInstruction(user, market solana.PublicKey, amount uint64, betYes bool, nonce uint64) (solana.Instruction, solana.PublicKey, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive state address: %w", err)
	}
	bet, _, err := DeriveBetAddress(market, user, nonce)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive bet address: %w", err)
	}
	staker, _, err := DeriveStakerAddress(user)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive staker address: %w", err)
	}
	args := appendU64(nil, amount)
	args = appendBool(args, betYes)
	args = appendU64(args, nonce)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, false, false),
		solana.NewAccountMeta(market, true, false),
		solana.NewAccountMeta(bet, true, false),
		solana.NewAccountMeta(staker, false, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpPlaceBet, args)), bet, nil
}

// NewResolveMarketInstruction settles a market with the observed metric
// value. Only the oracle recorded at creation may sign it.
func NewResolveMarketInstruction(oracle, market solana.PublicKey, actualValue uint64) (solana.Instruction, error) {
	args := appendU64(nil, actualValue)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(market, true, false),
		solana.NewAccountMeta(oracle, false, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpResolveMarket, args)), nil
}

// NewClaimWinningsInstruction marks the bet claimed and books the fee split
// on a resolved market.
func NewClaimWinningsInstruction(user, market, bet solana.PublicKey) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(market, false, false),
		solana.NewAccountMeta(bet, true, false),
		solana.NewAccountMeta(user, false, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpClaimWinnings, nil)), nil
}

// NewIssueBadgeInstruction grants or upgrades the recipient's volume badge.
// Authority only.
func NewIssueBadgeInstruction(authority, recipient solana.PublicKey, tier BadgeTier, volumeUsd uint64) (solana.Instruction, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("idlprotocol: unknown badge tier %d", uint8(tier))
	}
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	badge, _, err := DeriveBadgeAddress(recipient)
	if err != nil {
		return nil, fmt.Errorf("derive badge address: %w", err)
	}
	args := []byte{byte(tier)}
	args = appendU64(args, volumeUsd)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(badge, true, false),
		solana.NewAccountMeta(recipient, false, false),
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpIssueBadge, args)), nil
}

// NewRevokeBadgeInstruction closes a user's badge, returning its rent to the
// authority. Authority only.
func NewRevokeBadgeInstruction(authority, badgeOwner solana.PublicKey) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	badge, _, err := DeriveBadgeAddress(badgeOwner)
	if err != nil {
		return nil, fmt.Errorf("derive badge address: %w", err)
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(badge, true, false),
		solana.NewAccountMeta(authority, true, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpRevokeBadge, nil)), nil
}

// NewSetPausedInstruction toggles the protocol-wide pause flag. Authority
// only.
func NewSetPausedInstruction(authority solana.PublicKey, paused bool) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	args := appendBool(nil, paused)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(authority, false, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpSetPaused, args)), nil
}

// NewTransferAuthorityInstruction hands protocol authority to a new key.
// Authority only; takes effect immediately.
func NewTransferAuthorityInstruction(authority, newAuthority solana.PublicKey) (solana.Instruction, error) {
	state, _, err := DeriveStateAddress()
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	args := appendPubkey(nil, newAuthority)
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(state, true, false),
		solana.NewAccountMeta(authority, false, true),
	}
	return solana.NewInstruction(ProgramID, accounts, instructionData(OpTransferAuthority, args)), nil
}
