package idlprotocol

import "crypto/sha256"

// Anchor discriminators: the first 8 bytes of a SHA-256 digest over a
// namespaced name. Instruction data starts with the instruction tag, account
// data with the account tag.

func instructionTag(name string) [8]byte {
	hash := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

func accountTag(name string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

// Account tags, usable as memcmp filters at offset 0 when scanning program
// accounts.
var (
	Account_ProtocolState    = accountTag("ProtocolState")
	Account_StakerAccount    = accountTag("StakerAccount")
	Account_VePosition       = accountTag("VePosition")
	Account_PredictionMarket = accountTag("PredictionMarket")
	Account_Bet              = accountTag("Bet")
	Account_VolumeBadge      = accountTag("VolumeBadge")
)

// Instruction names as the program declares them.
const (
	OpInitialize        = "initialize"
	OpStake             = "stake"
	OpUnstake           = "unstake"
	OpLockForVe         = "lock_for_ve"
	OpUnlockVe          = "unlock_ve"
	OpCreateMarket      = "create_market"
	OpPlaceBet          = "place_bet"
	OpResolveMarket     = "resolve_market"
	OpClaimWinnings     = "claim_winnings"
	OpIssueBadge        = "issue_badge"
	OpRevokeBadge       = "revoke_badge"
	OpSetPaused         = "set_paused"
	OpTransferAuthority = "transfer_authority"
)

var instructionTags = map[string][8]byte{
	OpInitialize:        instructionTag(OpInitialize),
	OpStake:             instructionTag(OpStake),
	OpUnstake:           instructionTag(OpUnstake),
	OpLockForVe:         instructionTag(OpLockForVe),
	OpUnlockVe:          instructionTag(OpUnlockVe),
	OpCreateMarket:      instructionTag(OpCreateMarket),
	OpPlaceBet:          instructionTag(OpPlaceBet),
	OpResolveMarket:     instructionTag(OpResolveMarket),
	OpClaimWinnings:     instructionTag(OpClaimWinnings),
	OpIssueBadge:        instructionTag(OpIssueBadge),
	OpRevokeBadge:       instructionTag(OpRevokeBadge),
	OpSetPaused:         instructionTag(OpSetPaused),
	OpTransferAuthority: instructionTag(OpTransferAuthority),
}

// InstructionTag returns the 8-byte tag for one of the program's operations.
// Names outside the instruction set fail with ErrUnsupportedOperation.
func InstructionTag(name string) ([8]byte, error) {
	tag, ok := instructionTags[name]
	if !ok {
		return [8]byte{}, ErrUnsupportedOperation
	}
	return tag, nil
}

// instructionData prepends the tag for a known operation to its encoded
// arguments. Callers pass names from the Op constants only.
func instructionData(name string, args []byte) []byte {
	tag := instructionTags[name]
	data := make([]byte, 0, len(tag)+len(args))
	data = append(data, tag[:]...)
	return append(data, args...)
}
