package idlprotocol

import "errors"

// Codec failures are deterministic: the same input always fails the same
// way, so none of these are worth retrying.
var (
	// ErrInvalidAccountData marks a buffer too short for the field being
	// read, or a malformed bool, option flag or string prefix.
	ErrInvalidAccountData = errors.New("idlprotocol: invalid account data")

	// ErrTypeMismatch marks an account whose leading 8-byte tag belongs to
	// a different account type than the parser expects.
	ErrTypeMismatch = errors.New("idlprotocol: account type mismatch")

	// ErrDerivationExhausted means no off-curve address exists for a seed
	// list after trying all 256 bump values. This signals a seed design
	// problem, not a transient condition.
	ErrDerivationExhausted = errors.New("idlprotocol: address derivation exhausted")

	// ErrUnsupportedOperation is returned for instruction names outside
	// the program's instruction set.
	ErrUnsupportedOperation = errors.New("idlprotocol: unsupported operation")

	// ErrArithmeticOverflow is raised where the on-chain program would
	// abort on a checked add or multiply. Wrapping here would silently
	// diverge from the program's result.
	ErrArithmeticOverflow = errors.New("idlprotocol: arithmetic overflow")
)
