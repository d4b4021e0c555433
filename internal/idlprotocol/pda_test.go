package idlprotocol

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterminism(t *testing.T) {
	a1, b1, err := DeriveStateAddress()
	require.NoError(t, err)
	a2, b2, err := DeriveStateAddress()
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.False(t, a1.IsOnCurve())
}

func TestDeriveMarketAddressScenario(t *testing.T) {
	first, bump1, err := DeriveMarketAddress("jupiter", 1_700_000_000)
	require.NoError(t, err)
	again, bump2, err := DeriveMarketAddress("jupiter", 1_700_000_000)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, bump1, bump2)

	shifted, _, err := DeriveMarketAddress("jupiter", 1_700_000_001)
	require.NoError(t, err)
	assert.NotEqual(t, first, shifted)

	otherProtocol, _, err := DeriveMarketAddress("marinade", 1_700_000_000)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherProtocol)
}

func TestDerivePerUserAddressesAreDistinct(t *testing.T) {
	user := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

	staker, _, err := DeriveStakerAddress(user)
	require.NoError(t, err)
	vePos, _, err := DeriveVePositionAddress(user)
	require.NoError(t, err)
	badge, _, err := DeriveBadgeAddress(user)
	require.NoError(t, err)

	assert.NotEqual(t, staker, vePos)
	assert.NotEqual(t, staker, badge)
	assert.NotEqual(t, vePos, badge)

	other := solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	otherStaker, _, err := DeriveStakerAddress(other)
	require.NoError(t, err)
	assert.NotEqual(t, staker, otherStaker)
}

func TestDeriveBetAddressNonceSeparation(t *testing.T) {
	market, _, err := DeriveMarketAddress("jupiter", 1_700_000_000)
	require.NoError(t, err)
	user := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

	betA, _, err := DeriveBetAddress(market, user, 1)
	require.NoError(t, err)
	betB, _, err := DeriveBetAddress(market, user, 2)
	require.NoError(t, err)
	betA2, _, err := DeriveBetAddress(market, user, 1)
	require.NoError(t, err)

	assert.NotEqual(t, betA, betB)
	assert.Equal(t, betA, betA2)
	assert.False(t, betA.IsOnCurve())
}
