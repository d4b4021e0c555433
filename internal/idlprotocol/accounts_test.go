package idlprotocol

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAuthority = solana.MustPublicKeyFromBase58("BSn7neicVV2kEzgaZmd6tZEBm4tdgzBRyELov65Lq7dt")
	testUser      = solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	testOracle    = solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
)

func sampleMarket() *PredictionMarket {
	outcome := true
	actual := uint64(2_500_000)
	return &PredictionMarket{
		Creator:             testUser,
		ProtocolID:          "jupiter",
		MetricType:          MetricTvl,
		TargetValue:         2_000_000,
		ResolutionTimestamp: 1_700_000_000,
		Description:         "TVL above $2M by resolution",
		TotalYesAmount:      10_000,
		TotalNoAmount:       5_000,
		Resolved:            true,
		Outcome:             &outcome,
		ActualValue:         &actual,
		Oracle:              testOracle,
		CreatedAt:           1_690_000_000,
		Bump:                254,
	}
}

func TestAccountRoundTrip(t *testing.T) {
	t.Run("ProtocolState", func(t *testing.T) {
		in := &ProtocolState{
			Authority:          testAuthority,
			Treasury:           testOracle,
			TotalStaked:        77_000_000,
			TotalVeSupply:      12_345,
			RewardPool:         999,
			TotalFeesCollected: 4_242,
			TotalBurned:        111,
			Bump:               253,
			Paused:             true,
		}
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_ProtocolState(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("StakerAccount", func(t *testing.T) {
		in := &StakerAccount{Owner: testUser, StakedAmount: 5_000_000, LastStakeTimestamp: 1_699_999_999, Bump: 251}
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_StakerAccount(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("VePosition", func(t *testing.T) {
		in := &VePosition{Owner: testUser, LockedStake: 1_000, VeAmount: 500, LockStart: 1_690_000_000, LockEnd: 1_753_072_000, Bump: 255}
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_VePosition(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("PredictionMarket resolved", func(t *testing.T) {
		in := sampleMarket()
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_PredictionMarket(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("PredictionMarket open", func(t *testing.T) {
		in := sampleMarket()
		in.Resolved = false
		in.Outcome = nil
		in.ActualValue = nil
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_PredictionMarket(raw)
		require.NoError(t, err)
		assert.Nil(t, out.Outcome)
		assert.Nil(t, out.ActualValue)
		assert.Equal(t, in, out)
	})

	t.Run("PredictionMarket empty strings", func(t *testing.T) {
		in := sampleMarket()
		in.ProtocolID = ""
		in.Description = ""
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_PredictionMarket(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("PredictionMarket long description", func(t *testing.T) {
		in := sampleMarket()
		in.Description = strings.Repeat("d", 200)
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_PredictionMarket(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Bet", func(t *testing.T) {
		in := &Bet{
			Owner:           testUser,
			Market:          testOracle,
			Amount:          1_000,
			EffectiveAmount: 1_500,
			BetYes:          true,
			Timestamp:       1_699_990_000,
			Claimed:         false,
			Bump:            250,
		}
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_Bet(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("VolumeBadge", func(t *testing.T) {
		in := &VolumeBadge{Owner: testUser, Tier: TierGold, VolumeUsd: 150_000, VeAmount: 1_000_000, IssuedAt: 1_700_100_000, Bump: 249}
		raw, err := in.MarshalBinary()
		require.NoError(t, err)
		out, err := ParseAccount_VolumeBadge(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

// Anchor allocates fixed space per account, so live buffers carry zero
// padding past the last field. Parsers must leave it unread.
func TestParseToleratesTrailingPadding(t *testing.T) {
	in := sampleMarket()
	raw, err := in.MarshalBinary()
	require.NoError(t, err)
	padded := append(raw, make([]byte, 64)...)
	out, err := ParseAccount_PredictionMarket(padded)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// Every strict prefix of an encoded account must fail cleanly, never return
// a partially-filled struct.
func TestParseFailsOnEveryTruncation(t *testing.T) {
	st := &ProtocolState{Authority: testAuthority, Treasury: testOracle, TotalStaked: 1, Bump: 1}
	raw, err := st.MarshalBinary()
	require.NoError(t, err)
	for i := 0; i < len(raw); i++ {
		out, parseErr := ParseAccount_ProtocolState(raw[:i])
		require.Error(t, parseErr, "prefix length %d", i)
		assert.Nil(t, out)
		if i >= 8 {
			// Tag intact: the failure must be a short read, not a tag issue.
			require.ErrorIs(t, parseErr, ErrInvalidAccountData, "prefix length %d", i)
		}
	}
}

func TestParseRejectsForeignAccountTag(t *testing.T) {
	staker := &StakerAccount{Owner: testUser, StakedAmount: 10, Bump: 1}
	raw, err := staker.MarshalBinary()
	require.NoError(t, err)

	_, err = ParseAccount_ProtocolState(raw)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = ParseAccount_Bet(raw)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestParseRejectsCorruptBytes(t *testing.T) {
	t.Run("bet bool byte", func(t *testing.T) {
		bet := &Bet{Owner: testUser, Market: testOracle, Amount: 1, EffectiveAmount: 1}
		raw, err := bet.MarshalBinary()
		require.NoError(t, err)
		raw[8+32+32+8+8] = 7 // betYes
		_, err = ParseAccount_Bet(raw)
		require.ErrorIs(t, err, ErrInvalidAccountData)
	})

	t.Run("market metric byte", func(t *testing.T) {
		m := sampleMarket()
		raw, err := m.MarshalBinary()
		require.NoError(t, err)
		raw[8+32+4+len(m.ProtocolID)] = 42 // metricType
		_, err = ParseAccount_PredictionMarket(raw)
		require.ErrorIs(t, err, ErrInvalidAccountData)
	})

	t.Run("badge tier byte", func(t *testing.T) {
		b := &VolumeBadge{Owner: testUser, Tier: TierBronze}
		raw, err := b.MarshalBinary()
		require.NoError(t, err)
		raw[8+32] = 6 // tier past Diamond
		_, err = ParseAccount_VolumeBadge(raw)
		require.ErrorIs(t, err, ErrInvalidAccountData)
	})

	t.Run("market string run past end", func(t *testing.T) {
		m := sampleMarket()
		raw, err := m.MarshalBinary()
		require.NoError(t, err)
		// Inflate the protocol id length prefix far past the buffer.
		raw[8+32] = 0xff
		_, err = ParseAccount_PredictionMarket(raw)
		require.ErrorIs(t, err, ErrInvalidAccountData)
	})
}
