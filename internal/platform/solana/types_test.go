package solana

import (
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/idlprotocol"
)

func TestMarketToDomain(t *testing.T) {
	creator := solanago.MustPublicKeyFromBase58("11111111111111111111111111111112")
	oracle := solanago.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	address, _, err := idlprotocol.DeriveMarketAddress("jupiter", 1_700_000_000)
	require.NoError(t, err)

	outcome := true
	actual := uint64(2_500_000)
	acc := &idlprotocol.PredictionMarket{
		Creator:             creator,
		ProtocolID:          "jupiter",
		MetricType:          idlprotocol.MetricTvl,
		TargetValue:         2_000_000,
		ResolutionTimestamp: 1_700_000_000,
		Description:         "TVL above $2M by resolution",
		TotalYesAmount:      10_000,
		TotalNoAmount:       5_000,
		Resolved:            true,
		Outcome:             &outcome,
		ActualValue:         &actual,
		Oracle:              oracle,
		CreatedAt:           1_690_000_000,
		Bump:                254,
	}

	fetchedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	view := MarketToDomain(address, acc, idlprotocol.DefaultParams(), 9001, fetchedAt)

	assert.Equal(t, address.String(), view.Address)
	assert.Equal(t, creator.String(), view.Creator)
	assert.Equal(t, "jupiter", view.ProtocolID)
	assert.Equal(t, "tvl", view.Metric)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), view.ResolutionTime)
	assert.Equal(t, time.Unix(1_700_000_000-300, 0).UTC(), view.BetCutoffTime)
	assert.Equal(t, uint64(10_000), view.TotalYesAmount)
	assert.Equal(t, uint64(5_000), view.TotalNoAmount)
	assert.True(t, view.Resolved)
	require.NotNil(t, view.Outcome)
	assert.True(t, *view.Outcome)
	require.NotNil(t, view.ActualValue)
	assert.Equal(t, uint64(2_500_000), *view.ActualValue)
	assert.Equal(t, uint64(9001), view.Slot)
	assert.Equal(t, fetchedAt, view.FetchedAt)

	// The view must not alias the parsed account's pointers.
	*acc.Outcome = false
	assert.True(t, *view.Outcome)
}

func TestMarketToDomainOpenMarket(t *testing.T) {
	address := solanago.MustPublicKeyFromBase58("11111111111111111111111111111112")
	acc := &idlprotocol.PredictionMarket{
		ProtocolID:          "marinade",
		MetricType:          idlprotocol.MetricUsers,
		ResolutionTimestamp: 1_800_000_000,
	}

	view := MarketToDomain(address, acc, idlprotocol.DefaultParams(), 1, time.Now())

	assert.False(t, view.Resolved)
	assert.Nil(t, view.Outcome)
	assert.Nil(t, view.ActualValue)

	yes, no := view.OddsBps()
	assert.Equal(t, uint64(5000), yes)
	assert.Equal(t, uint64(5000), no)
}

func TestBetToDomain(t *testing.T) {
	owner := solanago.MustPublicKeyFromBase58("11111111111111111111111111111112")
	market := solanago.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	address, _, err := idlprotocol.DeriveBetAddress(market, owner, 7)
	require.NoError(t, err)

	acc := &idlprotocol.Bet{
		Owner:           owner,
		Market:          market,
		Amount:          1_000,
		EffectiveAmount: 1_050,
		BetYes:          true,
		Timestamp:       1_695_000_000,
		Claimed:         false,
		Bump:            253,
	}

	view := BetToDomain(address, acc, 42, time.Unix(1_695_000_100, 0).UTC())

	assert.Equal(t, address.String(), view.Address)
	assert.Equal(t, owner.String(), view.Owner)
	assert.Equal(t, market.String(), view.Market)
	assert.Equal(t, uint64(1_050), view.EffectiveAmount)
	assert.Equal(t, time.Unix(1_695_000_000, 0).UTC(), view.PlacedAt)
	assert.True(t, view.Won(true))
	assert.False(t, view.Won(false))
}

func TestParseCommitment(t *testing.T) {
	for _, s := range []string{"processed", "confirmed", "finalized"} {
		c, err := ParseCommitment(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(c))
	}

	_, err := ParseCommitment("Confirmed")
	assert.Error(t, err)
	_, err = ParseCommitment("")
	assert.Error(t, err)
}
