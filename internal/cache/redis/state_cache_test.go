package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlprotocol/idlbot/internal/domain"
)

func TestStateCacheRoundTrip(t *testing.T) {
	sc := NewStateCache(newTestClient(t), time.Minute)
	ctx := context.Background()

	want := domain.ProtocolStatus{
		Address:            "Cf1aTo1TxAH3eeysVYyQEcCswFEUCNyCWqzaN8C75ooQ",
		Authority:          "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Treasury:           "7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5",
		TotalStaked:        5_000_000,
		TotalVeSupply:      1_200_000,
		RewardPool:         90_000,
		TotalFeesCollected: 45_000,
		TotalBurned:        3_000,
		Paused:             true,
		Bump:               254,
		Slot:               987_654,
		FetchedAt:          time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sc.Set(ctx, want))

	got, err := sc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStateCacheMissing(t *testing.T) {
	sc := NewStateCache(newTestClient(t), time.Minute)

	_, err := sc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
