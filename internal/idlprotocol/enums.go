package idlprotocol

import "fmt"

// MetricType says what a market's target value measures. The byte values are
// the on-chain ordinals; the mapping is frozen, never reorder.
type MetricType uint8

const (
	MetricTvl          MetricType = 0
	MetricVolume24h    MetricType = 1
	MetricUsers        MetricType = 2
	MetricTransactions MetricType = 3
	MetricPrice        MetricType = 4
	MetricMarketCap    MetricType = 5
	MetricCustom       MetricType = 6
)

func (m MetricType) Valid() bool { return m <= MetricCustom }

func (m MetricType) String() string {
	switch m {
	case MetricTvl:
		return "tvl"
	case MetricVolume24h:
		return "volume_24h"
	case MetricUsers:
		return "users"
	case MetricTransactions:
		return "transactions"
	case MetricPrice:
		return "price"
	case MetricMarketCap:
		return "market_cap"
	case MetricCustom:
		return "custom"
	default:
		return fmt.Sprintf("metric(%d)", uint8(m))
	}
}

// ParseMetricType is the inverse of MetricType.String.
func ParseMetricType(s string) (MetricType, error) {
	for m := MetricTvl; m <= MetricCustom; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("idlprotocol: unknown metric type %q", s)
}

// BadgeTier ranks lifetime betting volume. Byte values are the on-chain
// ordinals; the mapping is frozen, never reorder.
type BadgeTier uint8

const (
	TierNone     BadgeTier = 0
	TierBronze   BadgeTier = 1
	TierSilver   BadgeTier = 2
	TierGold     BadgeTier = 3
	TierPlatinum BadgeTier = 4
	TierDiamond  BadgeTier = 5
)

func (t BadgeTier) Valid() bool { return t <= TierDiamond }

func (t BadgeTier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierDiamond:
		return "diamond"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

func (d *decoder) metricType() MetricType {
	b := d.u8()
	if d.err != nil {
		return 0
	}
	m := MetricType(b)
	if !m.Valid() {
		d.fail(fmt.Errorf("%w: metric type byte %d", ErrInvalidAccountData, b))
		return 0
	}
	return m
}

func (d *decoder) badgeTier() BadgeTier {
	b := d.u8()
	if d.err != nil {
		return 0
	}
	t := BadgeTier(b)
	if !t.Valid() {
		d.fail(fmt.Errorf("%w: badge tier byte %d", ErrInvalidAccountData, b))
		return 0
	}
	return t
}
