package rules

import "github.com/encontrocomfe/backend/internal/domain/enums"

// Capabilities is the feature surface a tier unlocks. The gate layer asks
// this struct, callers never compare tiers directly.
type Capabilities struct {
	DailyLikeLimit      int // 0 means unlimited
	DailySuperLikes     int
	CityStateFilter     bool
	UnsolicitedMessages bool
	SeeWhoLiked         bool
	ReadReceipts        bool
	ProfileBoost        bool
}

func CapabilitiesFor(tier enums.Tier) Capabilities {
	switch tier {
	case enums.TierGold:
		return Capabilities{
			DailyLikeLimit:      0,
			DailySuperLikes:     5,
			CityStateFilter:     true,
			UnsolicitedMessages: true,
			SeeWhoLiked:         true,
			ReadReceipts:        true,
			ProfileBoost:        true,
		}
	case enums.TierSilver:
		return Capabilities{
			DailyLikeLimit:  0,
			DailySuperLikes: 3,
			CityStateFilter: true,
			ReadReceipts:    true,
		}
	case enums.TierBronze:
		return Capabilities{
			DailyLikeLimit:  FreeLikesPerDay * 2,
			DailySuperLikes: FreeSuperLikesPerDay,
		}
	default:
		return Capabilities{
			DailyLikeLimit:  FreeLikesPerDay,
			DailySuperLikes: FreeSuperLikesPerDay,
		}
	}
}

// MinTierFor returns the cheapest tier whose capabilities include the
// feature selected by pick. Used to build upgrade hints on denials.
func MinTierFor(pick func(Capabilities) bool) enums.Tier {
	for _, tier := range []enums.Tier{enums.TierBronze, enums.TierSilver, enums.TierGold} {
		if pick(CapabilitiesFor(tier)) {
			return tier
		}
	}
	return enums.TierGold
}
