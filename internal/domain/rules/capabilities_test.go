package rules

import (
	"testing"

	"github.com/encontrocomfe/backend/internal/domain/enums"
)

func TestCapabilitiesLadder(t *testing.T) {
	free := CapabilitiesFor(enums.TierNone)
	if free.DailyLikeLimit != FreeLikesPerDay {
		t.Fatalf("free like limit: got %d want %d", free.DailyLikeLimit, FreeLikesPerDay)
	}
	if free.CityStateFilter || free.SeeWhoLiked || free.UnsolicitedMessages {
		t.Fatal("free tier must not unlock paid features")
	}

	silver := CapabilitiesFor(enums.TierSilver)
	if !silver.CityStateFilter {
		t.Fatal("silver must unlock city/state filtering")
	}
	if silver.SeeWhoLiked || silver.UnsolicitedMessages {
		t.Fatal("silver must not unlock gold features")
	}

	gold := CapabilitiesFor(enums.TierGold)
	if !gold.SeeWhoLiked || !gold.UnsolicitedMessages || !gold.CityStateFilter {
		t.Fatal("gold must unlock everything")
	}
	if gold.DailyLikeLimit != 0 {
		t.Fatalf("gold like limit: got %d want unlimited", gold.DailyLikeLimit)
	}
}

func TestMinTierFor(t *testing.T) {
	if got := MinTierFor(func(c Capabilities) bool { return c.CityStateFilter }); got != enums.TierSilver {
		t.Fatalf("city filter tier: got %s want %s", got, enums.TierSilver)
	}
	if got := MinTierFor(func(c Capabilities) bool { return c.SeeWhoLiked }); got != enums.TierGold {
		t.Fatalf("see-who-liked tier: got %s want %s", got, enums.TierGold)
	}
}
