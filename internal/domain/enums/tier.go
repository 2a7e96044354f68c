package enums

import "strings"

// Tier is a subscription level. Ordering matters: a higher tier grants at
// least the capabilities of every lower one.
type Tier string

const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

var tierRank = map[Tier]int{
	TierNone:   0,
	TierBronze: 1,
	TierSilver: 2,
	TierGold:   3,
}

func ParseTier(raw string) (Tier, bool) {
	value := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tierRank[value]; !ok {
		return "", false
	}
	return value, true
}

// AtLeast reports whether t grants everything other grants.
func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

func (t Tier) String() string {
	return string(t)
}
