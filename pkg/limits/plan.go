package limits

import "slices"

// Tier is a subscription plan tier key.
type Tier string

// Known tiers, in ascending order of capability.
const (
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// tierOrder defines the total order used by Satisfies. Index position is
// the tier's rank.
var tierOrder = []Tier{TierStarter, TierPro, TierEnterprise}

// Index returns the tier's rank in the total order, or -1 for unknown tiers.
func (t Tier) Index() int {
	return slices.Index(tierOrder, t)
}

// Satisfies reports whether the tier meets the minimum among the allowed
// tiers. This is a total-order comparison: a pro tenant satisfies a
// requirement listing only starter, because pro ranks above it. Unknown
// tiers and empty requirement sets never satisfy.
func (t Tier) Satisfies(allowed ...Tier) bool {
	current := t.Index()
	if current < 0 || len(allowed) == 0 {
		return false
	}

	minimum := -1
	for _, a := range allowed {
		idx := a.Index()
		if idx < 0 {
			continue
		}
		if minimum < 0 || idx < minimum {
			minimum = idx
		}
	}
	return minimum >= 0 && current >= minimum
}

// Plan describes a subscription tier and its resource ceilings.
type Plan struct {
	Tier   Tier
	Name   string
	Limits map[Resource]int64
}

// Ceiling returns the plan's ceiling for a resource. Resources a plan does
// not mention are unavailable (ceiling 0), not unlimited.
func (p Plan) Ceiling(res Resource) (int64, bool) {
	limit, ok := p.Limits[res]
	return limit, ok
}

// DefaultPlans returns the static ceiling table for the built-in tiers.
func DefaultPlans() map[Tier]Plan {
	return map[Tier]Plan{
		TierStarter: {
			Tier: TierStarter,
			Name: "Starter",
			Limits: map[Resource]int64{
				ResourcePlants:    3,
				ResourceUsers:     5,
				ResourceAPIKeys:   2,
				ResourceDocuments: 100,
				ResourceAPICalls:  10_000,
			},
		},
		TierPro: {
			Tier: TierPro,
			Name: "Pro",
			Limits: map[Resource]int64{
				ResourcePlants:    25,
				ResourceUsers:     50,
				ResourceAPIKeys:   10,
				ResourceDocuments: 5_000,
				ResourceAPICalls:  100_000,
			},
		},
		TierEnterprise: {
			Tier: TierEnterprise,
			Name: "Enterprise",
			Limits: map[Resource]int64{
				ResourcePlants:    Unlimited,
				ResourceUsers:     Unlimited,
				ResourceAPIKeys:   Unlimited,
				ResourceDocuments: Unlimited,
				ResourceAPICalls:  Unlimited,
			},
		},
	}
}
