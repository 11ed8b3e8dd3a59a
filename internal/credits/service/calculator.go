package service

import (
	"math"

	"leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/leads/domain"
)

// Base claim cost per budget bracket, in whole credits. A bigger job earns
// more for the professional, so admission to it costs more.
var baseCost = map[domain.BudgetBracket]int{
	domain.BracketUnder500: 5,
	domain.Bracket500To1K:  10,
	domain.Bracket1KTo5K:   20,
	domain.Bracket5KTo15K:  40,
	domain.Bracket15KTo50K: 75,
	domain.BracketOver50K:  125,
}

const (
	emergencyMultiplier = 1.5
	topTierMultiplier   = 0.85
)

// ClaimCost computes the credit cost of claiming a lead. Deterministic and
// side-effect free: the same inputs always produce the same cost, so frozen
// claim prices can be re-derived for audit.
//
// An unknown bracket falls back to the default bracket instead of erroring.
func ClaimCost(bracket domain.BudgetBracket, urgency domain.Urgency, tier repository.Tier) int {
	base, ok := baseCost[bracket]
	if !ok {
		base = baseCost[domain.DefaultBracket]
	}

	cost := float64(base)
	if urgency == domain.UrgencyEmergency {
		cost = math.Round(cost * emergencyMultiplier)
	}
	if tier == repository.TopTier {
		cost = math.Round(cost * topTierMultiplier)
	}

	return int(cost)
}
