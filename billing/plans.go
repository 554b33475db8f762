package billing

import (
	"coderoast-backend/config"
	"coderoast-backend/models"
)

// PriceMap maps processor price ids to plans.
type PriceMap struct {
	Pro  string
	Team string
}

func PricesFromConfig(cfg config.StripeConfig) PriceMap {
	return PriceMap{Pro: cfg.ProPriceID, Team: cfg.TeamPriceID}
}

// PlanFor returns the plan sold under priceID. Unknown ids map to free.
func (p PriceMap) PlanFor(priceID string) models.Plan {
	switch {
	case priceID == "":
		return models.PlanFree
	case priceID == p.Pro:
		return models.PlanPro
	case priceID == p.Team:
		return models.PlanTeam
	default:
		return models.PlanFree
	}
}

// Known reports whether priceID is one of the configured prices.
func (p PriceMap) Known(priceID string) bool {
	return p.PlanFor(priceID) != models.PlanFree
}
