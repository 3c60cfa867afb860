package domain

import "github.com/shopspring/decimal"

// Scenario is a fixed mitigation option from the catalog.
type Scenario struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	CostReductionFraction decimal.Decimal `json:"cost_reduction_fraction"`
	ImplementationCost    decimal.Decimal `json:"implementation_cost"`
	TargetCategory        EventCategory   `json:"target_category"`
}

// ForecastPoint is an illustrative projected annual damage cost. Projections
// are configuration constants, not computed from loaded events.
type ForecastPoint struct {
	Year          int             `json:"year"`
	ProjectedCost decimal.Decimal `json:"projected_cost"`
}
