package analytics

import (
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Projection is a forecast year with the selected scenarios applied.
type Projection struct {
	Year          int             `json:"year"`
	ProjectedCost decimal.Decimal `json:"projected_cost"`
	MitigatedCost decimal.Decimal `json:"mitigated_cost"`
	Savings       decimal.Decimal `json:"savings"`
}

// Project applies an effective reduction fraction to each forecast point.
// The fraction is clamped to [0, 1].
func Project(points []domain.ForecastPoint, effective decimal.Decimal) []Projection {
	keep := one.Sub(clampFraction(effective))
	out := make([]Projection, len(points))
	for i, p := range points {
		mitigated := p.ProjectedCost.Mul(keep).Round(2)
		out[i] = Projection{
			Year:          p.Year,
			ProjectedCost: p.ProjectedCost,
			MitigatedCost: mitigated,
			Savings:       p.ProjectedCost.Sub(mitigated),
		}
	}
	return out
}
