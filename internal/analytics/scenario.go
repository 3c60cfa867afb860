package analytics

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrUnknownScenario is returned when a selection names a scenario that is
// not in the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

var one = decimal.NewFromInt(1)

// ScenarioResult is the estimated impact of a set of mitigation scenarios on
// the baseline annual cost.
//
// TotalReductionFraction is the plain sum of the selected reductions and is
// reported for display only. The applied fraction is their mean, clamped to
// [0, 1], so the mitigated cost never goes negative.
type ScenarioResult struct {
	Selected                   []string        `json:"selected"`
	Baseline                   decimal.Decimal `json:"baseline_cost"`
	Mitigated                  decimal.Decimal `json:"mitigated_cost"`
	Savings                    decimal.Decimal `json:"savings"`
	TotalImplementationCost    decimal.Decimal `json:"total_implementation_cost"`
	TotalReductionFraction     decimal.Decimal `json:"total_reduction_fraction"`
	EffectiveReductionFraction decimal.Decimal `json:"effective_reduction_fraction"`
}

// Calculator evaluates scenario selections against a fixed baseline.
type Calculator struct {
	baseline  decimal.Decimal
	scenarios []domain.Scenario
	byID      map[string]domain.Scenario
}

// NewCalculator creates a Calculator over the given scenarios. Later
// duplicates of an ID are ignored.
func NewCalculator(baseline decimal.Decimal, scenarios []domain.Scenario) *Calculator {
	c := &Calculator{
		baseline: baseline,
		byID:     make(map[string]domain.Scenario, len(scenarios)),
	}
	for _, s := range scenarios {
		if _, dup := c.byID[s.ID]; dup {
			continue
		}
		c.byID[s.ID] = s
		c.scenarios = append(c.scenarios, s)
	}
	return c
}

// Baseline returns the baseline annual cost.
func (c *Calculator) Baseline() decimal.Decimal { return c.baseline }

// Scenarios returns the available scenarios in catalog order.
func (c *Calculator) Scenarios() []domain.Scenario {
	return append([]domain.Scenario(nil), c.scenarios...)
}

// Compute applies the selected scenarios. Repeated IDs count once. An empty
// selection leaves the baseline unchanged.
func (c *Calculator) Compute(ids []string) (ScenarioResult, error) {
	res := ScenarioResult{
		Selected:                   []string{},
		Baseline:                   c.baseline,
		Mitigated:                  c.baseline,
		Savings:                    decimal.Zero,
		TotalImplementationCost:    decimal.Zero,
		TotalReductionFraction:     decimal.Zero,
		EffectiveReductionFraction: decimal.Zero,
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		s, ok := c.byID[id]
		if !ok {
			return ScenarioResult{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
		}
		seen[id] = struct{}{}
		res.Selected = append(res.Selected, id)
		res.TotalReductionFraction = res.TotalReductionFraction.Add(s.CostReductionFraction)
		res.TotalImplementationCost = res.TotalImplementationCost.Add(s.ImplementationCost)
	}

	if len(res.Selected) == 0 {
		return res, nil
	}

	effective := res.TotalReductionFraction.Div(decimal.NewFromInt(int64(len(res.Selected))))
	res.EffectiveReductionFraction = clampFraction(effective)
	res.Mitigated = c.baseline.Mul(one.Sub(res.EffectiveReductionFraction)).Round(2)
	res.Savings = c.baseline.Sub(res.Mitigated)
	return res, nil
}

func clampFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(one) {
		return one
	}
	return f
}
