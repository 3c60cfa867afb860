// Package catalog holds the immutable reference data injected at startup:
// the scenario catalog, the modeling baseline, forecast constants, named
// storms and installation coordinates.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidCatalog reports catalog content that fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is read-only after construction.
type Catalog struct {
	baseline      decimal.Decimal
	namedStorms   []string
	scenarios     []domain.Scenario
	forecast      []domain.ForecastPoint
	installations map[string]domain.Location
}

// file is the YAML layout of a catalog.
type file struct {
	BaselineCost  amount                     `yaml:"baseline_cost"`
	NamedStorms   []string                   `yaml:"named_storms"`
	Scenarios     []scenarioEntry            `yaml:"scenarios"`
	Forecast      []forecastEntry            `yaml:"forecast"`
	Installations map[string]domain.Location `yaml:"installations"`
}

type scenarioEntry struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	Description        string `yaml:"description"`
	CostReduction      amount `yaml:"cost_reduction"`
	ImplementationCost amount `yaml:"implementation_cost"`
	TargetCategory     string `yaml:"target_category"`
}

type forecastEntry struct {
	Year          int    `yaml:"year"`
	ProjectedCost amount `yaml:"projected_cost"`
}

// amount decodes a YAML scalar into an exact decimal.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number", value.Line, value.Value)
	}
	a.Decimal = d
	return nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	c, err := Parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
}

// Load reads a catalog file. An empty path returns the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML catalog content.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return build(f)
}

func build(f file) (*Catalog, error) {
	if f.BaselineCost.IsNegative() {
		return nil, fmt.Errorf("%w: baseline_cost must not be negative", ErrInvalidCatalog)
	}

	c := &Catalog{
		baseline:      f.BaselineCost.Decimal,
		installations: make(map[string]domain.Location, len(f.Installations)),
	}

	for _, s := range f.NamedStorms {
		if s = strings.TrimSpace(s); s != "" {
			c.namedStorms = append(c.namedStorms, s)
		}
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i, e := range f.Scenarios {
		s, err := e.toScenario()
		if err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %w", ErrInvalidCatalog, i, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate scenario id %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
		c.scenarios = append(c.scenarios, s)
	}

	for _, p := range f.Forecast {
		if p.Year <= 0 || p.ProjectedCost.IsNegative() {
			return nil, fmt.Errorf("%w: forecast year %d", ErrInvalidCatalog, p.Year)
		}
		c.forecast = append(c.forecast, domain.ForecastPoint{Year: p.Year, ProjectedCost: p.ProjectedCost.Decimal})
	}
	sort.SliceStable(c.forecast, func(i, j int) bool { return c.forecast[i].Year < c.forecast[j].Year })

	for name, loc := range f.Installations {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
			return nil, fmt.Errorf("%w: installation %q has out-of-range coordinates", ErrInvalidCatalog, name)
		}
		c.installations[strings.TrimSpace(name)] = loc
	}

	return c, nil
}

func (e scenarioEntry) toScenario() (domain.Scenario, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return domain.Scenario{}, errors.New("id is required")
	}
	if e.CostReduction.IsNegative() || e.CostReduction.GreaterThan(decimal.NewFromInt(1)) {
		return domain.Scenario{}, fmt.Errorf("%s: cost_reduction must be between 0 and 1", id)
	}
	if e.ImplementationCost.IsNegative() {
		return domain.Scenario{}, fmt.Errorf("%s: implementation_cost must not be negative", id)
	}
	category, err := domain.ParseCategory(e.TargetCategory)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("%s: %w", id, err)
	}

	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = id
	}
	return domain.Scenario{
		ID:                    id,
		Name:                  name,
		Description:           strings.TrimSpace(e.Description),
		CostReductionFraction: e.CostReduction.Decimal,
		ImplementationCost:    e.ImplementationCost.Decimal,
		TargetCategory:        category,
	}, nil
}

// BaselineCost is the configured modeling baseline.
func (c *Catalog) BaselineCost() decimal.Decimal { return c.baseline }

// Scenarios returns the scenarios in catalog order.
func (c *Catalog) Scenarios() []domain.Scenario {
	return append([]domain.Scenario(nil), c.scenarios...)
}

// Forecast returns the projection points in ascending year order.
func (c *Catalog) Forecast() []domain.ForecastPoint {
	return append([]domain.ForecastPoint(nil), c.forecast...)
}

// NamedStorms returns the configured storm-name tokens.
func (c *Catalog) NamedStorms() []string {
	return append([]string(nil), c.namedStorms...)
}

// Classifier builds the event classifier with this catalog's named storms.
func (c *Catalog) Classifier() *domain.Classifier {
	return domain.NewClassifier(domain.DefaultRules(c.namedStorms...))
}

// Location returns the coordinates configured for an installation.
func (c *Catalog) Location(installation string) (domain.Location, bool) {
	loc, ok := c.installations[installation]
	return loc, ok
}

// Installations returns a copy of the coordinate table.
func (c *Catalog) Installations() map[string]domain.Location {
	out := make(map[string]domain.Location, len(c.installations))
	for k, v := range c.installations {
		out[k] = v
	}
	return out
}
