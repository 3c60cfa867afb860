package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(24500000).Equal(c.BaselineCost()))
	assert.Equal(t, []string{"mawar"}, c.NamedStorms())

	scenarios := c.Scenarios()
	require.Len(t, scenarios, 5)
	assert.Equal(t, "stormwater", scenarios[0].ID)
	assert.True(t, decimal.RequireFromString("0.25").Equal(scenarios[0].CostReductionFraction))
	assert.Equal(t, domain.CategoryFlooding, scenarios[0].TargetCategory)
	assert.Equal(t, domain.CategoryHurricane, scenarios[1].TargetCategory)

	forecast := c.Forecast()
	require.Len(t, forecast, 5)
	assert.Equal(t, 2025, forecast[0].Year)
	assert.Equal(t, 2029, forecast[4].Year)

	loc, ok := c.Location("Fort Bragg")
	require.True(t, ok)
	assert.InDelta(t, 35.139, loc.Lat, 0.001)
	_, ok = c.Location("Atlantis")
	assert.False(t, ok)
}

func TestDefault_ClassifierUsesNamedStorms(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHurricane, c.Classifier().Classify("Mawar"))
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Scenarios(), 5)
}

func TestLoad_File(t *testing.T) {
	content := `baseline_cost: 1000000
named_storms: [Idalia]
scenarios:
  - id: a
    cost_reduction: 0.5
    implementation_cost: 10
    target_category: flooding
forecast:
  - year: 2031
    projected_cost: 2
  - year: 2030
    projected_cost: 1
installations:
  Fort Test: {lat: 10, lon: 20}
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1000000).Equal(c.BaselineCost()))
	require.Len(t, c.Scenarios(), 1)
	s := c.Scenarios()[0]
	assert.Equal(t, "a", s.Name, "name defaults to id")
	assert.Equal(t, domain.CategoryFlooding, s.TargetCategory)
	assert.Equal(t, 2030, c.Forecast()[0].Year, "forecast sorted by year")
	assert.Equal(t, domain.CategoryHurricane, c.Classifier().Classify("Idalia"))
	assert.Equal(t, map[string]domain.Location{"Fort Test": {Lat: 10, Lon: 20}}, c.Installations())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read catalog")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"reduction above one", "scenarios: [{id: a, cost_reduction: 1.5, target_category: Fire}]", "between 0 and 1"},
		{"negative reduction", "scenarios: [{id: a, cost_reduction: -0.1, target_category: Fire}]", "between 0 and 1"},
		{"negative implementation cost", "scenarios: [{id: a, cost_reduction: 0.1, implementation_cost: -1, target_category: Fire}]", "implementation_cost"},
		{"unknown category", "scenarios: [{id: a, cost_reduction: 0.1, target_category: Blizzard}]", "Blizzard"},
		{"missing id", "scenarios: [{cost_reduction: 0.1, target_category: Fire}]", "id is required"},
		{"duplicate id", "scenarios: [{id: a, cost_reduction: 0.1, target_category: Fire}, {id: a, cost_reduction: 0.2, target_category: Fire}]", "duplicate"},
		{"non-numeric amount", "baseline_cost: lots", "not a number"},
		{"negative baseline", "baseline_cost: -5", "baseline_cost"},
		{"bad coordinates", "installations: {X: {lat: 91, lon: 0}}", "out-of-range"},
		{"bad forecast year", "forecast: [{year: 0, projected_cost: 1}]", "forecast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	s := c.Scenarios()
	s[0].ID = "changed"
	assert.Equal(t, "stormwater", c.Scenarios()[0].ID)

	m := c.Installations()
	delete(m, "Fort Bragg")
	_, ok := c.Location("Fort Bragg")
	assert.True(t, ok)
}
