package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Branch,Installation,State,Weather Event,Named Storm,Date of Weather Event,Year,Cost
Marine Corps,MCB Camp Lejeune,NC,Hurricane Florence,Florence,09/14/18,2018,"$3,600,000"
Army,Fort Hood,TX,Hail storm,,04/21/19,2019,1250.50
Navy,NAS Key West,FL,Lightning strike,,07/04/20,2020,800
Air Force,Tyndall AFB,FL,Hurricane Michael,Michael,10/10/18,2018,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(buildInfo{version: "1.0.0", commit: "abc123", date: "2026-03-01"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stormcost 1.0.0 (commit: abc123, built: 2026-03-01)\n", out)
}

func TestNoArgs(t *testing.T) {
	_, err := run(t)
	require.NoError(t, err)
}

func TestReportText(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)

	out, err := run(t, "report", "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, "$3,602,050.50")
	assert.Contains(t, out, "MCB Camp Lejeune")
	assert.Contains(t, out, "Hurricane Florence")
	assert.Contains(t, out, "missing_cost=1")
}

func TestReportJSONWithSelection(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)

	out, err := run(t, "report", "--data", data, "--year", "2018", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Dashboard analytics.Dashboard `json:"dashboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2018, got.Dashboard.Selection.Year)
	assert.Equal(t, 1, got.Dashboard.Summary.EventCount)
	assert.Equal(t, []int{2018, 2019, 2020}, got.Dashboard.AvailableYears)
	require.Len(t, got.Dashboard.ByCategory, 1)
	assert.Equal(t, int64(100), got.Dashboard.ByCategory[0].Percentage)
}

func TestReportOutputFile(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)
	outFile := filepath.Join(t.TempDir(), "report.json")

	out, err := run(t, "report", "--data", data, "--format", "json", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, json.Valid(content))
}

func TestReportErrors(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing data", []string{"report"}, "no data source"},
		{"bad year", []string{"report", "--data", data, "--year", "soon"}, "year"},
		{"bad category", []string{"report", "--data", data, "--category", "Meteor"}, "unknown event category"},
		{"bad format", []string{"report", "--data", data, "--format", "xml"}, "unsupported format"},
		{"missing file", []string{"report", "--data", filepath.Join(t.TempDir(), "nope.csv")}, "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)

	out, err := run(t, "validate", "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Rows read:        4")
	assert.Contains(t, out, "Rows accepted:    3")
	assert.Contains(t, out, "missing_cost")
	assert.Contains(t, out, "- Lightning strike")
}

func TestValidateAllRowsDropped(t *testing.T) {
	data := writeFile(t, "events.csv", `Weather Event,Date of Weather Event,Cost,Installation
Flood,01/02/20,,Fort Bragg
Flood,not a date,100,Fort Bragg
`)

	out, err := run(t, "validate", "--data", data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNoUsableRows))
	assert.Contains(t, out, "Rows dropped:     2")
}

func TestUnclassifiedDistinctInOrder(t *testing.T) {
	data := writeFile(t, "events.csv", `Weather Event,Date of Weather Event,Cost,Installation
Lightning strike,01/02/20,10,A
Flood,01/03/20,10,B
Power surge,01/04/20,10,C
Lightning strike,01/05/20,10,D
`)
	res, err := loadEvents(t.Context(), data, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lightning strike", "Power surge"}, unclassified(analytics.NewEngine(nil), res.Events))
}

func TestScenariosCatalog(t *testing.T) {
	out, err := run(t, "scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "Baseline annual cost: $24,500,000.00")
	assert.Contains(t, out, "stormwater")
	assert.NotContains(t, out, "Estimated impact")
}

func TestScenariosSelect(t *testing.T) {
	out, err := run(t, "scenarios", "--select", "stormwater,envelope-hardening")
	require.NoError(t, err)
	assert.Contains(t, out, "Mitigated cost:       $16,537,500.00")
	assert.Contains(t, out, "Annual savings:       $7,962,500.00")
	assert.Contains(t, out, "Forecast (illustrative)")
}

func TestScenariosUnknown(t *testing.T) {
	_, err := run(t, "scenarios", "--select", "moonbase")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analytics.ErrUnknownScenario))
}

func TestScenariosCustomCatalog(t *testing.T) {
	cat := writeFile(t, "catalog.yaml", `baseline_cost: 1000
scenarios:
  - id: levee
    name: Levee
    cost_reduction: 0.5
    implementation_cost: 10
    target_category: Flooding
`)
	out, err := run(t, "scenarios", "--catalog", cat, "--select", "levee", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Result analytics.ScenarioResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "500", got.Result.Mitigated.String())
}

func TestSelectReporter(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"text", false},
		{"json", false},
		{"sarif", true},
	}
	for _, tt := range tests {
		_, closeFn, err := selectReporter(&bytes.Buffer{}, tt.format, "")
		if tt.wantErr {
			assert.Error(t, err, tt.format)
			continue
		}
		require.NoError(t, err, tt.format)
		assert.NoError(t, closeFn())
	}
}

func TestReportUnsupportedFormatCreatesNoFile(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)
	outFile := filepath.Join(t.TempDir(), "out.txt")

	_, err := run(t, "report", "--data", data, "--format", "sarif", "-o", outFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.NoFileExists(t, outFile)
}

func TestReportTopEventsZeroListsAll(t *testing.T) {
	data := writeFile(t, "events.csv", sampleCSV)

	out, err := run(t, "report", "--data", data, "--format", "json", "--top-events", "0")
	require.NoError(t, err)

	var got struct {
		Dashboard analytics.Dashboard `json:"dashboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Dashboard.TopEvents, 3)
}
