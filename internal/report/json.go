package report

import "encoding/json"

func (r *JSONReporter) Dashboard(data DashboardData) error   { return r.encode(data) }
func (r *JSONReporter) Validation(data ValidationData) error { return r.encode(data) }
func (r *JSONReporter) Scenarios(data ScenarioData) error    { return r.encode(data) }

func (r *JSONReporter) encode(v any) error {
	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
