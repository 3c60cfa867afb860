// Package report renders dashboard, validation, and scenario results for
// the stormcost CLI.
package report

import (
	"io"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/shopspring/decimal"
)

// Reporter is the interface for output formatters.
type Reporter interface {
	Dashboard(data DashboardData) error
	Validation(data ValidationData) error
	Scenarios(data ScenarioData) error
}

// Header identifies the tool run that produced a report.
type Header struct {
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DashboardData is every aggregate view for one selection of a data file.
type DashboardData struct {
	Header
	Source    string              `json:"source"`
	Stats     ingest.Stats        `json:"ingestion"`
	Dashboard analytics.Dashboard `json:"dashboard"`
}

// ValidationData describes how a data file ingests.
type ValidationData struct {
	Header
	Source string       `json:"source"`
	Stats  ingest.Stats `json:"ingestion"`
	// Unclassified lists distinct descriptions that fall through to Other.
	Unclassified []string `json:"unclassified"`
}

// ScenarioData is the scenario catalog and, when scenarios were selected,
// their estimated impact.
type ScenarioData struct {
	Header
	BaselineCost decimal.Decimal           `json:"baseline_cost"`
	Scenarios    []domain.Scenario         `json:"scenarios"`
	Result       *analytics.ScenarioResult `json:"result,omitempty"`
	Forecast     []analytics.Projection    `json:"forecast"`
}

// TextReporter generates human-readable terminal output.
type TextReporter struct {
	Writer io.Writer
}

// JSONReporter generates indented JSON output.
type JSONReporter struct {
	Writer io.Writer
}
