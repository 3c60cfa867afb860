package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Header names of the source CSV.
const (
	HeaderEvent        = "Weather Event"
	HeaderDate         = "Date of Weather Event"
	HeaderYear         = "Year"
	HeaderCost         = "Cost"
	HeaderInstallation = "Installation"
	HeaderState        = "State"
	HeaderBranch       = "Branch"
	HeaderNamedStorm   = "Named Storm"
)

// RawRecord holds the untyped column values of a single CSV row.
type RawRecord struct {
	Line         int
	Event        string
	Date         string
	Year         string
	Cost         string
	Installation string
	State        string
	Branch       string
	NamedStorm   string
}

// WeatherEvent is a validated damage event. Every WeatherEvent has a numeric
// cost and a year derived from its date.
type WeatherEvent struct {
	ID           string          `json:"id"`
	Branch       string          `json:"branch,omitempty"`
	Description  string          `json:"event_description"`
	NamedStorm   string          `json:"named_storm,omitempty"`
	OccurredOn   time.Time       `json:"occurred_on"`
	Year         int             `json:"year"`
	Cost         decimal.Decimal `json:"cost"`
	Installation string          `json:"installation"`
	State        string          `json:"state,omitempty"`
	SourceLine   int             `json:"source_line"`
}

// ClassifiedEvent pairs an event with its derived category for consumers
// that need both, such as the event listing and the Kafka publisher.
type ClassifiedEvent struct {
	WeatherEvent
	Category EventCategory `json:"category"`
}

// generateID produces a deterministic ID from the event's identifying fields.
// Re-ingesting the same row yields the same ID, so downstream consumers can
// upsert idempotently.
func generateID(description, installation string, occurredOn time.Time, cost decimal.Decimal) string {
	input := fmt.Sprintf("%s|%s|%s|%s", description, installation, occurredOn.Format("2006-01-02"), cost.String())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}
