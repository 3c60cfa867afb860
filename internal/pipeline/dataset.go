package pipeline

import (
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
)

// Dataset is the immutable result of one successful load. Every view is
// recomputed from Events; nothing here is mutated after publication.
type Dataset struct {
	ID        string                `json:"id"`
	Source    string                `json:"source"`
	LoadedAt  time.Time             `json:"loaded_at"`
	Events    []domain.WeatherEvent `json:"-"`
	Stats     ingest.Stats          `json:"stats"`
	Locations analytics.Locations   `json:"-"`
	Unlocated []string              `json:"unlocated,omitempty"`
}

// Installations places the installation aggregate of the given events on the
// map using the coordinates resolved at load time.
func (d *Dataset) Installations(events []domain.WeatherEvent) []analytics.InstallationPoint {
	return analytics.Locate(events, d.Locations)
}
