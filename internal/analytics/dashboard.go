package analytics

import "github.com/couchcryptid/storm-damage-dashboard/internal/domain"

// DefaultTopEvents is the granular event ranking limit.
const DefaultTopEvents = 10

// Unlimited disables the event ranking limit.
const Unlimited = -1

// Options bounds the ranked views of a Dashboard. Zero values use the
// defaults. TopEvents set to Unlimited lists every event; the installation
// ranking is always capped.
type Options struct {
	TopInstallations int
	TopEvents        int
}

// LimitOptions maps operator-facing limits onto Options: a topEvents of 0
// means every event, and a non-positive topInstallations uses
// DefaultTopInstallations.
func LimitOptions(topInstallations, topEvents int) Options {
	if topEvents == 0 {
		topEvents = Unlimited
	}
	return Options{TopInstallations: topInstallations, TopEvents: topEvents}
}

func (o Options) withDefaults() Options {
	if o.TopInstallations <= 0 {
		o.TopInstallations = DefaultTopInstallations
	}
	if o.TopEvents == 0 {
		o.TopEvents = DefaultTopEvents
	}
	return o
}

// Dashboard is every aggregate view for one selection. AvailableYears and
// Categories describe the whole dataset so the filter menus stay stable
// while a selection is applied.
type Dashboard struct {
	Selection      Selection              `json:"selection"`
	AvailableYears []int                  `json:"available_years"`
	Categories     []domain.EventCategory `json:"categories"`
	Summary        Summary                `json:"summary"`
	ByCategory     []CategoryShare        `json:"by_category"`
	ByInstallation []Bucket               `json:"by_installation"`
	ByYear         []YearBucket           `json:"by_year"`
	ByState        []Bucket               `json:"by_state"`
	TopEvents      []Bucket               `json:"top_events"`
}

// Build filters the events and computes every view from the result.
func (e *Engine) Build(events []domain.WeatherEvent, sel Selection, opts Options) Dashboard {
	opts = opts.withDefaults()
	filtered := e.Filter(events, sel)
	return Dashboard{
		Selection:      sel,
		AvailableYears: Years(events),
		Categories:     domain.Categories(),
		Summary:        Summarize(filtered),
		ByCategory:     e.ByCategory(filtered),
		ByInstallation: ByInstallation(filtered, opts.TopInstallations),
		ByYear:         ByYear(filtered),
		ByState:        ByState(filtered),
		TopEvents:      TopEvents(filtered, opts.TopEvents),
	}
}
