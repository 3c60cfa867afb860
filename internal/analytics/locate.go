package analytics

import (
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
)

// Locator resolves an installation name to coordinates.
type Locator interface {
	Location(installation string) (domain.Location, bool)
}

// Locations is a Locator backed by a map.
type Locations map[string]domain.Location

// Location implements Locator.
func (l Locations) Location(installation string) (domain.Location, bool) {
	loc, ok := l[installation]
	return loc, ok
}

// InstallationPoint is an installation aggregate placed on the map.
// Location is nil when the installation could not be resolved.
type InstallationPoint struct {
	Installation string           `json:"installation"`
	State        string           `json:"state,omitempty"`
	TotalCost    decimal.Decimal  `json:"total_cost"`
	EventCount   int              `json:"event_count"`
	Location     *domain.Location `json:"location,omitempty"`
}

// Locate groups events by installation, sorted by descending cost, and
// attaches coordinates from the locator. The state of an installation is the
// first non-empty state seen for it.
func Locate(events []domain.WeatherEvent, locator Locator) []InstallationPoint {
	states := make(map[string]string)
	for _, ev := range events {
		if states[ev.Installation] == "" && ev.State != "" {
			states[ev.Installation] = ev.State
		}
	}

	buckets := ByInstallation(events, 0)
	out := make([]InstallationPoint, len(buckets))
	for i, b := range buckets {
		p := InstallationPoint{
			Installation: b.Key,
			State:        states[b.Key],
			TotalCost:    b.TotalCost,
			EventCount:   b.EventCount,
		}
		if locator != nil {
			if loc, ok := locator.Location(b.Key); ok {
				p.Location = &loc
			}
		}
		out[i] = p
	}
	return out
}

// FeatureCollection renders located installations as GeoJSON points for map
// clients. Installations without coordinates are omitted.
func FeatureCollection(points []InstallationPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		if p.Location == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{p.Location.Lon, p.Location.Lat})
		f.ID = p.Installation
		f.Properties["installation"] = p.Installation
		f.Properties["state"] = p.State
		f.Properties["total_cost"] = p.TotalCost.InexactFloat64()
		f.Properties["event_count"] = p.EventCount
		fc.Append(f)
	}
	return fc
}
