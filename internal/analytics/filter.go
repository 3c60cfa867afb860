// Package analytics derives the dashboard aggregates from a loaded event set:
// filtering, grouped cost totals, rankings, scenario impact and forecast
// projections. Every function is pure and recomputes from its inputs.
package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
)

// SelectAll is the selector value that disables a filter.
const SelectAll = "all"

// Selection narrows events by year and derived category. A zero Year or an
// empty Category matches everything.
type Selection struct {
	Year     int                  `json:"year,omitempty"`
	Category domain.EventCategory `json:"category,omitempty"`
}

// ParseSelection reads "all" or an exact value for each selector. Empty
// strings mean "all".
func ParseSelection(year, category string) (Selection, error) {
	var sel Selection

	year = strings.TrimSpace(year)
	if year != "" && !strings.EqualFold(year, SelectAll) {
		y, err := strconv.Atoi(year)
		if err != nil || y <= 0 {
			return Selection{}, fmt.Errorf("invalid year %q", year)
		}
		sel.Year = y
	}

	category = strings.TrimSpace(category)
	if category != "" && !strings.EqualFold(category, SelectAll) {
		c, err := domain.ParseCategory(category)
		if err != nil {
			return Selection{}, err
		}
		sel.Category = c
	}

	return sel, nil
}

// Engine evaluates category-dependent views with a fixed classifier.
type Engine struct {
	classifier *domain.Classifier
}

// NewEngine creates an Engine. A nil classifier uses the default rules.
func NewEngine(classifier *domain.Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// Classify returns the derived category of an event.
func (e *Engine) Classify(event domain.WeatherEvent) domain.EventCategory {
	return e.classifier.Classify(event.Description)
}

// Filter returns the events matching both selectors, in input order. The
// input slice is never modified.
func (e *Engine) Filter(events []domain.WeatherEvent, sel Selection) []domain.WeatherEvent {
	out := make([]domain.WeatherEvent, 0, len(events))
	for _, ev := range events {
		if sel.Year != 0 && ev.Year != sel.Year {
			continue
		}
		if sel.Category != "" && e.Classify(ev) != sel.Category {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ClassifyAll pairs each event with its derived category.
func (e *Engine) ClassifyAll(events []domain.WeatherEvent) []domain.ClassifiedEvent {
	out := make([]domain.ClassifiedEvent, len(events))
	for i, ev := range events {
		out[i] = e.classifier.ClassifyEvent(ev)
	}
	return out
}
