package domain

import (
	"fmt"
	"strings"
)

// EventCategory is one of the ten canonical damage-event categories.
type EventCategory string

const (
	CategoryHurricane   EventCategory = "Hurricane/Tropical Storm"
	CategoryWinterStorm EventCategory = "Winter Storm"
	CategorySevereStorm EventCategory = "Severe Storm"
	CategoryFlooding    EventCategory = "Flooding"
	CategoryTornado     EventCategory = "Tornado"
	CategoryHail        EventCategory = "Hail"
	CategoryFire        EventCategory = "Fire"
	CategoryEarthquake  EventCategory = "Earthquake"
	CategoryWave        EventCategory = "Wave"
	CategoryOther       EventCategory = "Other"
)

// Categories returns every category in canonical rule order, Other last.
func Categories() []EventCategory {
	return []EventCategory{
		CategoryHurricane,
		CategoryWinterStorm,
		CategorySevereStorm,
		CategoryFlooding,
		CategoryTornado,
		CategoryHail,
		CategoryFire,
		CategoryEarthquake,
		CategoryWave,
		CategoryOther,
	}
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (EventCategory, error) {
	name = strings.TrimSpace(name)
	for _, c := range Categories() {
		if strings.EqualFold(name, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown event category %q", name)
}

// DefaultNamedStorms are storm names recognized as hurricanes even when the
// description carries no other tropical keyword.
var DefaultNamedStorms = []string{"mawar"}

// CategoryRule maps a set of lowercase keywords to a category.
type CategoryRule struct {
	Category EventCategory
	Keywords []string
}

// DefaultRules returns the canonical ordered rule list. Named storms extend
// the Hurricane/Tropical Storm keywords; when none are given,
// DefaultNamedStorms is used.
func DefaultRules(namedStorms ...string) []CategoryRule {
	if len(namedStorms) == 0 {
		namedStorms = DefaultNamedStorms
	}
	hurricane := append([]string{"hurricane", "tropical", "cyclone"}, namedStorms...)

	return []CategoryRule{
		{Category: CategoryHurricane, Keywords: hurricane},
		{Category: CategoryWinterStorm, Keywords: []string{"winter", "snow", "arctic", "ice"}},
		{Category: CategorySevereStorm, Keywords: []string{"storm", "wind", "nor'easter", "atmospheric river"}},
		{Category: CategoryFlooding, Keywords: []string{"flood", "water", "rain"}},
		{Category: CategoryTornado, Keywords: []string{"tornado", "torando"}},
		{Category: CategoryHail, Keywords: []string{"hail"}},
		{Category: CategoryFire, Keywords: []string{"fire"}},
		{Category: CategoryEarthquake, Keywords: []string{"earthquake"}},
		{Category: CategoryWave, Keywords: []string{"wave"}},
	}
}

// Classifier assigns categories by evaluating rules in order. The first rule
// with a keyword contained in the description wins; no match yields Other.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier copies the rules, normalizing keywords to trimmed lowercase
// and dropping empty ones.
func NewClassifier(rules []CategoryRule) *Classifier {
	normalized := make([]CategoryRule, 0, len(rules))
	for _, r := range rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		normalized = append(normalized, CategoryRule{Category: r.Category, Keywords: keywords})
	}
	return &Classifier{rules: normalized}
}

var defaultClassifier = NewClassifier(DefaultRules())

// Classify maps a free-text description to its category. A nil Classifier
// uses the default rules.
func (c *Classifier) Classify(description string) EventCategory {
	if c == nil {
		c = defaultClassifier
	}
	text := strings.ToLower(strings.TrimSpace(description))
	if text == "" {
		return CategoryOther
	}
	for _, r := range c.rules {
		if containsAny(text, r.Keywords) {
			return r.Category
		}
	}
	return CategoryOther
}

// Rules returns a copy of the classifier's ordered rules.
func (c *Classifier) Rules() []CategoryRule {
	if c == nil {
		c = defaultClassifier
	}
	out := make([]CategoryRule, len(c.rules))
	for i, r := range c.rules {
		out[i] = CategoryRule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// ClassifyEvent returns the event together with its derived category.
func (c *Classifier) ClassifyEvent(e WeatherEvent) ClassifiedEvent {
	return ClassifiedEvent{WeatherEvent: e, Category: c.Classify(e.Description)}
}

// Classify maps a description to its category using the default rules.
func Classify(description string) EventCategory {
	return defaultClassifier.Classify(description)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
