package analytics

import (
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultTopInstallations is the installation ranking limit.
const DefaultTopInstallations = 10

var hundred = decimal.NewFromInt(100)

// Bucket is one group of an aggregate view.
type Bucket struct {
	Key        string          `json:"key"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	EventCount int             `json:"event_count"`
}

// CategoryShare is a category bucket with its share of the filtered total,
// rounded to a whole percent.
type CategoryShare struct {
	Bucket
	Percentage int64 `json:"percentage"`
}

// YearBucket is a year group in chronological views.
type YearBucket struct {
	Bucket
	Year int `json:"year"`
}

// Summary holds headline figures for the filtered set.
type Summary struct {
	TotalCost         decimal.Decimal `json:"total_cost"`
	EventCount        int             `json:"event_count"`
	InstallationCount int             `json:"installation_count"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	FirstYear         int             `json:"first_year,omitempty"`
	LastYear          int             `json:"last_year,omitempty"`
}

// grouper buckets costs by key in one pass, remembering discovery order.
type grouper struct {
	index   map[string]int
	buckets []Bucket
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) add(key string, cost decimal.Decimal) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.buckets)
		g.index[key] = i
		g.buckets = append(g.buckets, Bucket{Key: key, TotalCost: decimal.Zero})
	}
	g.buckets[i].TotalCost = g.buckets[i].TotalCost.Add(cost)
	g.buckets[i].EventCount++
}

// byCostDesc sorts by descending total. Ties keep discovery order.
func (g *grouper) byCostDesc() []Bucket {
	out := g.buckets
	if out == nil {
		out = []Bucket{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCost.GreaterThan(out[j].TotalCost)
	})
	return out
}

func limit(b []Bucket, n int) []Bucket {
	if n > 0 && len(b) > n {
		return b[:n]
	}
	return b
}

// ByCategory groups events by derived category, sorted by descending cost.
// Percentages are 0 when the filtered total is 0.
func (e *Engine) ByCategory(events []domain.WeatherEvent) []CategoryShare {
	g := newGrouper()
	total := decimal.Zero
	for _, ev := range events {
		g.add(string(e.Classify(ev)), ev.Cost)
		total = total.Add(ev.Cost)
	}

	buckets := g.byCostDesc()
	out := make([]CategoryShare, len(buckets))
	for i, b := range buckets {
		out[i] = CategoryShare{Bucket: b, Percentage: percentage(b.TotalCost, total)}
	}
	return out
}

// ByInstallation groups events by exact installation name, sorted by
// descending cost and truncated to n entries. n <= 0 means unlimited.
// Installations tied on cost keep the order in which they first appear.
func ByInstallation(events []domain.WeatherEvent, n int) []Bucket {
	g := newGrouper()
	for _, ev := range events {
		g.add(ev.Installation, ev.Cost)
	}
	return limit(g.byCostDesc(), n)
}

// ByState groups events by state, sorted by descending cost.
func ByState(events []domain.WeatherEvent) []Bucket {
	g := newGrouper()
	for _, ev := range events {
		g.add(ev.State, ev.Cost)
	}
	return g.byCostDesc()
}

// ByYear groups events by year in ascending chronological order.
func ByYear(events []domain.WeatherEvent) []YearBucket {
	g := newGrouper()
	years := make(map[string]int)
	for _, ev := range events {
		key := strconv.Itoa(ev.Year)
		years[key] = ev.Year
		g.add(key, ev.Cost)
	}

	out := make([]YearBucket, len(g.buckets))
	for i, b := range g.buckets {
		out[i] = YearBucket{Bucket: b, Year: years[b.Key]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// TopEvents groups events by description and named storm, sorted by
// descending cost and truncated to n entries. n <= 0 means unlimited.
func TopEvents(events []domain.WeatherEvent, n int) []Bucket {
	g := newGrouper()
	for _, ev := range events {
		g.add(EventLabel(ev), ev.Cost)
	}
	return limit(g.byCostDesc(), n)
}

// EventLabel is the granular display label of an event: its description,
// followed by the named storm in parentheses unless the description already
// mentions it.
func EventLabel(ev domain.WeatherEvent) string {
	if ev.NamedStorm == "" || strings.Contains(strings.ToLower(ev.Description), strings.ToLower(ev.NamedStorm)) {
		return ev.Description
	}
	if ev.Description == "" {
		return ev.NamedStorm
	}
	return ev.Description + " (" + ev.NamedStorm + ")"
}

// Summarize computes headline figures. The average is 0 for an empty set.
func Summarize(events []domain.WeatherEvent) Summary {
	s := Summary{TotalCost: decimal.Zero, AverageCost: decimal.Zero}
	installations := make(map[string]struct{})
	for _, ev := range events {
		s.TotalCost = s.TotalCost.Add(ev.Cost)
		s.EventCount++
		installations[ev.Installation] = struct{}{}
		if s.FirstYear == 0 || ev.Year < s.FirstYear {
			s.FirstYear = ev.Year
		}
		if ev.Year > s.LastYear {
			s.LastYear = ev.Year
		}
	}
	s.InstallationCount = len(installations)
	if s.EventCount > 0 {
		s.AverageCost = s.TotalCost.Div(decimal.NewFromInt(int64(s.EventCount))).Round(2)
	}
	return s
}

// Years lists the distinct event years in ascending order.
func Years(events []domain.WeatherEvent) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, ev := range events {
		if _, ok := seen[ev.Year]; ok {
			continue
		}
		seen[ev.Year] = struct{}{}
		out = append(out, ev.Year)
	}
	sort.Ints(out)
	return out
}

func percentage(part, total decimal.Decimal) int64 {
	if total.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(total).Round(0).IntPart()
}
