package analytics

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(desc, installation, state string, year int, cost int64) domain.WeatherEvent {
	return domain.WeatherEvent{
		Description:  desc,
		Installation: installation,
		State:        state,
		Year:         year,
		OccurredOn:   time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
		Cost:         decimal.NewFromInt(cost),
	}
}

func sampleEvents() []domain.WeatherEvent {
	return []domain.WeatherEvent{
		event("Hurricane Florence", "Camp Lejeune", "NC", 2018, 3000),
		event("Flash flood", "Fort Bragg", "NC", 2018, 500),
		event("Winter blizzard", "Eielson AFB", "AK", 2019, 200),
		event("Typhoon Mawar", "Andersen AFB", "GU", 2023, 4000),
		event("Straight-line wind", "Fort Bragg", "NC", 2023, 700),
		event("Unknown cause", "Offutt AFB", "NE", 2019, 100),
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name     string
		year     string
		category string
		want     Selection
		wantErr  bool
	}{
		{name: "empty is all", want: Selection{}},
		{name: "explicit all", year: "all", category: "ALL", want: Selection{}},
		{name: "year only", year: "2023", want: Selection{Year: 2023}},
		{name: "category any case", category: "flooding", want: Selection{Category: domain.CategoryFlooding}},
		{name: "both", year: " 2018 ", category: "Hurricane/Tropical Storm", want: Selection{Year: 2018, Category: domain.CategoryHurricane}},
		{name: "bad year", year: "twenty", wantErr: true},
		{name: "zero year", year: "0", wantErr: true},
		{name: "unknown category", category: "Meteor", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.year, tt.category)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter(t *testing.T) {
	e := NewEngine(nil)
	events := sampleEvents()

	t.Run("no selectors returns everything", func(t *testing.T) {
		assert.Equal(t, events, e.Filter(events, Selection{}))
	})

	t.Run("year", func(t *testing.T) {
		got := e.Filter(events, Selection{Year: 2019})
		require.Len(t, got, 2)
		for _, ev := range got {
			assert.Equal(t, 2019, ev.Year)
		}
	})

	t.Run("category uses derived classification", func(t *testing.T) {
		got := e.Filter(events, Selection{Category: domain.CategoryHurricane})
		require.Len(t, got, 2)
		assert.Equal(t, "Hurricane Florence", got[0].Description)
		assert.Equal(t, "Typhoon Mawar", got[1].Description)
	})

	t.Run("both selectors", func(t *testing.T) {
		got := e.Filter(events, Selection{Year: 2023, Category: domain.CategoryHurricane})
		require.Len(t, got, 1)
		assert.Equal(t, "Andersen AFB", got[0].Installation)
	})

	t.Run("no match yields empty set", func(t *testing.T) {
		got := e.Filter(events, Selection{Year: 1999})
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("input is not modified", func(t *testing.T) {
		before := append([]domain.WeatherEvent(nil), events...)
		_ = e.Filter(events, Selection{Category: domain.CategoryFlooding})
		assert.Equal(t, before, events)
	})
}

func TestEngineUsesConfiguredClassifier(t *testing.T) {
	e := NewEngine(domain.NewClassifier(domain.DefaultRules("doksuri")))
	events := []domain.WeatherEvent{event("Doksuri remnants", "Andersen AFB", "GU", 2023, 10)}

	got := e.Filter(events, Selection{Category: domain.CategoryHurricane})
	assert.Len(t, got, 1)
}

func TestClassifyAll(t *testing.T) {
	got := NewEngine(nil).ClassifyAll(sampleEvents())
	require.Len(t, got, 6)
	assert.Equal(t, domain.CategoryHurricane, got[0].Category)
	assert.Equal(t, domain.CategoryFlooding, got[1].Category)
	assert.Equal(t, domain.CategoryWinterStorm, got[2].Category)
	assert.Equal(t, domain.CategoryOther, got[5].Category)
}
