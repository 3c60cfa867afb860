package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/observability"
	"github.com/couchcryptid/storm-damage-dashboard/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Branch,Weather Event,Named Storm,Date of Weather Event,Year,Cost,Installation,State\n" +
	"Marine Corps,Hurricane Florence,Florence,9/14/18,2018,\"$3,000,000\",Camp Lejeune,NC\n" +
	"Army,Flash flood,,6/2/19,2019,500,Fort Bragg,NC\n" +
	"Air Force,Typhoon Mawar,Mawar,5/24/23,2023,4000,Andersen AFB,GU\n" +
	"Army,Hail,,7/1/20,2020,abc,Fort Hood,TX\n" +
	"Navy,Wind,,3/3/21,2021,250,Mystery Base,ZZ\n"

// --- mocks ---

type stringSource struct {
	data string
	err  error
}

func (s stringSource) Open(_ context.Context) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func (s stringSource) String() string { return "memory" }

type mockGeocoder struct {
	mu      sync.Mutex
	results map[string]domain.GeocodingResult
	err     error
	calls   []string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, name, state string) (domain.GeocodingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name+"|"+state)
	if m.err != nil {
		return domain.GeocodingResult{}, m.err
	}
	return m.results[name], nil
}

type batch struct {
	datasetID string
	loadedAt  time.Time
	events    []domain.ClassifiedEvent
}

type mockPublisher struct {
	batches []batch
	failOn  int // 1-based batch index to fail, 0 = never
}

func (m *mockPublisher) PublishBatch(_ context.Context, datasetID string, loadedAt time.Time, events []domain.ClassifiedEvent) error {
	m.batches = append(m.batches, batch{datasetID: datasetID, loadedAt: loadedAt, events: events})
	if m.failOn == len(m.batches) {
		return errors.New("broker unavailable")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(src ingest.Source, opts ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(src, ingest.NewParser(discardLogger(), 0), discardLogger(), observability.NewMetricsForTesting(), opts...)
}

func fixedClock(t *testing.T) clockwork.Clock {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })
	return clock
}

// --- tests ---

func TestPipeline_NotReadyBeforeLoad(t *testing.T) {
	p := newPipeline(stringSource{data: sampleCSV})

	err := p.CheckReadiness(context.Background())
	require.ErrorIs(t, err, pipeline.ErrNotLoaded)

	ds, err := p.Current()
	assert.Nil(t, ds)
	require.ErrorIs(t, err, pipeline.ErrNotLoaded)
}

func TestPipeline_Load(t *testing.T) {
	clock := fixedClock(t)
	p := newPipeline(stringSource{data: sampleCSV})

	ds, err := p.Load(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(ds.ID)
	require.NoError(t, err, "dataset id is a uuid")
	assert.Equal(t, clock.Now(), ds.LoadedAt)
	assert.Equal(t, "memory", ds.Source)

	require.Len(t, ds.Events, 4)
	assert.Equal(t, "Camp Lejeune", ds.Events[0].Installation)
	assert.Equal(t, "Mystery Base", ds.Events[3].Installation)
	assert.Equal(t, 5, ds.Stats.Total)
	assert.Equal(t, 1, ds.Stats.DroppedByReason[domain.ReasonInvalidCost])

	require.NoError(t, p.CheckReadiness(context.Background()))
	current, err := p.Current()
	require.NoError(t, err)
	assert.Same(t, ds, current)
}

func TestPipeline_LoadFailureIsSticky(t *testing.T) {
	tests := []struct {
		name    string
		src     ingest.Source
		wantErr error
	}{
		{name: "source unavailable", src: stringSource{err: errors.New("connection refused")}},
		{name: "empty input", src: stringSource{data: ""}, wantErr: ingest.ErrEmptyInput},
		{name: "missing header", src: stringSource{data: "Weather Event,Installation\nFlood,Fort Hood\n"}, wantErr: ingest.ErrMissingHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(tt.src)

			ds, err := p.Load(context.Background())
			require.Error(t, err)
			assert.Nil(t, ds)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			readyErr := p.CheckReadiness(context.Background())
			require.Error(t, readyErr)
			assert.NotErrorIs(t, readyErr, pipeline.ErrNotLoaded)
			assert.Equal(t, err.Error(), readyErr.Error())

			current, currentErr := p.Current()
			assert.Nil(t, current, "no partial dataset")
			assert.Equal(t, err, currentErr)
		})
	}
}

func TestPipeline_LocateFromTableThenGeocoder(t *testing.T) {
	table := analytics.Locations{
		"Camp Lejeune": {Lat: 34.68, Lon: -77.34},
		"Andersen AFB": {Lat: 13.58, Lon: 144.93},
	}
	geocoder := &mockGeocoder{results: map[string]domain.GeocodingResult{
		"Fort Bragg": {Lat: 35.14, Lon: -79.0, FormattedAddress: "Fort Bragg, NC"},
	}}

	p := newPipeline(stringSource{data: sampleCSV}, pipeline.WithLocator(table), pipeline.WithGeocoder(geocoder))
	ds, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Fort Bragg|NC", "Mystery Base|ZZ"}, geocoder.calls, "only installations missing from the table are geocoded")
	assert.Equal(t, domain.Location{Lat: 35.14, Lon: -79.0}, ds.Locations["Fort Bragg"])
	assert.Equal(t, table["Camp Lejeune"], ds.Locations["Camp Lejeune"])
	assert.Equal(t, []string{"Mystery Base"}, ds.Unlocated)

	points := ds.Installations(ds.Events)
	require.Len(t, points, 4)
	for _, pt := range points {
		if pt.Installation == "Mystery Base" {
			assert.Nil(t, pt.Location)
		} else {
			assert.NotNil(t, pt.Location, pt.Installation)
		}
	}
}

func TestPipeline_GeocoderFailureDegrades(t *testing.T) {
	geocoder := &mockGeocoder{err: errors.New("quota exceeded")}

	p := newPipeline(stringSource{data: sampleCSV}, pipeline.WithGeocoder(geocoder))
	ds, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, ds.Locations)
	assert.Len(t, ds.Unlocated, 4)
}

func TestPipeline_PublishesInBatches(t *testing.T) {
	clock := fixedClock(t)
	pub := &mockPublisher{}

	p := newPipeline(stringSource{data: sampleCSV}, pipeline.WithPublisher(pub, 3))
	ds, err := p.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.batches, 2)
	assert.Len(t, pub.batches[0].events, 3)
	assert.Len(t, pub.batches[1].events, 1)
	for _, b := range pub.batches {
		assert.Equal(t, ds.ID, b.datasetID)
		assert.Equal(t, clock.Now(), b.loadedAt)
	}

	first := pub.batches[0].events[0]
	assert.Equal(t, "Hurricane Florence", first.Description)
	assert.Equal(t, domain.CategoryHurricane, first.Category)
}

func TestPipeline_PublishUsesConfiguredClassifier(t *testing.T) {
	pub := &mockPublisher{}
	classifier := domain.NewClassifier(domain.DefaultRules("doksuri"))
	csv := "Weather Event,Date of Weather Event,Cost,Installation\nDoksuri remnants,7/28/23,100,Andersen AFB\n"

	p := newPipeline(stringSource{data: csv}, pipeline.WithPublisher(pub, 10), pipeline.WithClassifier(classifier))
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.batches, 1)
	assert.Equal(t, domain.CategoryHurricane, pub.batches[0].events[0].Category)
}

func TestPipeline_PublishFailureDoesNotFailLoad(t *testing.T) {
	pub := &mockPublisher{failOn: 1}

	p := newPipeline(stringSource{data: sampleCSV}, pipeline.WithPublisher(pub, 2))
	ds, err := p.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ds)

	assert.Len(t, pub.batches, 2, "remaining batches are still attempted")
	require.NoError(t, p.CheckReadiness(context.Background()))
}
