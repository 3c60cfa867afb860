// Package pipeline orchestrates the one-shot dataset load: open the source,
// parse and validate rows, resolve installation coordinates, optionally
// publish the classified events, then expose the result as an immutable
// Dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/observability"
	"github.com/google/uuid"
)

// ErrNotLoaded is returned while no load has completed yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// Parser converts a raw CSV stream into validated events.
type Parser interface {
	Parse(r io.Reader) (ingest.Result, error)
}

// Publisher forwards accepted, classified events to a downstream sink.
type Publisher interface {
	PublishBatch(ctx context.Context, datasetID string, loadedAt time.Time, events []domain.ClassifiedEvent) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClassifier sets the classifier used for published events.
func WithClassifier(c *domain.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithLocator sets the static installation coordinate table.
func WithLocator(l analytics.Locator) Option {
	return func(p *Pipeline) { p.locator = l }
}

// WithGeocoder enables forward geocoding of installations the locator does
// not know.
func WithGeocoder(g domain.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// WithPublisher enables publishing accepted events in batches of batchSize.
func WithPublisher(pub Publisher, batchSize int) Option {
	return func(p *Pipeline) {
		p.publisher = pub
		p.batchSize = batchSize
	}
}

// Pipeline loads a dataset once and serves it afterwards.
type Pipeline struct {
	source     ingest.Source
	parser     Parser
	classifier *domain.Classifier
	locator    analytics.Locator
	geocoder   domain.Geocoder
	publisher  Publisher
	batchSize  int
	logger     *slog.Logger
	metrics    *observability.Metrics

	state atomic.Pointer[loadState]
}

// loadState is either a dataset or the error that prevented one.
type loadState struct {
	dataset *Dataset
	err     error
}

// New creates a Pipeline reading from source.
func New(source ingest.Source, parser Parser, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		parser:    parser,
		batchSize: 50,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize <= 0 {
		p.batchSize = 50
	}
	return p
}

// CheckReadiness returns nil once a dataset is loaded. A failed load keeps
// the pipeline unready with the load error.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	_, err := p.Current()
	return err
}

// Current returns the loaded dataset, ErrNotLoaded before a load finishes,
// or the failure of the last load.
func (p *Pipeline) Current() (*Dataset, error) {
	s := p.state.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s.dataset, s.err
}

// Load runs the full load once and publishes the resulting Dataset. Any
// ingestion failure is fatal to the load and no partial dataset is kept.
// Geocoding and publishing failures degrade without failing the load.
func (p *Pipeline) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	p.logger.Info("dataset load started", "source", p.source.String())

	result, err := p.ingest(ctx)
	if err != nil {
		p.fail(err)
		return nil, err
	}
	p.recordStats(result.Stats)

	ds := &Dataset{
		ID:       uuid.NewString(),
		Source:   p.source.String(),
		LoadedAt: domain.Now(),
		Events:   result.Events,
		Stats:    result.Stats,
	}
	ds.Locations, ds.Unlocated = p.locate(ctx, result.Events)

	if p.publisher != nil {
		p.publish(ctx, ds)
	}

	p.state.Store(&loadState{dataset: ds})
	p.metrics.DatasetLoaded.Set(1)
	p.metrics.DatasetEvents.Set(float64(len(ds.Events)))
	p.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("dataset loaded",
		"dataset_id", ds.ID,
		"rows_read", ds.Stats.Total,
		"rows_accepted", ds.Stats.Accepted,
		"rows_dropped", ds.Stats.Dropped,
		"dropped_by_reason", ds.Stats.DroppedByReason,
		"year_mismatches", ds.Stats.YearMismatches,
		"unlocated_installations", len(ds.Unlocated),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (p *Pipeline) ingest(ctx context.Context) (ingest.Result, error) {
	rc, err := p.source.Open(ctx)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("open %s: %w", p.source, err)
	}
	defer rc.Close()

	result, err := p.parser.Parse(rc)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("parse %s: %w", p.source, err)
	}
	return result, nil
}

func (p *Pipeline) fail(err error) {
	p.state.Store(&loadState{err: err})
	p.metrics.LoadFailures.Inc()
	p.metrics.DatasetLoaded.Set(0)
	p.metrics.DatasetEvents.Set(0)
	p.logger.Error("dataset load failed", "source", p.source.String(), "error", err)
}

func (p *Pipeline) recordStats(s ingest.Stats) {
	p.metrics.RowsRead.Add(float64(s.Total))
	p.metrics.RowsAccepted.Add(float64(s.Accepted))
	p.metrics.YearMismatches.Add(float64(s.YearMismatches))
	for reason, n := range s.DroppedByReason {
		p.metrics.RowsDropped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// locate resolves every distinct installation, first from the static table
// and then from the geocoder. Installations that resolve nowhere are listed
// in discovery order.
func (p *Pipeline) locate(ctx context.Context, events []domain.WeatherEvent) (analytics.Locations, []string) {
	locations := make(analytics.Locations)
	var unlocated []string
	seen := make(map[string]struct{})

	for _, ev := range events {
		if _, ok := seen[ev.Installation]; ok {
			continue
		}
		seen[ev.Installation] = struct{}{}

		if p.locator != nil {
			if loc, ok := p.locator.Location(ev.Installation); ok {
				locations[ev.Installation] = loc
				continue
			}
		}
		if loc, ok := p.geocode(ctx, ev.Installation, ev.State); ok {
			locations[ev.Installation] = loc
			continue
		}
		unlocated = append(unlocated, ev.Installation)
	}
	return locations, unlocated
}

func (p *Pipeline) geocode(ctx context.Context, installation, state string) (domain.Location, bool) {
	if p.geocoder == nil || installation == "" {
		return domain.Location{}, false
	}
	result, err := p.geocoder.ForwardGeocode(ctx, installation, state)
	if err != nil {
		p.logger.Warn("installation geocoding failed", "installation", installation, "state", state, "error", err)
		return domain.Location{}, false
	}
	if !result.Found() {
		return domain.Location{}, false
	}
	return domain.Location{Lat: result.Lat, Lon: result.Lon}, true
}

// publish writes the dataset in batches. Publishing is best effort: a failed
// batch is logged and counted and the remaining batches are still attempted.
func (p *Pipeline) publish(ctx context.Context, ds *Dataset) {
	classified := make([]domain.ClassifiedEvent, len(ds.Events))
	for i, ev := range ds.Events {
		classified[i] = p.classifier.ClassifyEvent(ev)
	}

	published := 0
	for start := 0; start < len(classified); start += p.batchSize {
		end := min(start+p.batchSize, len(classified))
		batch := classified[start:end]
		if err := p.publisher.PublishBatch(ctx, ds.ID, ds.LoadedAt, batch); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Error("publish batch failed", "dataset_id", ds.ID, "batch_start", start, "batch_size", len(batch), "error", err)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		published += len(batch)
		p.metrics.EventsPublished.Add(float64(len(batch)))
	}
	p.logger.Info("dataset published", "dataset_id", ds.ID, "events_published", published)
}
