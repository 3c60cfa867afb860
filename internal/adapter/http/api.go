package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/domain"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
)

// API serves aggregate views of the loaded dataset and the scenario catalog.
type API struct {
	engine     *analytics.Engine
	calculator *analytics.Calculator
	forecast   []domain.ForecastPoint
	opts       analytics.Options
	logger     *slog.Logger
}

// NewAPI creates the JSON API handlers.
func NewAPI(engine *analytics.Engine, calculator *analytics.Calculator, forecast []domain.ForecastPoint, opts analytics.Options, logger *slog.Logger) *API {
	return &API{
		engine:     engine,
		calculator: calculator,
		forecast:   forecast,
		opts:       opts,
		logger:     logger,
	}
}

type datasetHandler func(w http.ResponseWriter, r *http.Request, ds *pipeline.Dataset)

// routes builds the /api subtree. Every request gets a request ID, a log
// line, and panic recovery.
func (a *API) routes(store DatasetStore) http.Handler {
	withDataset := func(h datasetHandler) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ds, err := store.Current()
			if err != nil {
				a.logger.Debug("dataset unavailable", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusServiceUnavailable, err)
				return
			}
			h(w, r, ds)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", withDataset(a.handleDashboard))
		r.Get("/events", withDataset(a.handleEvents))
		r.Get("/installations", withDataset(a.handleInstallations))
		r.Get("/installations.geojson", withDataset(a.handleInstallationsGeoJSON))
		r.Get("/ingestion", withDataset(a.handleIngestion))
		r.Get("/scenarios", a.handleScenarios)
		r.Get("/scenarios/impact", a.handleImpact)
	})
	return r
}

// requestLogger echoes the request ID and logs each request at debug level.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		w.Header().Set(middleware.RequestIDHeader, reqID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			a.logger.Debug("api request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type dashboardResponse struct {
	DatasetID string    `json:"dataset_id"`
	LoadedAt  time.Time `json:"loaded_at"`
	analytics.Dashboard
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request, ds *pipeline.Dataset) {
	sel, ok := selection(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, dashboardResponse{
		DatasetID: ds.ID,
		LoadedAt:  ds.LoadedAt,
		Dashboard: a.engine.Build(ds.Events, sel, a.opts),
	})
}

type eventsResponse struct {
	DatasetID string                   `json:"dataset_id"`
	Selection analytics.Selection      `json:"selection"`
	Count     int                      `json:"count"`
	Events    []domain.ClassifiedEvent `json:"events"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request, ds *pipeline.Dataset) {
	sel, ok := selection(w, r)
	if !ok {
		return
	}
	events := a.engine.ClassifyAll(a.engine.Filter(ds.Events, sel))
	sharedobs.WriteJSON(w, http.StatusOK, eventsResponse{
		DatasetID: ds.ID,
		Selection: sel,
		Count:     len(events),
		Events:    events,
	})
}

type installationsResponse struct {
	DatasetID     string                        `json:"dataset_id"`
	Selection     analytics.Selection           `json:"selection"`
	Installations []analytics.InstallationPoint `json:"installations"`
}

func (a *API) handleInstallations(w http.ResponseWriter, r *http.Request, ds *pipeline.Dataset) {
	sel, ok := selection(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, installationsResponse{
		DatasetID:     ds.ID,
		Selection:     sel,
		Installations: ds.Installations(a.engine.Filter(ds.Events, sel)),
	})
}

func (a *API) handleInstallationsGeoJSON(w http.ResponseWriter, r *http.Request, ds *pipeline.Dataset) {
	sel, ok := selection(w, r)
	if !ok {
		return
	}
	fc := analytics.FeatureCollection(ds.Installations(a.engine.Filter(ds.Events, sel)))
	fc.ExtraMembers = geojson.Properties{"dataset_id": ds.ID}
	w.Header().Set("Content-Type", "application/geo+json")
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	_, _ = w.Write(data)
}

type ingestionResponse struct {
	DatasetID string       `json:"dataset_id"`
	Source    string       `json:"source"`
	LoadedAt  time.Time    `json:"loaded_at"`
	Stats     ingest.Stats `json:"stats"`
	Unlocated []string     `json:"unlocated_installations"`
}

func (a *API) handleIngestion(w http.ResponseWriter, _ *http.Request, ds *pipeline.Dataset) {
	unlocated := ds.Unlocated
	if unlocated == nil {
		unlocated = []string{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, ingestionResponse{
		DatasetID: ds.ID,
		Source:    ds.Source,
		LoadedAt:  ds.LoadedAt,
		Stats:     ds.Stats,
		Unlocated: unlocated,
	})
}

type scenariosResponse struct {
	BaselineCost decimal.Decimal        `json:"baseline_cost"`
	Scenarios    []domain.Scenario      `json:"scenarios"`
	Forecast     []domain.ForecastPoint `json:"forecast"`
}

func (a *API) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, scenariosResponse{
		BaselineCost: a.calculator.Baseline(),
		Scenarios:    a.calculator.Scenarios(),
		Forecast:     a.forecast,
	})
}

type impactResponse struct {
	analytics.ScenarioResult
	Forecast []analytics.Projection `json:"forecast"`
}

// handleImpact accepts repeated id parameters and comma-separated lists.
func (a *API) handleImpact(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	res, err := a.calculator.Compute(ids)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrUnknownScenario) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, impactResponse{
		ScenarioResult: res,
		Forecast:       analytics.Project(a.forecast, res.EffectiveReductionFraction),
	})
}

// selection parses the year and category query parameters, writing a 400
// when either is invalid.
func selection(w http.ResponseWriter, r *http.Request) (analytics.Selection, bool) {
	q := r.URL.Query()
	sel, err := analytics.ParseSelection(q.Get("year"), q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return analytics.Selection{}, false
	}
	return sel, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
