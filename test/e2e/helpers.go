//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/api/handlers"
	"github.com/cloo-solutions/plotsearch/internal/authclient"
	"github.com/cloo-solutions/plotsearch/internal/cli/client"
	"github.com/cloo-solutions/plotsearch/internal/contracts"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/repository"
	"github.com/cloo-solutions/plotsearch/internal/server"
	"github.com/cloo-solutions/plotsearch/internal/service"
	"github.com/cloo-solutions/plotsearch/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// E2ETestEnv holds the database, the API server and a fake auth service.
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	Pool      *pgxpool.Pool
	ServerURL string
	Saved     *service.SavedSearchService
	Metrics   *metrics.Metrics
}

// SetupE2EEnv starts PostGIS, migrates it, seeds reference data and serves
// the full router over httptest.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	m := metrics.New()

	properties := repository.NewPropertyRepository(pool, true)
	executor := service.NewQueryExecutor(properties, service.ExecutorConfig{
		StoreTimeout:  5 * time.Second,
		MaxCandidates: 1000,
	}, logger, m)
	search := service.NewSearchService(executor, repository.NewLocationRepository(pool), repository.NewFeatureRepository(pool), logger, m)
	geoSvc := service.NewGeoService(executor, logger, m)
	saved := service.NewSavedSearchService(repository.NewSavedSearchRepository(pool), repository.NewTxRunner(pool), search, logger, m)

	auth := httptest.NewServer(http.HandlerFunc(fakeAuth))
	t.Cleanup(auth.Close)

	api := httptest.NewServer(server.NewRouter(server.RouterConfig{
		Logger:             logger,
		Metrics:            m,
		TokenValidator:     authclient.NewClient(auth.URL),
		Database:           pool,
		SearchHandler:      handlers.NewSearchHandler(search),
		GeoHandler:         handlers.NewGeoHandler(geoSvc),
		SavedSearchHandler: handlers.NewSavedSearchHandler(saved),
	}))
	t.Cleanup(api.Close)

	env := &E2ETestEnv{T: t, Ctx: ctx, Pool: pool, ServerURL: api.URL, Saved: saved, Metrics: m}
	env.seed()
	return env
}

// fakeAuth accepts any "user-*" token and answers with that user id.
func fakeAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	token := req.Token
	if !strings.HasPrefix(token, "user-") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_ = json.NewEncoder(w).Encode(authclient.Claims{UserID: token, Role: "user"})
}

// Client returns an API client authenticated as userID ("" for anonymous).
func (e *E2ETestEnv) Client(userID string) *client.APIClient {
	return client.NewAPIClientWithConfig(userID, e.ServerURL)
}

// Listing coordinates around Agva; Kumbaba is ~4.5 km east of Agva center.
var (
	agva    = geo.Point{Lat: 41.1380, Lng: 29.8560}
	kumbaba = geo.Point{Lat: 41.1690, Lng: 29.8935}
	sile    = geo.Point{Lat: 41.1750, Lng: 29.6100}
)

func (e *E2ETestEnv) seed() {
	t, ctx := e.T, e.Ctx
	locations := repository.NewLocationRepository(e.Pool)
	features := repository.NewFeatureRepository(e.Pool)
	properties := repository.NewPropertyRepository(e.Pool, true)

	for _, l := range []*domain.Location{
		{ID: "marmara", Name: "Marmara", Level: domain.LocationLevelRegion},
		{ID: "sile", Name: "Sile", Level: domain.LocationLevelDistrict, ParentID: "marmara"},
		{ID: "agva", Name: "Agva", Level: domain.LocationLevelSubDistrict, ParentID: "sile"},
	} {
		require.NoError(t, locations.Create(ctx, l))
	}
	for _, f := range []*domain.Feature{{ID: "well", Name: "Well"}, {ID: "sea-view", Name: "Sea view"}} {
		require.NoError(t, features.Create(ctx, f))
	}

	now := time.Now().UTC().Truncate(time.Second)
	listing := func(title string, price, area float64, at geo.Point, loc string, status domain.ListingStatus, age time.Duration, feats ...string) {
		p := &domain.Property{
			ID:          uuid.NewString(),
			Title:       title,
			Price:       price,
			Area:        &area,
			Category:    domain.CategoryLand,
			Status:      status,
			OwnerID:     "user-owner",
			LocationID:  loc,
			Coordinates: &at,
			CreatedAt:   now.Add(-age),
			UpdatedAt:   now.Add(-age),
		}
		for _, id := range feats {
			p.Features = append(p.Features, domain.Feature{ID: id})
		}
		require.NoError(t, properties.Create(ctx, p))
	}

	listing("Agva riverside plot", 40000, 800, agva, "agva", domain.ListingStatusPublished, time.Hour, "well", "sea-view")
	listing("Kumbaba hill plot", 25000, 1000, kumbaba, "agva", domain.ListingStatusPublished, 2*time.Hour, "well")
	listing("Sile field", 90000, 3000, sile, "sile", domain.ListingStatusPublished, 3*time.Hour)
	listing("Unpublished draft", 10000, 500, agva, "agva", domain.ListingStatusDraft, 4*time.Hour)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []contracts.MatchEvaluated
}

func (p *recordingPublisher) PublishMatch(_ context.Context, ev contracts.MatchEvaluated) error {
	p.events = append(p.events, ev)
	return nil
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
