package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	query  url.Values
	auth   string
	body   map[string]any
}

// fakeAPI records the last request and answers with data wrapped in the
// response envelope.
func fakeAPI(t *testing.T, status int, data any) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.Query()
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &got.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusNoContent {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		}
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	useTempConfig(t)

	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--api-url", srv.URL, "--token", "tok"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var emptyPage = map[string]any{
	"items":           []any{},
	"pagination":      map[string]any{"page": 1, "limit": 20, "total": 0, "totalPages": 0},
	"applied_filters": []string{},
}

func TestSearchCmd_EncodesFilters(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, emptyPage)

	out, err := execute(t, srv, "search",
		"--q", "sea view",
		"--min-price", "1000",
		"--category", "land",
		"--features", "f1,f2",
		"--feature-mode", "any",
		"--water",
		"--lat", "41.7", "--lng", "44.8", "--radius-km", "5",
		"--sort-by", "price", "--page", "2",
	)
	require.NoError(t, err)

	assert.Equal(t, "/properties/search", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "sea view", got.query.Get("q"))
	assert.Equal(t, "1000", got.query.Get("min_price"))
	assert.Equal(t, "LAND", got.query.Get("category"))
	assert.Equal(t, "f1,f2", got.query.Get("feature_ids"))
	assert.Equal(t, "ANY", got.query.Get("feature_mode"))
	assert.Equal(t, "true", got.query.Get("water"))
	assert.Equal(t, "5", got.query.Get("radius_km"))
	assert.Equal(t, "price", got.query.Get("sort_by"))
	assert.Equal(t, "2", got.query.Get("page"))
	assert.False(t, got.query.Has("max_price"))
	assert.False(t, got.query.Has("limit"))
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_Mine(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, emptyPage)

	_, err := execute(t, srv, "search", "--mine", "--status", "draft")
	require.NoError(t, err)
	assert.Equal(t, "/me/properties", got.path)
	assert.Equal(t, "DRAFT", got.query.Get("status"))
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, map[string]any{
		"items": []any{map[string]any{
			"id": "p1", "title": "Hillside plot", "price": 25000, "category": "LAND",
			"status": "ACTIVE", "area": 600, "distance_km": 1.234,
			"location_path": []string{"Tbilisi", "Vake"},
		}},
		"pagination":      map[string]any{"page": 1, "limit": 20, "total": 1, "totalPages": 1},
		"applied_filters": []string{"price"},
	})

	out, err := execute(t, srv, "search")
	require.NoError(t, err)
	assert.Contains(t, out, "Hillside plot")
	assert.Contains(t, out, "1.23 km")
	assert.Contains(t, out, "Tbilisi / Vake")
	assert.Contains(t, out, "Page 1 of 1 (1 total)")
	assert.Contains(t, out, "Filters: price")
}

func TestSearchCmd_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"is not a sort key","code":"VALIDATION_ERROR","field":"sort_by"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, srv, "search", "--sort-by", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field sort_by")
}

func TestRadiusCmd_RequiresFlags(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, emptyPage)

	_, err := execute(t, srv, "radius", "--lat", "41.7")
	assert.Error(t, err)
}

func TestBoundingBoxCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, emptyPage)

	_, err := execute(t, srv, "bbox", "--ne-lat", "42", "--ne-lng", "45", "--sw-lat", "41", "--sw-lng", "44", "--limit", "50")
	require.NoError(t, err)
	assert.Equal(t, "/geo/bbox", got.path)
	assert.Equal(t, "42", got.query.Get("ne_lat"))
	assert.Equal(t, "44", got.query.Get("sw_lng"))
	assert.Equal(t, "50", got.query.Get("limit"))
}

func TestDistanceCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, map[string]any{
		"from": map[string]any{"lat": 0, "lng": 0}, "to": map[string]any{"lat": 1, "lng": 0}, "distance_km": 111.2,
	})

	out, err := execute(t, srv, "distance", "--from-lat", "0", "--from-lng", "0", "--to-lat", "1", "--to-lng", "0")
	require.NoError(t, err)
	assert.Equal(t, "/geo/distance", got.path)
	assert.Equal(t, "1", got.query.Get("to_lat"))
	assert.Equal(t, "111.20 km\n", out)
}

func TestRouteCmd_PostsWaypoints(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, map[string]any{"items": []any{}, "count": 0})

	out, err := execute(t, srv, "route", "--waypoint", "41.7,44.8", "--waypoint", "41.6, 41.6", "--buffer-km", "3")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/geo/route", got.path)
	assert.Equal(t, 3.0, got.body["buffer_km"])
	require.Len(t, got.body["waypoints"], 2)
	assert.Equal(t, map[string]any{"lat": 41.6, "lng": 41.6}, got.body["waypoints"].([]any)[1])
	assert.Contains(t, out, "No listings along this route.")
}

func TestRouteCmd_BadWaypoint(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, nil)

	_, err := execute(t, srv, "route", "--waypoint", "41.7", "--buffer-km", "3")
	assert.ErrorContains(t, err, "expected lat,lng")
}

var savedFixture = map[string]any{
	"id": "s1", "name": "Cheap land", "is_active": true,
	"criteria":   map[string]any{"max_price": 50000},
	"created_at": "2026-03-01T12:00:00Z", "updated_at": "2026-03-01T12:00:00Z",
}

func TestSavedCreateCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusCreated, savedFixture)

	out, err := execute(t, srv, "saved", "create", "--name", "Cheap land", "--max-price", "50000",
		"--ne-lat", "42", "--ne-lng", "45", "--sw-lat", "41", "--sw-lng", "44")
	require.NoError(t, err)

	assert.Equal(t, "/saved-searches", got.path)
	assert.Equal(t, "Cheap land", got.body["name"])
	assert.Equal(t, true, got.body["notify"])
	criteria := got.body["criteria"].(map[string]any)
	assert.Equal(t, 50000.0, criteria["max_price"])
	assert.Equal(t, map[string]any{
		"north_east": map[string]any{"lat": 42.0, "lng": 45.0},
		"south_west": map[string]any{"lat": 41.0, "lng": 44.0},
	}, criteria["geo"])
	assert.Contains(t, out, "Name:    Cheap land")
}

func TestSavedCreateCmd_MixedGeo(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusCreated, savedFixture)

	_, err := execute(t, srv, "saved", "create", "--name", "x", "--lat", "1", "--lng", "1", "--radius-km", "2", "--ne-lat", "3")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestSavedUpdateCmd_MergeAndClear(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, savedFixture)

	_, err := execute(t, srv, "saved", "update", "s1", "--min-rooms", "2", "--clear", "geo,max_price")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/saved-searches/s1", got.path)
	assert.NotContains(t, got.body, "name")
	criteria := got.body["criteria"].(map[string]any)
	assert.Equal(t, 2.0, criteria["min_rooms"])
	assert.Contains(t, criteria, "geo")
	assert.Nil(t, criteria["geo"])
	assert.Nil(t, criteria["max_price"])
}

func TestSavedUpdateCmd_Nothing(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, savedFixture)

	_, err := execute(t, srv, "saved", "update", "s1")
	assert.ErrorContains(t, err, "nothing to update")
}

func TestSavedUpdateCmd_SetAndClearConflict(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, savedFixture)

	_, err := execute(t, srv, "saved", "update", "s1", "--max-price", "1", "--clear", "max_price")
	assert.ErrorContains(t, err, "both set and cleared")
}

func TestSavedListCmd(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, []any{savedFixture})

	out, err := execute(t, srv, "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "Cheap land")
}

func TestSavedCountCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, map[string]any{"saved_search_id": "s1", "count": 7, "exact": true})

	out, err := execute(t, srv, "saved", "count", "s1", "--exact")
	require.NoError(t, err)
	assert.Equal(t, "/saved-searches/s1/count", got.path)
	assert.Equal(t, "true", got.query.Get("exact"))
	assert.Equal(t, "7\n", out)
}

func TestSavedRunCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, emptyPage)

	_, err := execute(t, srv, "saved", "run", "s1", "--page", "3")
	require.NoError(t, err)
	assert.Equal(t, "/saved-searches/s1/results", got.path)
	assert.Equal(t, "3", got.query.Get("page"))
}

func TestSavedDeleteCmd(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusNoContent, nil)

	out, err := execute(t, srv, "saved", "delete", "s1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Contains(t, out, "Deleted s1")
}

func TestSavedToggleCmd_JSONOutput(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, savedFixture)

	out, err := execute(t, srv, "saved", "toggle", "s1", "--output")
	require.NoError(t, err)
	assert.Equal(t, "/saved-searches/s1/toggle-notification", got.path)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "s1", decoded["id"])
}
