package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plotsearch/internal/api/middleware"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

type MockSavedSearchService struct {
	mock.Mock
}

func (m *MockSavedSearchService) Create(ctx context.Context, in service.CreateSavedSearchInput) (*domain.SavedSearch, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchService) Get(ctx context.Context, id, userID string) (*domain.SavedSearch, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchService) List(ctx context.Context, userID string) ([]*domain.SavedSearch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchService) Update(ctx context.Context, in service.UpdateSavedSearchInput) (*domain.SavedSearch, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

func (m *MockSavedSearchService) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockSavedSearchService) Execute(ctx context.Context, id, userID string, page, limit int) (*service.SearchResult, error) {
	args := m.Called(ctx, id, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

func (m *MockSavedSearchService) MatchCount(ctx context.Context, id, userID string) (int, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSavedSearchService) ExactCount(ctx context.Context, id, userID string) (int, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSavedSearchService) ToggleNotification(ctx context.Context, id, userID string) (*domain.SavedSearch, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SavedSearch), args.Error(1)
}

const savedID = "7b0c5a52-3f1e-4a3b-9d7e-2f8f0d4c1a11"

func authed(method, target, body, userID, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func sampleSaved() *domain.SavedSearch {
	return &domain.SavedSearch{
		ID:     savedID,
		UserID: "alice",
		Name:   "Vineyards near Izmir",
		Criteria: domain.SearchCriteria{
			Category: domain.CategoryVineyard,
			Price:    domain.Between(nil, ptr(300000.0)),
		},
		IsActive:  true,
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}

func TestSavedSearchHandler_Create(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateSavedSearchInput) bool {
		return in.UserID == "alice" && in.Name == "Vineyards near Izmir" && in.Notify &&
			in.Criteria.Category == domain.CategoryVineyard && *in.Criteria.Price.Max == 300000 &&
			in.Criteria.Geo != nil && in.Criteria.Geo.RadiusKm == 10
	})).Return(sampleSaved(), nil)

	body := `{"name":"Vineyards near Izmir","notify":true,"criteria":{"category":"VINEYARD","max_price":300000,` +
		`"geo":{"center":{"lat":38.4,"lng":27.1},"radius_km":10}}}`
	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).Create(w, authed(http.MethodPost, "/saved-searches", body, "alice", ""))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp SavedSearchResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, savedID, resp.ID)
	assert.True(t, resp.IsActive)
	assert.Equal(t, "VINEYARD", resp.Criteria.Category)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.CreatedAt)
	svc.AssertExpectations(t)
}

func TestSavedSearchHandler_RequiresUser(t *testing.T) {
	svc := new(MockSavedSearchService)
	h := NewSavedSearchHandler(svc)

	for name, fn := range map[string]http.HandlerFunc{
		"create": h.Create, "list": h.List, "get": h.Get, "update": h.Update,
		"delete": h.Delete, "results": h.Results, "count": h.Count, "toggle": h.ToggleNotification,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, authed(http.MethodGet, "/saved-searches", "", "", savedID))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestSavedSearchHandler_NonOwnerIsForbidden(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("Get", mock.Anything, savedID, "mallory").Return(nil, domain.ErrNotSavedSearchOwner)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).Get(w, authed(http.MethodGet, "/saved-searches/"+savedID, "", "mallory", savedID))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, domain.ErrCodeForbidden, decode(t, w).Code)
}

func TestSavedSearchHandler_UpdatePatch(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("Update", mock.Anything, mock.MatchedBy(func(in service.UpdateSavedSearchInput) bool {
		maxPrice, maxSet := in.Patch.MaxPrice.Get()
		minPrice, minSet := in.Patch.MinPrice.Get()
		return in.ID == savedID && in.UserID == "alice" &&
			!in.Name.Set &&
			maxSet && *maxPrice == 250000 &&
			minSet && minPrice == nil &&
			!in.Patch.Category.Set
	})).Return(sampleSaved(), nil)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).Update(w, authed(http.MethodPatch, "/saved-searches/"+savedID,
		`{"criteria":{"max_price":250000,"min_price":null}}`, "alice", savedID))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSavedSearchHandler_Delete(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("Delete", mock.Anything, savedID, "alice").Return(nil)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).Delete(w, authed(http.MethodDelete, "/saved-searches/"+savedID, "", "alice", savedID))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSavedSearchHandler_Results(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("Execute", mock.Anything, savedID, "alice", 3, 5).Return(sampleResult("p9"), nil)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).Results(w, authed(http.MethodGet, "/saved-searches/"+savedID+"/results?page=3&limit=5", "", "alice", savedID))

	require.Equal(t, http.StatusOK, w.Code)
	var body SearchResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, "p9", body.Items[0].ID)
}

func TestSavedSearchHandler_Count(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("MatchCount", mock.Anything, savedID, "alice").Return(3, nil)
	svc.On("ExactCount", mock.Anything, savedID, "alice").Return(1, nil)
	h := NewSavedSearchHandler(svc)

	w := httptest.NewRecorder()
	h.Count(w, authed(http.MethodGet, "/saved-searches/"+savedID+"/count", "", "alice", savedID))
	var cheap CountResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cheap))
	assert.Equal(t, CountResponse{SavedSearchID: savedID, Count: 3, Exact: false}, cheap)

	w = httptest.NewRecorder()
	h.Count(w, authed(http.MethodGet, "/saved-searches/"+savedID+"/count?exact=true", "", "alice", savedID))
	var exact CountResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &exact))
	assert.Equal(t, CountResponse{SavedSearchID: savedID, Count: 1, Exact: true}, exact)
}

func TestSavedSearchHandler_Toggle(t *testing.T) {
	toggled := sampleSaved()
	toggled.IsActive = false
	svc := new(MockSavedSearchService)
	svc.On("ToggleNotification", mock.Anything, savedID, "alice").Return(toggled, nil)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).ToggleNotification(w, authed(http.MethodPost, "/saved-searches/"+savedID+"/toggle-notification", "", "alice", savedID))

	require.Equal(t, http.StatusOK, w.Code)
	var resp SavedSearchResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.False(t, resp.IsActive)
}

func TestSavedSearchHandler_List(t *testing.T) {
	svc := new(MockSavedSearchService)
	svc.On("List", mock.Anything, "alice").Return([]*domain.SavedSearch{sampleSaved()}, nil)

	w := httptest.NewRecorder()
	NewSavedSearchHandler(svc).List(w, authed(http.MethodGet, "/saved-searches", "", "alice", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var resp []SavedSearchResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Vineyards near Izmir", resp[0].Name)
}
