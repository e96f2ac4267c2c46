package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

type GeoService interface {
	SearchRadius(ctx context.Context, center geo.Point, radiusKm float64, page pagination.Page) (*service.SearchResult, error)
	SearchBoundingBox(ctx context.Context, box geo.Box, page pagination.Page) (*service.SearchResult, error)
	Cluster(ctx context.Context, box geo.Box, zoom int) ([]service.ClusterPoint, error)
	DistanceBetween(a, b geo.Point) (float64, error)
	SearchAlongRoute(ctx context.Context, waypoints []geo.Point, bufferKm float64) ([]*domain.Property, error)
}

type GeoHandler struct {
	svc GeoService
}

func NewGeoHandler(svc GeoService) *GeoHandler {
	return &GeoHandler{svc: svc}
}

type ClusterResponse struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Count     int      `json:"count"`
	AvgPrice  float64  `json:"avg_price"`
	MinPrice  float64  `json:"min_price"`
	MaxPrice  float64  `json:"max_price"`
	MemberIDs []string `json:"member_ids"`
	Cell      string   `json:"cell,omitempty"`
}

type DistanceResponse struct {
	From       geo.Point `json:"from"`
	To         geo.Point `json:"to"`
	DistanceKm float64   `json:"distance_km"`
}

type RouteRequest struct {
	Waypoints []geo.Point `json:"waypoints"`
	BufferKm  float64     `json:"buffer_km"`
}

type RouteResponse struct {
	Items []PropertyResponse `json:"items"`
	Count int                `json:"count"`
}

func pageFrom(q *queryParams, defaultLimit int) pagination.Page {
	return pagination.New(q.intOr("page", 1), q.intOr("limit", 0), defaultLimit)
}

// Radius handles GET /geo/radius.
func (h *GeoHandler) Radius(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	center := q.requirePoint("lat", "lng")
	radius := q.float("radius_km")
	if radius == nil {
		q.fail("radius_km", "is required")
	}
	page := pageFrom(q, pagination.RadiusDefaultLimit)
	if q.failed(w) {
		return
	}

	result, err := h.svc.SearchRadius(r.Context(), center, *radius, page)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, searchToResponse(result))
}

// BoundingBox handles GET /geo/bbox.
func (h *GeoHandler) BoundingBox(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	box := q.requireBox()
	page := pageFrom(q, pagination.BoxDefaultLimit)
	if q.failed(w) {
		return
	}

	result, err := h.svc.SearchBoundingBox(r.Context(), box, page)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, searchToResponse(result))
}

// Clusters handles GET /geo/clusters.
func (h *GeoHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	box := q.requireBox()
	zoom := q.int("zoom")
	if zoom == nil {
		q.fail("zoom", "is required")
	}
	if q.failed(w) {
		return
	}

	clusters, err := h.svc.Cluster(r.Context(), box, *zoom)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]ClusterResponse, len(clusters))
	for i, c := range clusters {
		resp[i] = ClusterResponse{
			Lat:       c.Lat,
			Lng:       c.Lng,
			Count:     c.Count,
			AvgPrice:  c.AvgPrice,
			MinPrice:  c.MinPrice,
			MaxPrice:  c.MaxPrice,
			MemberIDs: c.MemberIDs,
			Cell:      c.Cell,
		}
	}
	api.Success(w, http.StatusOK, resp)
}

// Distance handles GET /geo/distance.
func (h *GeoHandler) Distance(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	from := q.requirePoint("from_lat", "from_lng")
	to := q.requirePoint("to_lat", "to_lng")
	if q.failed(w) {
		return
	}

	km, err := h.svc.DistanceBetween(from, to)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, DistanceResponse{From: from, To: to, DistanceKm: km})
}

// Route handles POST /geo/route.
func (h *GeoHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	listings, err := h.svc.SearchAlongRoute(r.Context(), req.Waypoints, req.BufferKm)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := RouteResponse{Items: make([]PropertyResponse, len(listings)), Count: len(listings)}
	for i, p := range listings {
		resp.Items[i] = propertyToResponse(p, nil)
	}
	api.Success(w, http.StatusOK, resp)
}
