package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/api/middleware"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, in service.SearchInput) (*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search handles GET /properties/search over published listings.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, filter.PublicScope())
}

// MyProperties handles GET /me/properties: the caller's own listings, where
// the status parameter may select any lifecycle stage.
func (h *SearchHandler) MyProperties(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.search(w, r, filter.OwnerScope(userID))
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request, scope filter.Scope) {
	q := newQueryParams(r)
	criteria := q.criteria()
	suggest := q.bool("suggest")
	available := q.bool("include_available")
	if q.failed(w) {
		return
	}

	result, err := h.svc.Search(r.Context(), service.SearchInput{
		Criteria:         criteria,
		Scope:            scope,
		DefaultLimit:     pagination.DefaultLimit,
		Suggest:          suggest != nil && *suggest,
		IncludeAvailable: available != nil && *available,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, searchToResponse(result))
}
