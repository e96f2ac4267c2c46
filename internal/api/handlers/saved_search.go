package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/plotsearch/internal/api"
	"github.com/cloo-solutions/plotsearch/internal/api/middleware"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

type SavedSearchService interface {
	Create(ctx context.Context, in service.CreateSavedSearchInput) (*domain.SavedSearch, error)
	Get(ctx context.Context, id, userID string) (*domain.SavedSearch, error)
	List(ctx context.Context, userID string) ([]*domain.SavedSearch, error)
	Update(ctx context.Context, in service.UpdateSavedSearchInput) (*domain.SavedSearch, error)
	Delete(ctx context.Context, id, userID string) error
	Execute(ctx context.Context, id, userID string, page, limit int) (*service.SearchResult, error)
	MatchCount(ctx context.Context, id, userID string) (int, error)
	ExactCount(ctx context.Context, id, userID string) (int, error)
	ToggleNotification(ctx context.Context, id, userID string) (*domain.SavedSearch, error)
}

type SavedSearchHandler struct {
	svc SavedSearchService
}

func NewSavedSearchHandler(svc SavedSearchService) *SavedSearchHandler {
	return &SavedSearchHandler{svc: svc}
}

type CreateSavedSearchRequest struct {
	Name     string       `json:"name"`
	Criteria CriteriaBody `json:"criteria"`
	Notify   bool         `json:"notify"`
}

type UpdateSavedSearchRequest struct {
	Name     domain.Optional[string] `json:"name"`
	Criteria domain.CriteriaPatch    `json:"criteria"`
}

type CountResponse struct {
	SavedSearchID string `json:"saved_search_id"`
	Count         int    `json:"count"`
	Exact         bool   `json:"exact"`
}

// caller returns the authenticated user and the {id} path parameter. It
// writes the error response itself and returns ok=false on failure.
func caller(w http.ResponseWriter, r *http.Request) (userID, id string, ok bool) {
	userID = middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", "", false
	}
	return userID, chi.URLParam(r, "id"), true
}

func (h *SavedSearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreateSavedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.svc.Create(r.Context(), service.CreateSavedSearchInput{
		UserID:   userID,
		Name:     req.Name,
		Criteria: req.Criteria.toDomain(),
		Notify:   req.Notify,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, savedSearchToResponse(saved))
}

func (h *SavedSearchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := caller(w, r)
	if !ok {
		return
	}

	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]*SavedSearchResponse, len(list))
	for i, s := range list {
		resp[i] = savedSearchToResponse(s)
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *SavedSearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}

	saved, err := h.svc.Get(r.Context(), id, userID)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, savedSearchToResponse(saved))
}

func (h *SavedSearchHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}

	var req UpdateSavedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.svc.Update(r.Context(), service.UpdateSavedSearchInput{
		ID:     id,
		UserID: userID,
		Name:   req.Name,
		Patch:  req.Criteria,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, savedSearchToResponse(saved))
}

func (h *SavedSearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		api.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Results handles GET /saved-searches/{id}/results against live listings.
func (h *SavedSearchHandler) Results(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}
	q := newQueryParams(r)
	page := q.intOr("page", 1)
	limit := q.intOr("limit", 0)
	if q.failed(w) {
		return
	}

	result, err := h.svc.Execute(r.Context(), id, userID, page, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, searchToResponse(result))
}

// Count handles GET /saved-searches/{id}/count. With ?exact=true post-filters
// are applied, which costs a scan of every candidate.
func (h *SavedSearchHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}
	q := newQueryParams(r)
	exact := q.bool("exact")
	if q.failed(w) {
		return
	}

	var (
		n   int
		err error
	)
	if exact != nil && *exact {
		n, err = h.svc.ExactCount(r.Context(), id, userID)
	} else {
		n, err = h.svc.MatchCount(r.Context(), id, userID)
	}
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, CountResponse{SavedSearchID: id, Count: n, Exact: exact != nil && *exact})
}

func (h *SavedSearchHandler) ToggleNotification(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := caller(w, r)
	if !ok {
		return
	}

	saved, err := h.svc.ToggleNotification(r.Context(), id, userID)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, savedSearchToResponse(saved))
}
