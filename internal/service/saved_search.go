package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/pagination"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
	"github.com/google/uuid"
)

// SavedSearchService manages saved searches and replays them against live
// listings.
type SavedSearchService struct {
	repo     SavedSearchRepositoryInterface
	txRunner TxRunner
	search   *SearchService
	uuidGen  UUIDGenerator
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSavedSearchService creates a SavedSearchService. txRunner may be nil, in
// which case updates run without a transaction.
func NewSavedSearchService(repo SavedSearchRepositoryInterface, txRunner TxRunner, search *SearchService, logger *slog.Logger, m *metrics.Metrics) *SavedSearchService {
	return &SavedSearchService{
		repo:     repo,
		txRunner: txRunner,
		search:   search,
		uuidGen:  &DefaultUUIDGenerator{},
		now:      time.Now,
		logger:   logging.OrDefault(logger),
		metrics:  m,
	}
}

// NewSavedSearchServiceWithDeps creates a SavedSearchService with injectable
// id and clock sources (for testing).
func NewSavedSearchServiceWithDeps(repo SavedSearchRepositoryInterface, txRunner TxRunner, search *SearchService, uuidGen UUIDGenerator, now func() time.Time) *SavedSearchService {
	s := NewSavedSearchService(repo, txRunner, search, nil, nil)
	s.uuidGen = uuidGen
	s.now = now
	return s
}

// CreateSavedSearchInput is the input for Create.
type CreateSavedSearchInput struct {
	UserID   string
	Name     string
	Criteria domain.SearchCriteria
	Notify   bool
}

// UpdateSavedSearchInput is the input for Update.
type UpdateSavedSearchInput struct {
	ID     string
	UserID string
	Name   domain.Optional[string]
	Patch  domain.CriteriaPatch
}

// Create stores criteria minus pagination and sort, with IsActive = Notify.
// Criteria are compiled once so that a saved search is always runnable.
func (s *SavedSearchService) Create(ctx context.Context, in CreateSavedSearchInput) (saved *domain.SavedSearch, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.Create", telemetry.SpanAttributes{UserID: in.UserID, Operation: "saved_search.create"})
	defer span.End()
	defer func() { span.SetError(err) }()

	if in.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	name, err := domain.ValidateSavedSearchName(in.Name)
	if err != nil {
		return nil, err
	}
	criteria := in.Criteria.Filters()
	if _, err := s.search.Compile(ctx, criteria, filter.PublicScope()); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	saved = &domain.SavedSearch{
		ID:        s.uuidGen.NewString(),
		UserID:    in.UserID,
		Name:      name,
		Criteria:  criteria,
		IsActive:  in.Notify,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, saved); err != nil {
		return nil, storeError("create saved search", err)
	}
	s.logger.Info("saved search created", "saved_search_id", saved.ID, "user_id", saved.UserID, "active", saved.IsActive)
	return saved, nil
}

// Get returns one saved search owned by userID.
func (s *SavedSearchService) Get(ctx context.Context, id, userID string) (*domain.SavedSearch, error) {
	return s.loadOwned(ctx, s.repo, id, userID, false)
}

// List returns every saved search owned by userID, newest first.
func (s *SavedSearchService) List(ctx context.Context, userID string) ([]*domain.SavedSearch, error) {
	if userID == "" {
		return nil, domain.ErrInvalidToken
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list saved searches", err)
	}
	return list, nil
}

// Update merges in over the stored saved search after an ownership check.
// Only supplied fields change.
func (s *SavedSearchService) Update(ctx context.Context, in UpdateSavedSearchInput) (saved *domain.SavedSearch, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.Update", telemetry.SpanAttributes{
		UserID:        in.UserID,
		SavedSearchID: in.ID,
		Operation:     "saved_search.update",
	})
	defer span.End()
	defer func() { span.SetError(err) }()

	var name string
	if in.Name.Set {
		if name, err = domain.ValidateSavedSearchName(in.Name.Value); err != nil {
			return nil, err
		}
	}

	err = s.inTx(ctx, func(repo SavedSearchRepositoryInterface) error {
		current, err := s.loadOwned(ctx, repo, in.ID, in.UserID, true)
		if err != nil {
			return err
		}
		next := *current
		if in.Name.Set {
			next.Name = name
		}
		if !in.Patch.IsEmpty() {
			next.Criteria = in.Patch.Apply(current.Criteria)
			if _, err := s.search.Compile(ctx, next.Criteria, filter.PublicScope()); err != nil {
				return err
			}
		}
		next.UpdatedAt = s.now().UTC()
		if err := repo.Update(ctx, &next); err != nil {
			return storeError("update saved search", err)
		}
		saved = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete removes a saved search owned by userID.
func (s *SavedSearchService) Delete(ctx context.Context, id, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.Delete", telemetry.SpanAttributes{
		UserID:        userID,
		SavedSearchID: id,
		Operation:     "saved_search.delete",
	})
	defer span.End()

	err := s.inTx(ctx, func(repo SavedSearchRepositoryInterface) error {
		if _, err := s.loadOwned(ctx, repo, id, userID, true); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return storeError("delete saved search", err)
		}
		return nil
	})
	span.SetError(err)
	if err == nil {
		s.logger.Info("saved search deleted", "saved_search_id", id, "user_id", userID)
	}
	return err
}

// Execute replays the stored criteria exactly as a live search would, newest
// listings first. Nothing is cached; every call reads current data.
func (s *SavedSearchService) Execute(ctx context.Context, id, userID string, page, limit int) (result *SearchResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.Execute", telemetry.SpanAttributes{
		UserID:        userID,
		SavedSearchID: id,
		Operation:     "saved_search.execute",
	})
	defer span.End()
	defer func() { span.SetError(err) }()

	saved, err := s.loadOwned(ctx, s.repo, id, userID, false)
	if err != nil {
		return nil, err
	}
	criteria := saved.Criteria
	criteria.Page = page
	criteria.Limit = limit
	return s.search.Search(ctx, SearchInput{
		Criteria:     criteria,
		Scope:        filter.PublicScope(),
		DefaultLimit: pagination.DefaultLimit,
	})
}

// MatchCount is the cheap count: only store-pushable predicates are counted,
// so it may exceed what Execute returns when post-filters are present.
func (s *SavedSearchService) MatchCount(ctx context.Context, id, userID string) (int, error) {
	saved, err := s.loadOwned(ctx, s.repo, id, userID, false)
	if err != nil {
		return 0, err
	}
	return s.CountMatches(ctx, saved, false)
}

// ExactCount counts with post-filters applied.
func (s *SavedSearchService) ExactCount(ctx context.Context, id, userID string) (int, error) {
	saved, err := s.loadOwned(ctx, s.repo, id, userID, false)
	if err != nil {
		return 0, err
	}
	return s.CountMatches(ctx, saved, true)
}

// CountMatches counts the listings matching saved without an ownership
// check. It serves the notification sweep.
func (s *SavedSearchService) CountMatches(ctx context.Context, saved *domain.SavedSearch, exact bool) (n int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.CountMatches", telemetry.SpanAttributes{
		UserID:        saved.UserID,
		SavedSearchID: saved.ID,
		Operation:     "saved_search.count",
	})
	defer span.End()
	span.SetData("exact", exact)
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("saved_search.count", start, err)
		span.SetError(err)
	}()

	tree, err := s.search.Compile(ctx, saved.Criteria, filter.PublicScope())
	if err != nil {
		return 0, err
	}
	if exact {
		return s.search.executor.CountExact(ctx, tree)
	}
	return s.search.executor.Count(ctx, tree)
}

// ToggleNotification flips IsActive. Two toggles restore the original value.
func (s *SavedSearchService) ToggleNotification(ctx context.Context, id, userID string) (saved *domain.SavedSearch, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SavedSearchService.ToggleNotification", telemetry.SpanAttributes{
		UserID:        userID,
		SavedSearchID: id,
		Operation:     "saved_search.toggle",
	})
	defer span.End()
	defer func() { span.SetError(err) }()

	err = s.inTx(ctx, func(repo SavedSearchRepositoryInterface) error {
		current, err := s.loadOwned(ctx, repo, id, userID, true)
		if err != nil {
			return err
		}
		next := *current
		next.IsActive = !current.IsActive
		next.UpdatedAt = s.now().UTC()
		if err := repo.Update(ctx, &next); err != nil {
			return storeError("toggle saved search notification", err)
		}
		saved = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListActiveForNotificationSweep returns every active saved search across
// all users.
func (s *SavedSearchService) ListActiveForNotificationSweep(ctx context.Context) ([]*domain.SavedSearch, error) {
	list, err := s.repo.FindAllActive(ctx)
	if err != nil {
		return nil, storeError("list active saved searches", err)
	}
	return list, nil
}

// loadOwned fetches a saved search and checks ownership. A missing row, a
// malformed id and a foreign owner all yield ErrNotSavedSearchOwner so
// callers cannot probe for existence.
func (s *SavedSearchService) loadOwned(ctx context.Context, repo SavedSearchRepositoryInterface, id, userID string, lock bool) (*domain.SavedSearch, error) {
	if userID == "" {
		return nil, domain.ErrInvalidToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotSavedSearchOwner
	}

	var (
		saved *domain.SavedSearch
		err   error
	)
	if lock {
		saved, err = repo.GetByIDForUpdate(ctx, id)
	} else {
		saved, err = repo.GetByID(ctx, id)
	}
	if errors.Is(err, domain.ErrSavedSearchNotFound) {
		return nil, domain.ErrNotSavedSearchOwner
	}
	if err != nil {
		return nil, storeError("get saved search", err)
	}
	if !saved.OwnedBy(userID) {
		return nil, domain.ErrNotSavedSearchOwner
	}
	return saved, nil
}

func (s *SavedSearchService) inTx(ctx context.Context, fn func(repo SavedSearchRepositoryInterface) error) error {
	if s.txRunner == nil {
		return fn(s.repo)
	}
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		return fn(repos.SavedSearches())
	})
}
