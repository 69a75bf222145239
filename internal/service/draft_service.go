package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/recap-backend-go/internal/clustering"
	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/repository"
)

// DefaultGeocodeConcurrency bounds the per-draft geocoding fan-out
const DefaultGeocodeConcurrency = 4

// Service errors
var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrClusterNotFound = errors.New("cluster not found")
)

// Geocoder resolves a coordinate to a display label. Resolve never fails;
// unavailable lookups come back as the Unknown Place fallback.
type Geocoder interface {
	Resolve(ctx context.Context, coord models.Coordinate) models.GeocodeResult
}

// DraftStore persists drafts. *repository.DraftRepository implements it.
type DraftStore interface {
	Save(ctx context.Context, draft *models.RecapDraft) error
	GetByID(ctx context.Context, id string) (*models.RecapDraft, error)
	UpdateClusterLabel(ctx context.Context, draftID, clusterID, title, subtitle string) error
	UpdateCustomTitle(ctx context.Context, draftID, clusterID string, title *string) error
	UpdateGeocodeStatus(ctx context.Context, draftID, status string) error
	Delete(ctx context.Context, draftID string) error
}

// DraftOptions configures a DraftService
type DraftOptions struct {
	// Store is optional; without it drafts live only in memory
	Store DraftStore
	// Concurrency bounds geocoding calls in flight per draft
	Concurrency int

	ClusteringDuration prometheus.Observer
	ClustersPerDraft   prometheus.Observer
	StaleResults       prometheus.Counter
	ActiveDrafts       prometheus.Gauge

	Logger *zap.Logger
}

// draftState is the in-memory owner of one draft and its geocoding run
type draftState struct {
	draft  *models.RecapDraft
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// DraftService turns photo batches into recap drafts and labels their clusters.
// Each owner has at most one active draft; a new batch replaces the previous one.
type DraftService struct {
	engine      *clustering.Engine
	geocoder    Geocoder
	store       DraftStore
	concurrency int

	clusteringDuration prometheus.Observer
	clustersPerDraft   prometheus.Observer
	staleResults       prometheus.Counter
	activeDrafts       prometheus.Gauge
	logger             *zap.Logger

	mu     sync.Mutex
	drafts map[string]*draftState
	active map[string]string // owner -> draft ID
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewDraftService creates a new draft service
func NewDraftService(engine *clustering.Engine, geocoder Geocoder, opts DraftOptions) *DraftService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultGeocodeConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &DraftService{
		engine:             engine,
		geocoder:           geocoder,
		store:              opts.Store,
		concurrency:        opts.Concurrency,
		clusteringDuration: opts.ClusteringDuration,
		clustersPerDraft:   opts.ClustersPerDraft,
		staleResults:       opts.StaleResults,
		activeDrafts:       opts.ActiveDrafts,
		logger:             opts.Logger.With(zap.String("component", "drafts")),
		drafts:             make(map[string]*draftState),
		active:             make(map[string]string),
		now:                time.Now,
		newID:              func() string { return uuid.NewString() },
	}
}

// CreateDraft clusters records into a new draft for owner and starts labelling
// its clusters in the background. Any previous draft of the same owner is discarded.
func (s *DraftService) CreateDraft(ctx context.Context, owner string, records []models.PhotoRecord) (*models.RecapDraft, error) {
	clusters, trips, err := s.cluster(records)
	if err != nil {
		return nil, err
	}

	pending := 0
	for _, c := range clusters {
		if c.Coordinate == nil {
			c.Title = models.UnknownPlaceTitle
		} else {
			pending++
		}
	}

	draft := &models.RecapDraft{
		ID:            s.newID(),
		Owner:         owner,
		CreatedAt:     s.now().UTC(),
		GeocodeStatus: models.GeocodeStatusPending,
		Clusters:      clusters,
		Trips:         trips,
	}
	if pending == 0 {
		draft.GeocodeStatus = models.GeocodeStatusComplete
	}

	if s.store != nil {
		if err := s.store.Save(ctx, draft); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
	}

	// The draft outlives the request that created it
	draftCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	state := &draftState{
		draft:  draft,
		ctx:    draftCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	replaced := s.detachLocked(s.active[owner])
	s.drafts[draft.ID] = state
	s.active[owner] = draft.ID
	snapshot := draft.Clone()
	s.updateActiveGaugeLocked()
	s.mu.Unlock()

	if replaced != nil {
		s.logger.Info("Replaced previous draft",
			zap.String("owner", owner),
			zap.String("previous", replaced.draft.ID),
			zap.String("draft", draft.ID))
		s.deleteStored(ctx, replaced.draft.ID)
	}

	if s.clustersPerDraft != nil {
		s.clustersPerDraft.Observe(float64(len(clusters)))
	}

	s.logger.Info("Draft created",
		zap.String("draft", draft.ID),
		zap.String("owner", owner),
		zap.Int("photos", len(records)),
		zap.Int("clusters", len(clusters)),
		zap.Int("trips", len(trips)))

	s.wg.Add(1)
	go s.geocode(state)

	return snapshot, nil
}

// ClusterPhotos clusters and labels records without creating a draft
func (s *DraftService) ClusterPhotos(ctx context.Context, records []models.PhotoRecord) ([]*models.PlaceCluster, []models.TripSegment, error) {
	clusters, trips, err := s.cluster(records)
	if err != nil {
		return nil, nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, c := range clusters {
		if c.Coordinate == nil {
			c.Title = models.UnknownPlaceTitle
			continue
		}
		g.Go(func() error {
			res := s.geocoder.Resolve(gctx, *c.Coordinate)
			c.Title, c.Subtitle = res.Title, res.Subtitle
			return nil
		})
	}
	g.Wait()

	return clusters, trips, nil
}

func (s *DraftService) cluster(records []models.PhotoRecord) ([]*models.PlaceCluster, []models.TripSegment, error) {
	start := time.Now()
	clusters, err := s.engine.Cluster(records)
	if s.clusteringDuration != nil {
		s.clusteringDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, nil, err
	}
	return clusters, s.engine.Trips(clusters), nil
}

// geocode labels every geolocated cluster of the draft, then marks it complete
func (s *DraftService) geocode(state *draftState) {
	defer s.wg.Done()
	defer close(state.done)

	type job struct {
		clusterID string
		coord     models.Coordinate
	}

	// Jobs are collected under the lock; the draft may be edited concurrently
	s.mu.Lock()
	draftID := state.draft.ID
	var jobs []job
	for _, c := range state.draft.Clusters {
		if c.Coordinate != nil {
			jobs = append(jobs, job{clusterID: c.ID, coord: *c.Coordinate})
		}
	}
	s.mu.Unlock()

	if len(jobs) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(state.ctx)
	g.SetLimit(s.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			res := s.geocoder.Resolve(gctx, j.coord)
			s.applyResult(draftID, j.clusterID, res)
			return nil
		})
	}
	g.Wait()

	s.mu.Lock()
	live := s.isLiveLocked(draftID)
	if live {
		state.draft.GeocodeStatus = models.GeocodeStatusComplete
	}
	s.mu.Unlock()

	if !live {
		s.logger.Debug("Geocoding abandoned for discarded draft", zap.String("draft", draftID))
		return
	}

	if s.store != nil {
		if err := s.store.UpdateGeocodeStatus(state.ctx, draftID, models.GeocodeStatusComplete); err != nil {
			s.logger.Warn("Failed to persist geocode status", zap.String("draft", draftID), zap.Error(err))
		}
	}
	s.logger.Info("Draft geocoded", zap.String("draft", draftID), zap.Int("clusters", len(jobs)))
}

// applyResult writes a label into the cluster if the draft and cluster still exist.
// Results for discarded drafts or removed clusters are dropped.
func (s *DraftService) applyResult(draftID, clusterID string, res models.GeocodeResult) bool {
	s.mu.Lock()
	var cluster *models.PlaceCluster
	if s.isLiveLocked(draftID) {
		cluster = s.drafts[draftID].draft.Cluster(clusterID)
	}
	if cluster == nil {
		s.mu.Unlock()
		if s.staleResults != nil {
			s.staleResults.Inc()
		}
		s.logger.Debug("Dropped stale geocode result",
			zap.String("draft", draftID),
			zap.String("cluster", clusterID))
		return false
	}
	cluster.Title = res.Title
	cluster.Subtitle = res.Subtitle
	ctx := s.drafts[draftID].ctx
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.UpdateClusterLabel(ctx, draftID, clusterID, res.Title, res.Subtitle); err != nil {
			s.logger.Warn("Failed to persist cluster label",
				zap.String("draft", draftID),
				zap.String("cluster", clusterID),
				zap.Error(err))
		}
	}
	return true
}

// GetDraft returns a snapshot of the draft, loading it from the store when it
// is not held in memory
func (s *DraftService) GetDraft(ctx context.Context, id string) (*models.RecapDraft, error) {
	s.mu.Lock()
	if st, ok := s.drafts[id]; ok {
		snapshot := st.draft.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil, ErrDraftNotFound
	}
	draft, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return draft, nil
}

// ActiveDraft returns the owner's current draft
func (s *DraftService) ActiveDraft(owner string) (*models.RecapDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.drafts[s.active[owner]]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return st.draft.Clone(), nil
}

// WaitGeocoded blocks until every cluster of the draft has been labelled or ctx ends
func (s *DraftService) WaitGeocoded(ctx context.Context, id string) (*models.RecapDraft, error) {
	s.mu.Lock()
	st, ok := s.drafts[id]
	s.mu.Unlock()

	if ok {
		select {
		case <-st.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.GetDraft(ctx, id)
}

// SetCustomTitle overrides the title shown for a cluster. An empty title
// clears the override.
func (s *DraftService) SetCustomTitle(ctx context.Context, draftID, clusterID, title string) (*models.PlaceCluster, error) {
	var custom *string
	if t := strings.TrimSpace(title); t != "" {
		custom = &t
	}

	s.mu.Lock()
	st, inMemory := s.drafts[draftID]
	var snapshot *models.PlaceCluster
	if inMemory {
		cluster := st.draft.Cluster(clusterID)
		if cluster == nil {
			s.mu.Unlock()
			return nil, ErrClusterNotFound
		}
		cluster.CustomTitle = custom
		snapshot = cluster.Clone()
	}
	s.mu.Unlock()

	if s.store == nil {
		if !inMemory {
			return nil, ErrDraftNotFound
		}
		return snapshot, nil
	}

	err := s.store.UpdateCustomTitle(ctx, draftID, clusterID, custom)
	if err != nil && !inMemory {
		if errors.Is(err, repository.ErrNotFound) {
			if _, getErr := s.store.GetByID(ctx, draftID); errors.Is(getErr, repository.ErrNotFound) {
				return nil, ErrDraftNotFound
			}
			return nil, ErrClusterNotFound
		}
		return nil, fmt.Errorf("failed to update custom title: %w", err)
	}
	if err != nil {
		s.logger.Warn("Failed to persist custom title",
			zap.String("draft", draftID),
			zap.String("cluster", clusterID),
			zap.Error(err))
	}

	if snapshot == nil {
		draft, err := s.store.GetByID(ctx, draftID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload draft: %w", err)
		}
		if snapshot = draft.Cluster(clusterID); snapshot == nil {
			return nil, ErrClusterNotFound
		}
	}
	return snapshot, nil
}

// DiscardDraft cancels in-flight geocoding for the draft and removes it
func (s *DraftService) DiscardDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	st := s.detachLocked(id)
	s.updateActiveGaugeLocked()
	s.mu.Unlock()

	if s.store == nil {
		if st == nil {
			return ErrDraftNotFound
		}
		return nil
	}

	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if st == nil {
			return ErrDraftNotFound
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	s.logger.Info("Draft discarded", zap.String("draft", id))
	return nil
}

// Close cancels all geocoding runs and waits for them to stop
func (s *DraftService) Close() {
	s.mu.Lock()
	for _, st := range s.drafts {
		st.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// detachLocked cancels and forgets draft id. Returns nil when it was not held.
func (s *DraftService) detachLocked(id string) *draftState {
	st, ok := s.drafts[id]
	if !ok {
		return nil
	}
	st.cancel()
	delete(s.drafts, id)
	if s.active[st.draft.Owner] == id {
		delete(s.active, st.draft.Owner)
	}
	return st
}

func (s *DraftService) isLiveLocked(id string) bool {
	st, ok := s.drafts[id]
	return ok && st.ctx.Err() == nil
}

func (s *DraftService) updateActiveGaugeLocked() {
	if s.activeDrafts != nil {
		s.activeDrafts.Set(float64(len(s.drafts)))
	}
}

func (s *DraftService) deleteStored(ctx context.Context, id string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Failed to delete replaced draft", zap.String("draft", id), zap.Error(err))
	}
}
