// Package service implements the farm's use cases over the store,
// provisioner and audit ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wikifarm/farmd/internal/adapter/otel"
	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/wiki"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/cache"
	"github.com/wikifarm/farmd/internal/port/database"
	"github.com/wikifarm/farmd/internal/port/provisioner"
)

// RegistryService manages wiki registry records.
type RegistryService struct {
	store      database.Store
	prov       provisioner.Gateway
	audit      auditsink.Sink
	cache      cache.Cache
	metrics    *otel.Metrics
	cacheTTL   time.Duration
	baseDomain string
	categories []string

	// initialSettings is the overlay seeded into every new wiki (the
	// default-enabled extension toggles).
	initialSettings map[string]json.RawMessage
}

// RegistryConfig carries the farm policy the registry enforces.
type RegistryConfig struct {
	BaseDomain      string
	Categories      []string
	CacheTTL        time.Duration
	InitialSettings map[string]json.RawMessage
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(store database.Store, prov provisioner.Gateway, audit auditsink.Sink, c cache.Cache, metrics *otel.Metrics, cfg RegistryConfig) *RegistryService {
	return &RegistryService{
		store:           store,
		prov:            prov,
		audit:           audit,
		cache:           c,
		metrics:         metrics,
		cacheTTL:        cfg.CacheTTL,
		baseDomain:      cfg.BaseDomain,
		categories:      cfg.Categories,
		initialSettings: cfg.InitialSettings,
	}
}

func wikiCacheKey(dbname string) string { return "wiki:" + dbname }

// Create validates, provisions storage for and registers a wiki. Direct
// creation and request approval both pass through here, so a wiki record
// never exists without a backing database. The identifier must already
// satisfy the dbname grammar; direct creation does not sanitize on the
// caller's behalf.
func (s *RegistryService) Create(ctx context.Context, actor string, req wiki.CreateRequest) (*wiki.Wiki, error) {
	if !wiki.ValidDBName(req.DBName) {
		return nil, fmt.Errorf("create wiki %q: %w", req.DBName, domain.ErrInvalidIdentifier)
	}
	if req.Sitename == "" || req.Language == "" {
		return nil, fmt.Errorf("create wiki %s: sitename and language are required: %w", req.DBName, domain.ErrValidation)
	}
	if req.Category == "" {
		req.Category = wiki.DefaultCategory
	}
	if !slices.Contains(s.categories, req.Category) {
		return nil, fmt.Errorf("create wiki %s: unknown category %q: %w", req.DBName, req.Category, domain.ErrValidation)
	}
	if req.URL == "" {
		req.URL = wiki.GenerateURL(req.DBName, s.baseDomain)
	}
	if req.Settings == nil {
		req.Settings = make(map[string]json.RawMessage, len(s.initialSettings))
	}
	for key, value := range s.initialSettings {
		if _, ok := req.Settings[key]; !ok {
			req.Settings[key] = value
		}
	}

	if err := s.provisionStorage(ctx, req.DBName); err != nil {
		return nil, fmt.Errorf("create wiki %s: %w", req.DBName, err)
	}

	w, err := s.store.CreateWiki(ctx, req)
	if err != nil {
		return nil, err
	}

	s.metrics.WikisCreated.Add(ctx, 1)
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionWikiCreated,
		Actor:  actor,
		Target: w.DBName,
		Params: map[string]any{"sitename": w.Sitename, "language": w.Language, "category": w.Category},
	})
	return w, nil
}

// provisionStorage creates and populates the wiki's backing database. A
// database left behind by an earlier partial run is reused, so a retried
// creation resumes instead of failing.
func (s *RegistryService) provisionStorage(ctx context.Context, dbname string) error {
	if err := s.prov.CreateStorage(ctx, dbname); err != nil {
		if !isAlreadyExists(err) {
			return err
		}
		slog.Info("tenant storage already present, resuming provisioning", "dbname", dbname)
	}
	return s.prov.PopulateStorage(ctx, dbname)
}

// Get returns a wiki record, serving repeated reads from the in-process
// cache.
func (s *RegistryService) Get(ctx context.Context, dbname string) (*wiki.Wiki, error) {
	if data, ok, _ := s.cache.Get(ctx, wikiCacheKey(dbname)); ok {
		var w wiki.Wiki
		if err := json.Unmarshal(data, &w); err == nil {
			return &w, nil
		}
		// Corrupt cache entry; fall through to the store.
		_ = s.cache.Delete(ctx, wikiCacheKey(dbname))
	}

	w, err := s.store.GetWiki(ctx, dbname)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(w); err == nil {
		_ = s.cache.Set(ctx, wikiCacheKey(dbname), data, s.cacheTTL)
	}
	return w, nil
}

// Exists reports whether a wiki with the given identifier is registered.
func (s *RegistryService) Exists(ctx context.Context, dbname string) (bool, error) {
	_, err := s.Get(ctx, dbname)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// List returns all wiki identifiers in stable order.
func (s *RegistryService) List(ctx context.Context) ([]string, error) {
	return s.store.ListWikiNames(ctx)
}

// Export returns the full registry keyed by identifier, the snapshot shape
// host applications bootstrap from.
func (s *RegistryService) Export(ctx context.Context) (map[string]wiki.Wiki, error) {
	wikis, err := s.store.ListWikis(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]wiki.Wiki, len(wikis))
	for _, w := range wikis {
		out[w.DBName] = w
	}
	return out, nil
}

// UpdateFlags applies lifecycle flag changes (private/closed/inactive).
func (s *RegistryService) UpdateFlags(ctx context.Context, actor, dbname string, update wiki.FlagsUpdate) (*wiki.Wiki, error) {
	if err := s.store.UpdateWikiFlags(ctx, dbname, update); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, dbname)

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionWikiFlagsChanged,
		Actor:  actor,
		Target: dbname,
		Params: flagParams(update),
	})
	return s.Get(ctx, dbname)
}

// Delete removes the wiki from the registry. When dropStorage is set the
// provisioner is asked to drop the backing database as well; a drop failure
// is logged and audited but never fails the registry removal.
func (s *RegistryService) Delete(ctx context.Context, actor, dbname string, dropStorage bool) error {
	if err := s.store.DeleteWiki(ctx, dbname); err != nil {
		return err
	}
	s.Invalidate(ctx, dbname)

	if dropStorage {
		if err := s.prov.DropStorage(ctx, dbname); err != nil {
			slog.Warn("storage drop failed after registry removal", "dbname", dbname, "error", err)
			s.audit.Emit(ctx, auditsink.Event{
				Action: auditsink.ActionStorageDropFailed,
				Actor:  actor,
				Target: dbname,
				Params: map[string]any{"error": err.Error()},
			})
		}
	}

	s.metrics.WikisDeleted.Add(ctx, 1)
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionWikiDeleted,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"drop_storage": dropStorage},
	})
	return nil
}

// Invalidate evicts the wiki's cached record. Called by every service that
// writes through the store.
func (s *RegistryService) Invalidate(ctx context.Context, dbname string) {
	_ = s.cache.Delete(ctx, wikiCacheKey(dbname))
}

func flagParams(update wiki.FlagsUpdate) map[string]any {
	params := make(map[string]any, 3)
	if update.Private != nil {
		params["private"] = *update.Private
	}
	if update.Closed != nil {
		params["closed"] = *update.Closed
	}
	if update.Inactive != nil {
		params["inactive"] = *update.Inactive
	}
	return params
}
