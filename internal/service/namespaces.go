package service

import (
	"context"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/namespace"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/database"
)

// NamespaceService manages per-wiki custom namespace overrides.
type NamespaceService struct {
	store    database.Store
	registry *RegistryService
	audit    auditsink.Sink
	locks    *keyedLocks
}

// NewNamespaceService creates a new NamespaceService.
func NewNamespaceService(store database.Store, registry *RegistryService, audit auditsink.Sink) *NamespaceService {
	return &NamespaceService{
		store:    store,
		registry: registry,
		audit:    audit,
		locks:    newKeyedLocks(),
	}
}

// List returns all namespace overrides for a wiki.
func (s *NamespaceService) List(ctx context.Context, dbname string) ([]namespace.Namespace, error) {
	if _, err := s.registry.Get(ctx, dbname); err != nil {
		return nil, err
	}
	return s.store.ListNamespaces(ctx, dbname)
}

// Get returns one namespace override.
func (s *NamespaceService) Get(ctx context.Context, dbname string, id int) (*namespace.Namespace, error) {
	return s.store.GetNamespace(ctx, dbname, id)
}

// NextID returns the next free even namespace id for a wiki.
func (s *NamespaceService) NextID(ctx context.Context, dbname string) (int, error) {
	if _, err := s.registry.Get(ctx, dbname); err != nil {
		return 0, err
	}
	maxID, err := s.store.MaxNamespaceID(ctx, dbname)
	if err != nil {
		return 0, err
	}
	return namespace.NextID(maxID), nil
}

// Add creates a namespace override. Searchable and Subpages default to true
// when the caller omits them.
func (s *NamespaceService) Add(ctx context.Context, actor, dbname string, req namespace.CreateRequest) (*namespace.Namespace, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("add namespace: empty name: %w", domain.ErrValidation)
	}
	if err := namespace.ValidateID(req.ID); err != nil {
		return nil, fmt.Errorf("add namespace: %w", err)
	}
	if _, err := s.registry.Get(ctx, dbname); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(dbname)
	defer unlock()

	ns := &namespace.Namespace{
		DBName:     dbname,
		ID:         req.ID,
		Name:       req.Name,
		Searchable: boolOr(req.Searchable, true),
		Subpages:   boolOr(req.Subpages, true),
		Content:    req.Content,
		Protection: req.Protection,
		Aliases:    req.Aliases,
	}
	if err := s.store.CreateNamespace(ctx, ns); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionNamespaceAdded,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"id": ns.ID, "name": ns.Name},
	})
	return ns, nil
}

// Update applies optional field changes to an existing namespace override.
func (s *NamespaceService) Update(ctx context.Context, actor, dbname string, id int, req namespace.UpdateRequest) (*namespace.Namespace, error) {
	unlock := s.locks.Lock(dbname)
	defer unlock()

	ns, err := s.store.GetNamespace(ctx, dbname, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("update namespace %d: empty name: %w", id, domain.ErrValidation)
		}
		ns.Name = *req.Name
	}
	if req.Searchable != nil {
		ns.Searchable = *req.Searchable
	}
	if req.Subpages != nil {
		ns.Subpages = *req.Subpages
	}
	if req.Content != nil {
		ns.Content = *req.Content
	}
	if req.Protection != nil {
		ns.Protection = *req.Protection
	}
	if req.Aliases != nil {
		ns.Aliases = *req.Aliases
	}

	if err := s.store.UpdateNamespace(ctx, ns); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionNamespaceUpdated,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"id": id},
	})
	return ns, nil
}

// Delete removes a namespace override. Built-in namespaces below the custom
// range are never stored here, so ids below it are rejected outright.
func (s *NamespaceService) Delete(ctx context.Context, actor, dbname string, id int) error {
	if id < namespace.MinCustomID {
		return fmt.Errorf("delete namespace %d: below custom range: %w", id, domain.ErrValidation)
	}

	unlock := s.locks.Lock(dbname)
	defer unlock()

	if err := s.store.DeleteNamespace(ctx, dbname, id); err != nil {
		return err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionNamespaceDeleted,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"id": id},
	})
	return nil
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
