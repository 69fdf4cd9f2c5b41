package service

import (
	"context"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/permission"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/database"
)

// PermissionService manages per-wiki user group permission overrides.
type PermissionService struct {
	store    database.Store
	registry *RegistryService
	audit    auditsink.Sink
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(store database.Store, registry *RegistryService, audit auditsink.Sink) *PermissionService {
	return &PermissionService{store: store, registry: registry, audit: audit}
}

// List returns all group overrides for a wiki.
func (s *PermissionService) List(ctx context.Context, dbname string) ([]permission.Group, error) {
	if _, err := s.registry.Get(ctx, dbname); err != nil {
		return nil, err
	}
	return s.store.ListGroups(ctx, dbname)
}

// Get returns one group override.
func (s *PermissionService) Get(ctx context.Context, dbname, group string) (*permission.Group, error) {
	return s.store.GetGroup(ctx, dbname, group)
}

// Update upserts a group's full override state.
func (s *PermissionService) Update(ctx context.Context, actor, dbname, group string, req permission.UpdateRequest) (*permission.Group, error) {
	if group == "" {
		return nil, fmt.Errorf("update group: empty name: %w", domain.ErrValidation)
	}
	if _, err := s.registry.Get(ctx, dbname); err != nil {
		return nil, err
	}

	g := &permission.Group{
		DBName:       dbname,
		Name:         group,
		Permissions:  req.Permissions,
		AddGroups:    req.AddGroups,
		RemoveGroups: req.RemoveGroups,
	}
	if g.Permissions == nil {
		g.Permissions = map[string]bool{}
	}
	if err := s.store.UpsertGroup(ctx, g); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionGroupUpdated,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"group": group},
	})
	return g, nil
}

// Delete removes a group override. The built-in groups can be modified but
// never deleted, regardless of caller.
func (s *PermissionService) Delete(ctx context.Context, actor, dbname, group string) error {
	if permission.IsDefaultGroup(group) {
		return fmt.Errorf("delete group %q: %w", group, domain.ErrProtectedGroup)
	}

	if err := s.store.DeleteGroup(ctx, dbname, group); err != nil {
		return err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionGroupDeleted,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"group": group},
	})
	return nil
}
