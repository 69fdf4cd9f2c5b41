package service

import (
	"context"

	"github.com/wikifarm/farmd/internal/domain/siteconfig"
	"github.com/wikifarm/farmd/internal/port/database"
)

// ActivationService assembles the full configuration snapshot a host
// application consumes when it boots for a particular wiki.
type ActivationService struct {
	store     database.Store
	overrides *OverrideService
}

// NewActivationService creates a new ActivationService.
func NewActivationService(store database.Store, overrides *OverrideService) *ActivationService {
	return &ActivationService{store: store, overrides: overrides}
}

// Activate resolves effective settings, namespace overrides and permission
// group overrides for the wiki and freezes them into one snapshot. Each call
// builds a fresh snapshot; activating a different wiki never touches a
// previously built one.
func (s *ActivationService) Activate(ctx context.Context, dbname string) (*siteconfig.SiteConfig, error) {
	settings, err := s.overrides.EffectiveSettings(ctx, dbname)
	if err != nil {
		return nil, err
	}

	namespaces, err := s.store.ListNamespaces(ctx, dbname)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroups(ctx, dbname)
	if err != nil {
		return nil, err
	}

	b := siteconfig.NewBuilder(dbname).WithSettings(settings)
	for _, ns := range namespaces {
		b.AddNamespace(ns)
	}
	for _, g := range groups {
		b.AddGroup(g)
	}
	return b.Build(), nil
}
