package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wikifarm/farmd/internal/domain"
	"github.com/wikifarm/farmd/internal/domain/extension"
	"github.com/wikifarm/farmd/internal/domain/setting"
	"github.com/wikifarm/farmd/internal/port/auditsink"
	"github.com/wikifarm/farmd/internal/port/database"
)

// OverrideService resolves effective per-wiki configuration and applies
// validated changes to a wiki's settings overlay, including the extension
// toggles.
//
// The service is stateless; every resolution reads fresh registry state.
type OverrideService struct {
	store    database.Store
	registry *RegistryService
	audit    auditsink.Sink
	settings setting.Catalog
	exts     extension.Catalog
	defaults map[string]json.RawMessage
	locks    *keyedLocks
}

// NewOverrideService creates a new OverrideService. defaults is the global
// settings layer every wiki starts from; the tenant overlay wins on key
// conflicts.
func NewOverrideService(store database.Store, registry *RegistryService, audit auditsink.Sink, settings setting.Catalog, exts extension.Catalog, defaults map[string]json.RawMessage) *OverrideService {
	return &OverrideService{
		store:    store,
		registry: registry,
		audit:    audit,
		settings: settings,
		exts:     exts,
		defaults: defaults,
		locks:    newKeyedLocks(),
	}
}

// EffectiveSettings merges the wiki's overlay onto the global defaults.
// Overlay keys absent from the current allow-list are skipped, not purged;
// a key removed from the catalog simply stops being visible.
func (s *OverrideService) EffectiveSettings(ctx context.Context, dbname string) (map[string]json.RawMessage, error) {
	w, err := s.registry.Get(ctx, dbname)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(s.defaults)+len(w.Settings))
	for key, value := range s.defaults {
		merged[key] = value
	}
	for key, value := range w.Settings {
		if !s.allowListed(key) {
			continue
		}
		merged[key] = value
	}
	return merged, nil
}

// allowListed reports whether key may surface in effective settings. The
// settings catalog and the extension toggle keys together form the
// allow-list.
func (s *OverrideService) allowListed(key string) bool {
	if _, ok := s.settings.Lookup(key); ok {
		return true
	}
	for _, e := range s.exts {
		if e.VarKey == key {
			return true
		}
	}
	return false
}

// UpdateSettings validates and merges a partial overlay into the wiki's
// stored settings. Keys not in the catalog are silently dropped; known keys
// with invalid values fail the whole update. A nil value removes the key.
func (s *OverrideService) UpdateSettings(ctx context.Context, actor, dbname string, partial map[string]json.RawMessage) error {
	unlock := s.locks.Lock(dbname)
	defer unlock()

	validated := make(map[string]json.RawMessage, len(partial))
	for key, raw := range partial {
		def, ok := s.settings.Lookup(key)
		if !ok {
			continue
		}
		if raw == nil {
			validated[key] = nil
			continue
		}
		norm, err := def.Validate(raw)
		if err != nil {
			return fmt.Errorf("update settings for %s: %w", dbname, err)
		}
		validated[key] = norm
	}
	if len(validated) == 0 {
		return nil
	}

	if err := s.store.UpdateWikiSettings(ctx, dbname, validated); err != nil {
		return err
	}
	s.registry.Invalidate(ctx, dbname)

	keys := make([]string, 0, len(validated))
	for key := range validated {
		keys = append(keys, key)
	}
	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionSettingChanged,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"keys": keys},
	})
	return nil
}

// ResetSetting removes a single key from the wiki's overlay, restoring the
// global default for it.
func (s *OverrideService) ResetSetting(ctx context.Context, actor, dbname, key string) error {
	if _, ok := s.settings.Lookup(key); !ok {
		return fmt.Errorf("reset setting %s for %s: not in catalog: %w", key, dbname, domain.ErrValidation)
	}

	unlock := s.locks.Lock(dbname)
	defer unlock()

	if err := s.store.UpdateWikiSettings(ctx, dbname, map[string]json.RawMessage{key: nil}); err != nil {
		return err
	}
	s.registry.Invalidate(ctx, dbname)

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionSettingChanged,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"keys": []string{key}, "reset": true},
	})
	return nil
}

// IsExtensionEnabled reports whether the named extension's toggle key is
// present and truthy in the wiki's effective settings.
func (s *OverrideService) IsExtensionEnabled(ctx context.Context, dbname, name string) (bool, error) {
	e, ok := s.exts.Lookup(name)
	if !ok {
		return false, fmt.Errorf("extension %q: %w", name, domain.ErrUnknownExtension)
	}

	effective, err := s.EffectiveSettings(ctx, dbname)
	if err != nil {
		return false, err
	}
	return toggleEnabled(effective, e.VarKey), nil
}

// EnabledExtensions returns the names of all catalog extensions whose
// toggles are truthy for the wiki.
func (s *OverrideService) EnabledExtensions(ctx context.Context, dbname string) ([]string, error) {
	effective, err := s.EffectiveSettings(ctx, dbname)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range s.exts.Names() {
		e, _ := s.exts.Lookup(name)
		if toggleEnabled(effective, e.VarKey) {
			names = append(names, name)
		}
	}
	return names, nil
}

// EnableExtension turns an extension on after checking its dependency
// edges. The check and the write are serialized per wiki so two concurrent
// enables cannot race past a requirement or conflict check.
func (s *OverrideService) EnableExtension(ctx context.Context, actor, dbname, name string) error {
	e, ok := s.exts.Lookup(name)
	if !ok {
		return fmt.Errorf("enable extension %q: %w", name, domain.ErrUnknownExtension)
	}

	unlock := s.locks.Lock(dbname)
	defer unlock()

	effective, err := s.EffectiveSettings(ctx, dbname)
	if err != nil {
		return err
	}

	for _, req := range e.Requires {
		dep, ok := s.exts.Lookup(req)
		if !ok || !toggleEnabled(effective, dep.VarKey) {
			return fmt.Errorf("enable extension %s: requires %s: %w", name, req, domain.ErrUnmetRequirement)
		}
	}
	for _, conflict := range e.Conflicts {
		other, ok := s.exts.Lookup(conflict)
		if ok && toggleEnabled(effective, other.VarKey) {
			return fmt.Errorf("enable extension %s: conflicts with enabled %s: %w", name, conflict, domain.ErrConflict)
		}
	}

	if err := s.setToggle(ctx, dbname, e.VarKey, true); err != nil {
		return err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionExtensionEnabled,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"extension": name},
	})
	return nil
}

// DisableExtension turns an extension off. Extensions that depend on it are
// not cascaded; their own requirement checks only run at enable time.
func (s *OverrideService) DisableExtension(ctx context.Context, actor, dbname, name string) error {
	e, ok := s.exts.Lookup(name)
	if !ok {
		return fmt.Errorf("disable extension %q: %w", name, domain.ErrUnknownExtension)
	}

	unlock := s.locks.Lock(dbname)
	defer unlock()

	if err := s.setToggle(ctx, dbname, e.VarKey, false); err != nil {
		return err
	}

	s.audit.Emit(ctx, auditsink.Event{
		Action: auditsink.ActionExtensionDisabled,
		Actor:  actor,
		Target: dbname,
		Params: map[string]any{"extension": name},
	})
	return nil
}

func (s *OverrideService) setToggle(ctx context.Context, dbname, varKey string, on bool) error {
	raw, err := json.Marshal(on)
	if err != nil {
		return err
	}
	if err := s.store.UpdateWikiSettings(ctx, dbname, map[string]json.RawMessage{varKey: raw}); err != nil {
		return err
	}
	s.registry.Invalidate(ctx, dbname)
	return nil
}

// toggleEnabled applies checkbox truthiness to a stored toggle value.
func toggleEnabled(settings map[string]json.RawMessage, varKey string) bool {
	raw, ok := settings[varKey]
	if !ok || raw == nil {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != "" && val != "0"
	}
	return false
}
