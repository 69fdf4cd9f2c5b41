// Package http exposes the farm control plane as a JSON API.
package http

import (
	"net/http"
	"strconv"

	"github.com/wikifarm/farmd/internal/domain/extension"
	"github.com/wikifarm/farmd/internal/domain/setting"
	"github.com/wikifarm/farmd/internal/domain/wiki"
	"github.com/wikifarm/farmd/internal/middleware"
	"github.com/wikifarm/farmd/internal/service"
)

// Handlers bundles the services the HTTP layer dispatches to.
type Handlers struct {
	Registry    *service.RegistryService
	Requests    *service.RequestService
	Overrides   *service.OverrideService
	Namespaces  *service.NamespaceService
	Permissions *service.PermissionService
	Activation  *service.ActivationService

	Settings   setting.Catalog
	Extensions extension.Catalog
}

func actor(r *http.Request) string {
	return middleware.ActorFromContext(r.Context())
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(urlParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// ListWikis returns all registered wiki identifiers.
func (h *Handlers) ListWikis(w http.ResponseWriter, r *http.Request) {
	names, err := h.Registry.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wikis": names})
}

// ExportWikis returns the registry as a map keyed by identifier, the shape
// host applications load at bootstrap.
func (h *Handlers) ExportWikis(w http.ResponseWriter, r *http.Request) {
	wikis, err := h.Registry.Export(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wikis)
}

// GetWiki returns one wiki record.
func (h *Handlers) GetWiki(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Registry.Get(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateWiki registers a wiki directly, bypassing the request queue. The
// identifier must already be valid; direct creation does not sanitize.
func (h *Handlers) CreateWiki(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[wiki.CreateRequest](w, r)
	if !ok {
		return
	}
	rec, err := h.Registry.Create(r.Context(), actor(r), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateWikiFlags changes the wiki's lifecycle flags.
func (h *Handlers) UpdateWikiFlags(w http.ResponseWriter, r *http.Request) {
	update, ok := readJSON[wiki.FlagsUpdate](w, r)
	if !ok {
		return
	}
	rec, err := h.Registry.UpdateFlags(r.Context(), actor(r), urlParam(r, "dbname"), update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteWiki removes a wiki from the registry. ?drop_storage=true also asks
// the provisioner to drop the backing database, best effort.
func (h *Handlers) DeleteWiki(w http.ResponseWriter, r *http.Request) {
	dropStorage := r.URL.Query().Get("drop_storage") == "true"
	if err := h.Registry.Delete(r.Context(), actor(r), urlParam(r, "dbname"), dropStorage); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate returns the full configuration snapshot for one wiki.
func (h *Handlers) Activate(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Activation.Activate(r.Context(), urlParam(r, "dbname"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dbname":               cfg.DBName(),
		"settings":             cfg.Settings(),
		"extra_namespaces":     cfg.ExtraNamespaces(),
		"subpage_namespaces":   cfg.SubpageNamespaces(),
		"content_namespaces":   cfg.ContentNamespaces(),
		"namespace_protection": cfg.NamespaceProtection(),
		"namespace_aliases":    cfg.NamespaceAliases(),
		"group_permissions":    cfg.GroupPermissions(),
		"group_add_groups":     cfg.GroupAddGroups(),
		"group_remove_groups":  cfg.GroupRemoveGroups(),
	})
}
