package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Caller
// identity middleware is applied by the caller; everything under /api/v1
// assumes an established actor.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Catalogs
		r.Get("/catalog/settings", h.SettingCatalog)
		r.Get("/catalog/extensions", h.ExtensionCatalog)

		// Registry
		r.Get("/wikis", h.ListWikis)
		r.Post("/wikis", h.CreateWiki)
		r.Get("/wikis/export", h.ExportWikis)
		r.Get("/wikis/{dbname}", h.GetWiki)
		r.Patch("/wikis/{dbname}/flags", h.UpdateWikiFlags)
		r.Delete("/wikis/{dbname}", h.DeleteWiki)
		r.Get("/wikis/{dbname}/siteconfig", h.Activate)

		// Settings overlay
		r.Get("/wikis/{dbname}/settings", h.GetSettings)
		r.Patch("/wikis/{dbname}/settings", h.UpdateSettings)
		r.Delete("/wikis/{dbname}/settings/{key}", h.ResetSetting)

		// Extensions
		r.Get("/wikis/{dbname}/extensions", h.ListEnabledExtensions)
		r.Put("/wikis/{dbname}/extensions/{name}", h.EnableExtension)
		r.Delete("/wikis/{dbname}/extensions/{name}", h.DisableExtension)

		// Namespaces
		r.Get("/wikis/{dbname}/namespaces", h.ListNamespaces)
		r.Post("/wikis/{dbname}/namespaces", h.AddNamespace)
		r.Get("/wikis/{dbname}/namespaces/next-id", h.NextNamespaceID)
		r.Get("/wikis/{dbname}/namespaces/{id}", h.GetNamespace)
		r.Patch("/wikis/{dbname}/namespaces/{id}", h.UpdateNamespace)
		r.Delete("/wikis/{dbname}/namespaces/{id}", h.DeleteNamespace)

		// Permission groups
		r.Get("/wikis/{dbname}/permissions", h.ListGroups)
		r.Get("/wikis/{dbname}/permissions/{group}", h.GetGroup)
		r.Put("/wikis/{dbname}/permissions/{group}", h.UpdateGroup)
		r.Delete("/wikis/{dbname}/permissions/{group}", h.DeleteGroup)

		// Creation requests
		r.Post("/requests", h.SubmitRequest)
		r.Get("/requests", h.ListRequests)
		r.Get("/requests/{id}", h.GetRequest)
		r.Post("/requests/{id}/approve", h.ApproveRequest)
		r.Post("/requests/{id}/decline", h.DeclineRequest)
		r.Post("/requests/{id}/comments", h.AddComment)
		r.Get("/requests/{id}/comments", h.ListComments)
	})
}
