package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteMiddleware holds the per-route wrappers. Nil fields are skipped.
type RouteMiddleware struct {
	Upload     func(http.Handler) http.Handler
	Idempotent func(http.Handler) http.Handler
}

func wrap(h http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
	var handler http.Handler = h
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			handler = middlewares[i](handler)
		}
	}
	return handler
}

// jsonFallbacks answers unmatched paths and methods with the usual error body.
func jsonFallbacks(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

// Routes registers every endpoint on r.
func (h *Handlers) Routes(r *mux.Router, mw RouteMiddleware) {
	jsonFallbacks(r)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/media/{key}", h.ServeMedia).Methods(http.MethodGet, http.MethodHead)

	org := r.PathPrefix("/orgs/{org}").Subrouter()
	jsonFallbacks(org)

	org.HandleFunc("/images/", h.ListImages).Methods(http.MethodGet)
	org.Handle("/images/", wrap(h.UploadImage, mw.Upload)).Methods(http.MethodPost)
	org.HandleFunc("/images/{id:[0-9]+}/", h.GetImage).Methods(http.MethodGet)
	org.HandleFunc("/images/{id:[0-9]+}/", h.UpdateImage).Methods(http.MethodPatch)
	org.HandleFunc("/images/{id:[0-9]+}/", h.DeleteImage).Methods(http.MethodDelete)
	org.Handle("/bulk-upload/", wrap(h.BulkUpload, mw.Upload, mw.Idempotent)).Methods(http.MethodPost)
	org.Handle("/bulk-delete/", wrap(h.BulkDelete, mw.Idempotent)).Methods(http.MethodPost)
	org.HandleFunc("/attach/", h.AttachByBody).Methods(http.MethodPost)
	org.HandleFunc("/detach/", h.DetachByBody).Methods(http.MethodPost)

	target := org.PathPrefix("/images/{type}/{model}/{id:[0-9]+}").Subrouter()
	jsonFallbacks(target)

	target.HandleFunc("/", h.ListForTarget).Methods(http.MethodGet)
	target.HandleFunc("/", h.Attach).Methods(http.MethodPost)
	target.Handle("/bulk_attach/", wrap(h.BulkAttach, mw.Idempotent)).Methods(http.MethodPost)
	target.Handle("/bulk_detach/", wrap(h.BulkDetach, mw.Idempotent)).Methods(http.MethodPost)
	target.HandleFunc("/{image_id:[0-9]+}/", h.Detach).Methods(http.MethodDelete)
	target.HandleFunc("/reorder{slash:/?}", h.Reorder).Methods(http.MethodPost)
	target.HandleFunc("/set_cover{slash:/?}", h.SetCover).Methods(http.MethodPost)
	target.HandleFunc("/unset_cover{slash:/?}", h.UnsetCover).Methods(http.MethodPost)
}
