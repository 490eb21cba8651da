package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"imageAttach/internal/logger"
	"imageAttach/internal/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const mediaCacheControl = "public, max-age=31536000, immutable"

// ServeMedia streams a blob under its stable /media/{key} URL. Keys are
// unguessable, so the route is public.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" || key != path.Base(key) {
		WriteError(w, "Not found", http.StatusNotFound)
		return
	}

	body, info, err := h.Storage.Open(r.Context(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Log.Warn("media open failed", zap.String("key", key), zap.Error(err))
		}
		WriteError(w, "Not found", http.StatusNotFound)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = info.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", mediaCacheControl)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		logger.Log.Warn("media stream interrupted", zap.String("key", key), zap.Error(err))
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.DB.HealthCheck(ctx); err != nil {
			logger.Log.Warn("health check failed", zap.Error(err))
			WriteError(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	writeSuccess(w, HealthResponse{Status: "ok"}, http.StatusOK)
}
