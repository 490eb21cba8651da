package middleware

import (
	"bytes"
	"net/http"
	"time"

	handlers "imageAttach/internal/handler"
	"imageAttach/internal/idempotency"
	"imageAttach/internal/logger"

	"go.uber.org/zap"
)

// captureWriter passes the response through and keeps a copy of it.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a request that carried the
// same client key. Only 2xx responses are stored. Store failures are
// logged and never change the response.
func Idempotency(store idempotency.Store, namespace string, ttl time.Duration) Middleware {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := idempotency.ClientKey(r)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := idempotency.Key(namespace, handlers.UserID(r.Context()), r.Method, r.URL.Path, clientKey)

			rec, err := store.Get(r.Context(), key)
			if err != nil {
				logger.Log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
			}
			if rec != nil {
				if rec.ContentType != "" {
					w.Header().Set("Content-Type", rec.ContentType)
				}
				w.Header().Set(idempotency.HeaderReplayed, "true")
				w.WriteHeader(rec.Status)
				w.Write(rec.Body)
				return
			}

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			if cw.status == 0 {
				cw.status = http.StatusOK
			}
			if cw.status < 200 || cw.status >= 300 {
				return
			}

			stored := &idempotency.Record{
				Status:      cw.status,
				Body:        cw.body.Bytes(),
				ContentType: w.Header().Get("Content-Type"),
			}
			if err := store.Set(r.Context(), key, stored, ttl); err != nil {
				logger.Log.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
