// Package idempotency stores responses of mutating requests so a retried
// request carrying the same client key is answered without running again.
package idempotency

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderKey         = "Idempotency-Key"
	HeaderKeyFallback = "X-Idempotency-Key"
	HeaderReplayed    = "Idempotent-Replayed"

	DefaultNamespace = "idem"
	DefaultTTL       = 24 * time.Hour
)

// Record is a stored response.
type Record struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

// Store is a TTL key-value store. Get returns (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, rec *Record, ttl time.Duration) error
}

// Key scopes a client key to the caller, method and path:
// idem:{user|anon}:{method}:{path}:{clientKey}.
func Key(namespace, userID, method, path, clientKey string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if userID == "" {
		userID = "anon"
	}
	return strings.Join([]string{namespace, userID, method, path, clientKey}, ":")
}

// ClientKey reads the key from the request. An empty result disables
// idempotency for the request.
func ClientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderKey)); key != "" {
		return key
	}
	return strings.TrimSpace(r.Header.Get(HeaderKeyFallback))
}
