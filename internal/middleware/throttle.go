package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	handlers "imageAttach/internal/handler"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const visitorTTL = 10 * time.Minute

// Throttle keeps one token bucket per user, or per client IP for anonymous
// requests. Idle buckets expire after visitorTTL.
type Throttle struct {
	limit    rate.Limit
	burst    int
	visitors *cache.Cache
}

func NewThrottle(perSecond float64, burst int) *Throttle {
	return &Throttle{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: cache.New(visitorTTL, visitorTTL),
	}
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	if v, ok := t.visitors.Get(key); ok {
		t.visitors.SetDefault(key, v)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(t.limit, t.burst)
	if err := t.visitors.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Lost a race with another request for the same key.
		if v, ok := t.visitors.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		limiter := t.limiter(visitorKey(r))
		reservation := limiter.Reserve()
		if !reservation.OK() {
			tooManyRequests(w, time.Second)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			tooManyRequests(w, delay)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	handlers.WriteError(w, "Request was throttled. Expected available in "+strconv.Itoa(seconds)+" seconds.", http.StatusTooManyRequests)
}

func visitorKey(r *http.Request) string {
	if userID := handlers.UserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
