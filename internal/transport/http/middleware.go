package http

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const apiKeyHeader = "X-API-Key"

type sourceKey struct{}

// SourceFromContext returns the source tag of the authenticated API
// key, or "" outside an authenticated request.
func SourceFromContext(ctx context.Context) string {
	source, _ := ctx.Value(sourceKey{}).(string)
	return source
}

// APIKeyAuth validates X-API-Key against the configured keys and stamps
// the key's source tag into the request context.
func APIKeyAuth(keys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				writeError(w, http.StatusUnauthorized, codeMissingAPIKey, "missing API key")
				return
			}
			source, ok := keys[key]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeInvalidAPIKey, "invalid API key")
				return
			}
			ctx := context.WithValue(r.Context(), sourceKey{}, source)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit enforces a token bucket per API key, refilled at perMinute
// requests a minute with a burst of the same size.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		limiters[key] = l
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key != "" && !limiterFor(key).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs basic request details and latency.
func RequestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Printf(
				"request method=%s path=%s status=%d duration=%s",
				r.Method,
				r.URL.Path,
				rec.status,
				time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
