package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.enableLogging = enabled
	}
}

// WithRateLimiter overrides the request rate limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiter
	}
}

// WithRateLimit replaces the limiter with a token bucket. Zero or negative
// values disable rate limiting.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		cfg.rateLimiter = limiterFor(rps, burst)
	}
}

// WithTrailingSlashRedirect selects between redirecting "/path/" to "/path"
// with 301 and serving it in place.
func WithTrailingSlashRedirect(redirect bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.redirectTrailingSlash = redirect
	}
}

type routerConfig struct {
	enableLogging         bool
	logger                *zap.Logger
	rateLimiter           rateLimiter
	rateLimitExempt       []string
	accessLog             accessLog
	redirectTrailingSlash bool
}

// NewRouter creates an HTTP router with standard middleware. Defaults come
// from the handler's configuration.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		enableLogging:         true,
		logger:                logger,
		rateLimiter:           limiterFor(handler.cfg.RateLimit.RPS, handler.cfg.RateLimit.Burst),
		rateLimitExempt:       handler.cfg.RateLimit.ExcludePatterns,
		accessLog:             newAccessLog(handler.cfg.Logging.HTTP),
		redirectTrailingSlash: handler.cfg.Server.TrailingSlashRedirect,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	prefix := strings.TrimRight(handler.cfg.API.Prefix, "/")

	mux := http.NewServeMux()
	mux.Handle("GET /health", http.HandlerFunc(handler.handleHealth))
	mux.Handle("GET /health/liveness", http.HandlerFunc(handler.handleLiveness))
	mux.Handle("GET /health/readiness", http.HandlerFunc(handler.handleReadiness))
	mux.Handle("GET /health/status", http.HandlerFunc(handler.handleStatus))
	mux.Handle("GET "+prefix+"/config", http.HandlerFunc(handler.handleConfig))

	var root http.Handler = mux
	root = corsMiddleware(root)
	root = recoveryMiddleware(cfg.logger, root)
	if cfg.enableLogging {
		root = loggingMiddleware(cfg.logger, cfg.accessLog, root)
	}
	root = rateLimitMiddleware(cfg.rateLimiter, cfg.rateLimitExempt, root)
	root = trailingSlashMiddleware(cfg.redirectTrailingSlash, root)
	root = requestIDMiddleware(root)

	return root
}

func limiterFor(rps float64, burst int) rateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return newTokenBucketLimiter(rps, burst)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Requested-With,"+requestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFromContext(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// trailingSlashMiddleware strips trailing slashes from every path except "/".
func trailingSlashMiddleware(redirect bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || !strings.HasSuffix(path, "/") {
			next.ServeHTTP(w, r)
			return
		}

		normalized := strings.TrimRight(path, "/")
		if normalized == "" {
			normalized = "/"
		}

		if redirect {
			target := *r.URL
			target.Path = normalized
			target.RawPath = ""
			http.Redirect(w, r, target.String(), http.StatusMovedPermanently)
			return
		}

		r2 := r.Clone(r.Context())
		r2.URL.Path = normalized
		r2.URL.RawPath = ""
		next.ServeHTTP(w, r2)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := contextWithRequestID(r.Context(), requestID)

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
