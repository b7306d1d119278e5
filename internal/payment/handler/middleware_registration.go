package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	EnableLogging bool
	EnableTracing bool
	JWTSecret     string
	// RateLimiter is optional; nil disables limiting
	RateLimiter *RateLimiter
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(jwtSecret string, limiter *RateLimiter) MiddlewareConfig {
	return MiddlewareConfig{
		EnableLogging: true,
		EnableTracing: true,
		JWTSecret:     jwtSecret,
		RateLimiter:   limiter,
	}
}

// RegisterMiddlewares registers all middlewares to the router
func RegisterMiddlewares(router *mux.Router, config MiddlewareConfig) {
	// Tracing wraps logging so request logs carry the trace id
	if config.EnableTracing {
		router.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "http-request",
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + routeTemplate(r)
				}),
			)
		})
	}

	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}
}

// GetAuthMiddleware returns the bearer token middleware
func (config MiddlewareConfig) GetAuthMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AuthMiddleware(config.JWTSecret)
}

// GetAdminMiddleware returns the admin-only middleware
func (config MiddlewareConfig) GetAdminMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AdminMiddleware(config.JWTSecret)
}

func (config MiddlewareConfig) limit(next http.HandlerFunc) http.HandlerFunc {
	if config.RateLimiter == nil {
		return next
	}
	return config.RateLimiter.Middleware(next)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
