package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"go-session-auth-service/internal/health"
	"go-session-auth-service/internal/http/handler"
	"go-session-auth-service/internal/http/middleware"
	"go-session-auth-service/internal/http/response"
	"go-session-auth-service/internal/service"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	Sessions       *service.SessionManager
	CSRF           *service.CSRFValidator
	RateLimiter    *middleware.RateLimiter
	Readiness      *health.ProbeRunner
	CookieSecure   bool
	RequestTimeout time.Duration
	BodyLimitBytes int64
	RateLimitRPM   int
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(dep.BodyLimitBytes))
	r.Use(chimiddleware.Timeout(dep.RequestTimeout))
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Middleware())
	} else {
		r.Use(middleware.NewRateLimiter(middleware.NewLocalFixedWindowLimiter(), dep.RateLimitRPM, time.Minute, "api").Middleware())
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.JSON(w, r, http.StatusServiceUnavailable, map[string]any{"status": "unready", "checks": results})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(dep.Sessions, dep.CookieSecure))

		// Safe methods: no anti-forgery token required.
		r.Get("/csrf-token", dep.AuthHandler.CSRFToken)
		r.Get("/profile", dep.AuthHandler.Profile)

		// State-mutating methods go through the CSRF gate first.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRFRequired(dep.CSRF))
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
