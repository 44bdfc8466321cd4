// Package httpserver exposes the storefront HTTP API.
package httpserver

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/and161185/storefront/internal/metrics"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth     service.AuthService
	products service.ProductService
	validate *validator.Validate
}

// New constructs the handler set with injected services.
func New(auth service.AuthService, products service.ProductService) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names in validation messages
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{auth: auth, products: products, validate: v}
}

// Options configures the router's cross-cutting middleware.
type Options struct {
	Log         *zap.Logger
	Metrics     metrics.Recorder
	Gatherer    prometheus.Gatherer // nil disables /metrics
	CORSOrigins []string
	Limiter     *ClientLimiter // nil disables per-client throttling
}

// Routes builds the chi router.
func (s *Server) Routes(opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(opts.Log))
	r.Use(Recover(opts.Log))
	r.Use(Metrics(opts.Metrics))
	r.Use(SecurityHeaders)
	r.Use(CORS(opts.CORSOrigins))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeAPIError(w, apiNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, apiError{Code: "method_not_allowed", Message: "method not allowed", status: http.StatusMethodNotAllowed})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeOK(w) })
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	authn := Authenticate(s.auth)

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
				r.With(RequireRoles(model.RoleAdmin)).Get("/admin/ping", s.adminPing)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(authn)
			admin := RequireRoles(model.RoleAdmin)
			reader := RequireRoles(model.RoleUser, model.RoleAdmin)

			r.With(admin).Post("/", s.createProduct)
			r.With(reader).Get("/", s.listProducts)
			r.With(admin).Post("/seed", s.seedProducts)
			r.With(admin).Post("/reset", s.resetProducts)
			r.With(reader).Get("/{id}", s.getProduct)
			r.With(admin).Patch("/{id}", s.updateProduct)
			r.With(admin).Delete("/{id}", s.removeProduct)
		})
	})

	return r
}
