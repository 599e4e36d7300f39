package server

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jonwraymond/gridgate/auth"
	"github.com/jonwraymond/gridgate/health"
	"github.com/jonwraymond/gridgate/observe"
)

// MetricsPath serves the Prometheus scrape endpoint when a handler is set.
const MetricsPath = "/metrics"

// RouterOptions controls the construction of the gridgate HTTP router.
// The zero value is valid: stores default to one shared MemoryStore and a
// nil Verifier rejects every protected request.
type RouterOptions struct {
	Verifier       auth.TokenVerifier
	Households     HouseholdStore
	Powerplants    PowerplantStore
	Health         *health.Aggregator
	Observe        *observe.Middleware
	MetricsHandler http.Handler
	CORSOptions    *cors.Options
	Middleware     []func(http.Handler) http.Handler

	// Clock is the handlers' time source. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultCORSOptions returns the development CORS policy for the web client.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFor returns DefaultCORSOptions restricted to origins. An empty
// list keeps the default origins.
func CORSOptionsFor(origins []string) cors.Options {
	opts := DefaultCORSOptions()
	if len(origins) > 0 {
		opts.AllowedOrigins = append([]string(nil), origins...)
	}
	return opts
}

// NewRouter assembles a chi.Router with shared middleware, the CORS policy,
// the health endpoints and the protected simulator and social routes.
func NewRouter(opts RouterOptions) chi.Router {
	obs := opts.Observe
	if obs == nil {
		obs = observe.NewMiddleware(nil, nil, nil)
	}
	households, powerplants := opts.Households, opts.Powerplants
	if households == nil || powerplants == nil {
		mem := NewMemoryStore()
		if households == nil {
			households = mem
		}
		if powerplants == nil {
			powerplants = mem
		}
	}
	agg := opts.Health
	if agg == nil {
		agg = health.NewAggregator()
	}

	h := &handlers{
		households:  households,
		powerplants: powerplants,
		authz:       auth.NewRoleAuthorizer(),
		ownership:   auth.NewOwnershipPolicy(),
		validate:    newValidator(),
		logger:      obs.Logger(),
		metrics:     obs.Metrics(),
		now:         opts.Clock,
	}
	if h.now == nil {
		h.now = time.Now
	}
	gate := auth.NewGate(opts.Verifier, auth.WithFailureHook(h.authnFailed))

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(obs.Handler)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	health.Mount(r, agg)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, MetricsPath, opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)
		r.Use(h.authenticated)

		r.Route("/simulator", func(r chi.Router) {
			r.With(h.require(OpGridBlackouts)).Get("/grid/blackouts", h.gridBlackouts)
			r.With(h.require(OpHouseholdsByUser)).Get("/households/u/{id}", h.householdsByUser)
			r.With(h.require(OpHouseholdsMine)).Get("/household", h.householdsMine)
			r.With(h.require(OpHouseholdCreate)).Post("/household", h.householdCreate)
			r.With(h.require(OpHouseholdGet)).Get("/household/{id}", h.householdGet)
			r.With(h.require(OpHouseholdUpdate)).Patch("/household/{id}", h.householdUpdate)
			r.With(h.require(OpHouseholdDelete)).Delete("/household/{id}", h.householdDelete)
			r.With(h.require(OpMarketLimitSet)).Put("/market/limit", h.marketLimitSet)
			r.With(h.require(OpMarketLimitDelete)).Delete("/market/limit/{id}", h.marketLimitDelete)
			r.With(h.require(OpPowerplantStatus)).Get("/powerplant/status", h.powerplantStatus)
			r.With(h.require(OpPowerplantStatusSet)).Put("/powerplant/status", h.powerplantStatusSet)
		})
		r.With(h.require(OpWhoAmI)).Get("/social/whoami", h.whoAmI)
	})

	return r
}

// newValidator reports request field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
