package http

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/config"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/unrolled/secure"
)

func NewRouter(
	cfg *config.Config,
	JWTService jwt.Service,
	telemetry *observability.Metrics,
	screenHandler ScreenHandler,
	streamHandler StreamHandler,
	lookupHandler LookupHandler,
	downloadHandler DownloadHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-dashboard"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)

	origins := cfg.App.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !cfg.IsProduction(),
	}).Handler)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
		// High-frequency poll targets
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/metrics" || respStatus == http.StatusNotModified
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	exportLimiter := httprate.Limit(cfg.App.ExportRateLimit, time.Minute,
		httprate.WithKeyFuncs(middleware.RateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, "Too many exports, try again later")
		}),
	)

	requireAuth := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/screens", func(r chi.Router) {
			// EventSource cannot send headers, the stream authenticates with
			// a screen-bound token in the query string
			r.Get("/{id}/stream", streamHandler.Stream)

			// Requires authentication
			r.Group(func(r chi.Router) {
				requireAuth(r)

				r.Post("/", screenHandler.Open)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", screenHandler.Get)
					r.Delete("/", screenHandler.Close)

					r.Get("/page", screenHandler.Page)
					r.Post("/load", screenHandler.Load)
					r.Post("/clear", screenHandler.Clear)
					r.Get("/metrics", screenHandler.Metrics)
					r.Get("/stream-token", screenHandler.StreamToken)

					r.Route("/filters", func(r chi.Router) {
						r.Get("/", screenHandler.Filters)
						r.Put("/search", screenHandler.SetSearch)
						r.Put("/date", screenHandler.SetDate)
						r.Put("/range", screenHandler.SetDateRange)
						r.Put("/month", screenHandler.SetMonth)
						r.Put("/status", screenHandler.SetStatus)
						r.Put("/criterion", screenHandler.SetCriterion)
						r.Put("/categorical/{name}", screenHandler.SetCategorical)
					})

					r.Route("/exports", func(r chi.Router) {
						r.With(exportLimiter).Post("/", screenHandler.Export)
						r.Get("/{job}", screenHandler.GetExport)
					})
				})
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			requireAuth(r)

			r.Route("/lookups", func(r chi.Router) {
				r.Get("/", lookupHandler.Names)
				r.Get("/{name}", lookupHandler.Options)
			})

			r.Get("/downloads/{job}/{file}", downloadHandler.Download)
		})
	})
	return r
}
