package server

import (
	"context"
	"net/http"

	"localeditor/services/editor"
	"localeditor/middleware"
	"localeditor/s3"
	"localeditor/types"
	"localeditor/utils"
	"localeditor/websocket"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Lister lists locale folders and files. *github.Client implements it.
type Lister interface {
	ListLocales(ctx context.Context, repoPath, langDir string) ([]types.LocaleEntry, error)
	ListLocaleFiles(ctx context.Context, repoPath, langDir, path string) ([]types.LocaleEntry, error)
}

// Exporter uploads and removes exported documents. *s3.S3Service implements it.
type Exporter interface {
	Configured() bool
	UploadExport(ctx context.Context, repoPath, locale, fileName string, content []byte) (*s3.Export, error)
	DeleteExport(ctx context.Context, key string) error
}

// Dependencies are the services behind the API. Exporter and Bus may be nil.
type Dependencies struct {
	Manager  *editor.Manager
	Lister   Lister
	Exporter Exporter
	Bus      websocket.Bus
}

// SetupRouter loads the message bundles and builds the API router.
func SetupRouter(deps Dependencies) (*chi.Mux, error) {
	bundle, err := InitI18n()
	if err != nil {
		return nil, err
	}
	// Устанавливаем глобальный bundle для локализации
	utils.SetI18nBundle(bundle)

	return NewRouter(deps, bundle), nil
}

// NewRouter builds the router around an already loaded bundle.
func NewRouter(deps Dependencies, bundle *i18n.Bundle) *chi.Mux {
	r := chi.NewRouter()
	h := &handlers{deps: deps}

	// Global CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type",
			middleware.LanguageHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLoggingMiddleware)
	if utils.GetEnvBool("LOG_HTTP_HEADERS", false) {
		r.Use(middleware.HTTPHeadersLoggingMiddleware)
	}
	r.Use(middleware.LanguageMiddleware(SupportedLanguages(bundle)))

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.getSettings)
			r.Put("/", h.saveSettings)
			r.Delete("/", h.resetSettings)
		})

		r.Get("/locales", h.listLocales)
		r.Get("/files", h.listFiles)

		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.closeSession)
			r.Put("/selection", h.updateSelection)
			r.Get("/rows", h.rows)
			r.Put("/values", h.setValue)
			r.Post("/toggle", h.toggle)
			r.Get("/document", h.getDocument)
			r.Put("/document", h.putDocument)
			r.Get("/download", h.download)
			r.Post("/publish", h.publish)
			r.Delete("/publish", h.withdraw)
			r.Get("/events", h.events)
		})
	})

	return r
}

type handlers struct {
	deps Dependencies
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.deps.Manager.Len(),
	})
}
