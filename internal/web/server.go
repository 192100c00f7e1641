// Package web provides the HTTP server and JSON handlers for the mail
// merge application.
package web

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	publipostage "github.com/jlllyfish/ink-publipostage-grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/store"
)

// TemplateStore abstracts template persistence for handler tests.
type TemplateStore interface {
	Save(ctx context.Context, tpl store.Template) error
	Load(ctx context.Context, name string) (store.Template, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Compile-time interface check.
var _ TemplateStore = (*store.Store)(nil)

// Server is the HTTP server for the mail merge application.
type Server struct {
	grist         *grist.Client
	store         TemplateStore
	pool          publipostage.Pool
	filterColumn  string
	fontCSS       string
	renderTimeout time.Duration
	router        *chi.Mux
}

// Options configures a Server.
type Options struct {
	Grist         *grist.Client
	Store         TemplateStore
	Pool          publipostage.Pool
	FilterColumn  string
	FontCSS       string
	RenderTimeout time.Duration
}

// NewServer creates a Server with routes and middleware configured.
func NewServer(opts Options) *Server {
	s := &Server{
		grist:         opts.Grist,
		store:         opts.Store,
		pool:          opts.Pool,
		filterColumn:  opts.FilterColumn,
		fontCSS:       opts.FontCSS,
		renderTimeout: opts.RenderTimeout,
		router:        chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	// Batch generation renders a page per row; the ceiling covers large
	// tables, individual renders are bounded separately.
	s.router.Use(middleware.Timeout(10 * time.Minute))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Data source
		r.Post("/test-connection", s.handleTestConnection)
		r.Post("/tables", s.handleListTables)
		r.Post("/columns/{tableID}", s.handleListColumns)
		r.Post("/records/{tableID}", s.handleListRecords)

		// Merge and render
		r.Post("/preview", s.handlePreview)
		r.Post("/generate-pdf", s.handleGeneratePDF)
		r.Post("/generate-multiple", s.handleGenerateMultiple)

		// Template storage
		r.Post("/save-template", s.handleSaveTemplate)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/template/{name}", s.handleLoadTemplate)
		r.Delete("/template/{name}", s.handleDeleteTemplate)

		// Configuration
		r.Get("/config/filter-column", s.handleFilterColumn)
	})
}

// Router exposes the configured router for http.Server and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
