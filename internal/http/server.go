// Package http exposes the ledger over a JSON API plus the CSV and
// printable-report endpoints. Routing is chi; every response the browser
// consumes is built from committed ledger state, never cached.
package http

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bloombook/internal/ledger"
	applog "bloombook/internal/log"
	appweb "bloombook/web"
)

type Server struct {
	http.Server
	ledger    *ledger.Ledger
	templates *template.Template
	metrics   *serverMetrics
	logger    *applog.Logger
}

// NewServer wires routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, led *ledger.Ledger, logger *applog.Logger) *Server {
	s := &Server{
		ledger:  led,
		metrics: newServerMetrics(),
		logger:  logger.WithComponent(applog.ComponentHTTP),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/grouped", s.handleGroupedTransactions)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Route("/debts", func(r chi.Router) {
			r.Get("/", s.handleListDebts)
			r.Post("/", s.handleCreateDebt)
			r.Delete("/{id}", s.handleDeleteDebt)
			r.Post("/{id}/settle", s.handleSettleDebt)
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/report", s.handlePeriodReport)
	})

	r.Get("/export.csv", s.handleExportCSV)
	r.Post("/import", s.handleImportCSV)
	r.Get("/print/{kind}", s.handlePrintReport)

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// requestLogging logs completion of every request with its chi request id
// and records the duration histogram.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		s.metrics.observeRequest(r.Method, routePattern(r), ww.Status(), duration)
		s.logger.InfoContext(r.Context(), "Request completed",
			applog.FieldRequestID, middleware.GetReqID(r.Context()),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, ww.Status(),
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, r.RemoteAddr)
	})
}

// routePattern returns the matched chi pattern so metric labels stay
// bounded. Unmatched requests collapse into one label.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
