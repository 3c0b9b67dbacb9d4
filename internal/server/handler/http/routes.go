package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the console.
//
// Routes:
//
//	GET  /healthz                → Health
//	GET  /                       → consoleHandler.Index
//	POST /login                  → consoleHandler.Login
//	POST /verify                 → consoleHandler.Verify
//	POST /logout                 → consoleHandler.Logout
//	POST /select                 → consoleHandler.Select
//	POST /products/reload        → consoleHandler.Reload
//	POST /products/new           → consoleHandler.NewProduct
//	POST /products/{id}/edit     → consoleHandler.EditProduct
//	POST /products/{id}/delete   → consoleHandler.DeleteProduct
//	POST /editor                 → consoleHandler.Editor
//	POST /delete/confirm         → consoleHandler.ConfirmDelete
//	POST /delete/cancel          → consoleHandler.CancelDelete
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP          — request metadata for the logs
//  2. WithRequestLogging(logger) — logs every request
//  3. Recoverer                  — turns panics into 500s
//  4. Workspace                  — assigns the workspace cookie (console routes)
//  5. CSRF.Protect               — checks the token on posts (console routes)
func NewRouter(consoleHandler *ConsoleHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Workspace)
		r.Use(consoleHandler.CSRF.Protect)
		// Upstream calls are bounded by the API timeout; this bounds the rest.
		r.Use(chiMiddleware.Timeout(2 * time.Minute))

		r.Get("/", consoleHandler.Index)
		r.Post("/login", consoleHandler.Login)
		r.Post("/verify", consoleHandler.Verify)
		r.Post("/logout", consoleHandler.Logout)
		r.Post("/select", consoleHandler.Select)

		r.Route("/products", func(r chi.Router) {
			r.Post("/reload", consoleHandler.Reload)
			r.Post("/new", consoleHandler.NewProduct)
			r.Post("/{id}/edit", consoleHandler.EditProduct)
			r.Post("/{id}/delete", consoleHandler.DeleteProduct)
		})

		r.Post("/editor", consoleHandler.Editor)
		r.Post("/delete/confirm", consoleHandler.ConfirmDelete)
		r.Post("/delete/cancel", consoleHandler.CancelDelete)
	})

	return r
}
