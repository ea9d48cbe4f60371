// Package site serves the embedded documentation pages.
package site

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Error constants
var (
	ErrServe = errors.New("docs site serve failed")
)

// Register attaches the documentation routes to r. Routes:
//
//	GET /docs   -> redirect to /docs/
//	GET /docs/* -> embedded pages
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	files := http.StripPrefix("/docs", http.FileServer(FS()))
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/docs/", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", files.ServeHTTP)
}
