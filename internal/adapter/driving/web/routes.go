package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Web routes serve HTML at / and /app/* paths.
// Static assets are served from the embedded filesystem at /static/*.
// Every POST route requires a valid CSRF token.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Dashboard)

	// Credential fragments and actions (htmx).
	mux.HandleFunc("GET /app/credentials/new", h.NewForm)
	mux.HandleFunc("POST /app/credentials", requireCSRF(h.CreateCredential))
	mux.HandleFunc("GET /app/credentials/{id}/card", h.CardFragment)
	mux.HandleFunc("POST /app/credentials/{id}/{action}", requireCSRF(h.CredentialAction))
	mux.HandleFunc("POST /app/credentials/{id}", requireCSRF(h.SubmitEdit))
}
