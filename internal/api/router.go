package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter creates the router and registers all handlers.
func NewRouter(authHandler *AuthHandler, sessionMiddleware func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint (public, no auth)
	r.HandleFunc("/health", HealthCheckHandler).Methods(http.MethodGet)

	authHandler.RegisterRoutes(r, sessionMiddleware)

	// Versioned API; everything mounted here requires a session.
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(mux.MiddlewareFunc(sessionMiddleware))
	v1.HandleFunc("/me", authHandler.userinfo).Methods(http.MethodGet)

	return r
}
