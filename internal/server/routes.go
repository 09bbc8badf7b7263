package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Tyrowin/chatverse/internal/metrics"
)

// SetupRoutes configures the router: health check, WebSocket endpoint, test
// page, metrics, presence lookups and the bearer-protected ingress API.
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.log), metricsMiddleware())

	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WebSocketHandler)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/presence", s.presenceListHandler).Methods(http.MethodGet)
	api.HandleFunc("/presence/online", s.onlineUsersHandler).Methods(http.MethodGet)
	api.HandleFunc("/presence/{userId}", s.userPresenceHandler).Methods(http.MethodGet)

	ingress := api.PathPrefix("/internal").Subrouter()
	ingress.Use(bearerAuth(s.log, s.verifier))
	ingress.HandleFunc("/messages", s.deliverHandler).Methods(http.MethodPost)
	ingress.HandleFunc("/reads", s.readsHandler).Methods(http.MethodPost)

	return r
}
