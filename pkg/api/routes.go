package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/items/{id}", s.HandleItem)
	mux.HandleFunc("GET /api/status", s.HandleStatus)
	mux.HandleFunc("POST /api/refresh", s.HandleRefresh)
	mux.HandleFunc("GET /api/events", s.HandleEvents)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
