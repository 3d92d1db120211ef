// Package api serves search results and snapshot events over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/log"
	"github.com/rubiojr/itemsearch/pkg/realtime"
)

// Refresher rebuilds the engine snapshot on demand;
// *scheduler.Scheduler satisfies it.
type Refresher interface {
	RefreshNow(ctx context.Context) (*engine.Snapshot, error)
}

// DefaultRefreshTimeout bounds a refresh requested over HTTP.
const DefaultRefreshTimeout = 30 * time.Second

type Server struct {
	engine         *engine.Engine
	refresher      Refresher
	hub            *realtime.Hub
	refreshTimeout time.Duration
	logger         *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRefreshTimeout bounds POST /api/refresh. Non-positive values keep the
// default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// NewServer creates a Server. refresher may be nil, which disables
// POST /api/refresh.
func NewServer(eng *engine.Engine, refresher Refresher, hub *realtime.Hub, opts ...Option) *Server {
	if hub == nil {
		hub = realtime.NewHub(0)
	}
	s := &Server{
		engine:         eng,
		refresher:      refresher,
		hub:            hub,
		refreshTimeout: DefaultRefreshTimeout,
		logger:         log.ForService("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
