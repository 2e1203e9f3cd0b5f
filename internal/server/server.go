package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/auth"
	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/websocket"
)

// Game is the slice of game.Service the HTTP layer calls.
type Game interface {
	State(ctx context.Context, roomID string) (internal.RoomSnapshot, error)
	IsHost(roomID, conn string) bool
	BroadcastRoom(ctx context.Context, roomID string)
}

type Deps struct {
	Game  Game
	Store store.Store
	Auth  *auth.Authenticator
	WS    *websocket.Handler
	// CORSOrigins lists allowed origins; empty allows any origin without
	// credentials.
	CORSOrigins []string
}

type Server struct {
	game        Game
	store       store.Store
	auth        *auth.Authenticator
	ws          *websocket.Handler
	corsOrigins map[string]bool
	now         func() time.Time
}

func New(d Deps) *Server {
	s := &Server{
		game:  d.Game,
		store: d.Store,
		auth:  d.Auth,
		ws:    d.WS,
		now:   time.Now,
	}
	if len(d.CORSOrigins) > 0 {
		s.corsOrigins = make(map[string]bool, len(d.CORSOrigins))
		for _, o := range d.CORSOrigins {
			s.corsOrigins[o] = true
		}
	}
	return s
}

// HTTPServer wraps the routes in an *http.Server listening on port.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
