package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/auth"
	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/utils"
)

const (
	activeRoomWindow = 24 * time.Hour
	maxImportBytes   = 10 << 20
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.recoverMiddleware)
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws", s.ws.HandleWebSocket)

	s.auth.RegisterRoutes(r.PathPrefix("/auth").Subrouter())

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.auth.OptionalAuth)
	api.HandleFunc("/import_packs", s.ImportPacks).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/rooms", s.ListRooms).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/rooms/{room}/state", s.RoomState).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// ===== MIDDLEWARE =====

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.corsOrigins == nil {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Credentials", "false")
		} else if s.corsOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("[recoverMiddleware] handler panicked")
				utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ===== HANDLERS =====

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ImportPacks loads a JSON pack document, sent either as the raw body or as a
// multipart "file" field. Only the connection holding host mode in ?room= may
// import.
func (s *Server) ImportPacks(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = internal.DefaultRoom
	}
	conn := r.URL.Query().Get("conn")
	if conn == "" || !s.game.IsHost(room, conn) {
		utils.WriteError(w, http.StatusForbidden, "Host only")
		return
	}

	body, err := importBody(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer body.Close()

	res, err := store.ImportPacks(r.Context(), s.store, body)
	switch {
	case errors.Is(err, store.ErrInvalidJSON):
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	case errors.Is(err, store.ErrInvalidImport):
		utils.WriteError(w, http.StatusBadRequest, store.ErrInvalidImport.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("room", room).Msg("[ImportPacks] import failed")
		utils.WriteError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	log.Info().Str("room", room).Int("added", res.TotalAdded).Int("packs", len(res.Packs)).Msg("[ImportPacks] packs imported")
	s.game.BroadcastRoom(r.Context(), room)
	utils.WriteJSON(w, http.StatusOK, res)
}

func importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListRooms returns the rooms active in the last day. Requires a session.
func (s *Server) ListRooms(w http.ResponseWriter, r *http.Request) {
	startTime := s.now().UnixMilli()

	if auth.UserIDFromContext(r.Context()) == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	rooms, err := s.store.ActiveRooms(r.Context(), s.now().Add(-activeRoomWindow))
	if err != nil {
		log.Error().Err(err).Msg("[ListRooms] query failed")
		utils.WriteError(w, http.StatusInternalServerError, "Could not list rooms")
		return
	}
	if rooms == nil {
		rooms = []internal.RoomActivity{}
	}

	resp := internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          rooms,
	}
	endTime := s.now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - startTime

	utils.WriteJSON(w, resp.StatusCode, resp)
}

func (s *Server) RoomState(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	snap, err := s.game.State(r.Context(), room)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("[RoomState] snapshot failed")
		utils.WriteError(w, http.StatusInternalServerError, "Could not load room")
		return
	}
	utils.WriteJSON(w, http.StatusOK, snap)
}
