package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/utils"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	OK   bool          `json:"ok"`
	User internal.User `json:"user"`
}

// RegisterRoutes mounts the account endpoints on r.
func (a *Authenticator) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", a.HandleRegister).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/login", a.HandleLogin).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/logout", a.HandleLogout).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/me", a.OptionalAuth(http.HandlerFunc(a.HandleMe))).Methods(http.MethodGet, http.MethodOptions)
}

func (a *Authenticator) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	u, err := a.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "errors": verr.Problems})
		return
	case errors.Is(err, store.ErrEmailTaken):
		utils.WriteJSON(w, http.StatusConflict, map[string]any{"ok": false, "errors": []string{"Email already registered"}})
		return
	case err != nil:
		log.Error().Err(err).Msg("[HandleRegister] create user failed")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	log.Info().Int64("user", u.ID).Msg("[HandleRegister] account created")
	a.startSession(w, u, http.StatusCreated)
}

func (a *Authenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := a.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("[HandleLogin] lookup failed")
		utils.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	a.startSession(w, u, http.StatusOK)
}

func (a *Authenticator) startSession(w http.ResponseWriter, u internal.User, status int) {
	token, exp, err := a.SignToken(u)
	if err != nil {
		log.Error().Err(err).Msg("[startSession] sign token failed")
		utils.WriteError(w, http.StatusInternalServerError, "Could not start session")
		return
	}
	a.setCookie(w, token, exp)
	utils.WriteJSON(w, status, userResponse{OK: true, User: u})
}

func (a *Authenticator) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearCookie(w)
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *Authenticator) HandleMe(w http.ResponseWriter, r *http.Request) {
	id := UserIDFromContext(r.Context())
	if id == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	u, err := a.users.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		a.clearCookie(w)
		utils.WriteError(w, http.StatusUnauthorized, "User not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("user", id).Msg("[HandleMe] lookup failed")
		utils.WriteError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}
	utils.WriteJSON(w, http.StatusOK, userResponse{OK: true, User: u})
}
