// Package server is the HTTP boundary: thin handlers over the app
// orchestrators, bearer-token auth against the identity provider, and the
// JSON/error conventions shared by every endpoint.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"docchat/internal/app"
	"docchat/internal/identity"
	"docchat/internal/ratelimit"
	"docchat/internal/util"
	"docchat/pkg/aigw"
	"docchat/pkg/domain"
)

// TokenVerifier validates bearer tokens. Satisfied by identity.Verifier.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	TokenVerifier  TokenVerifier
	OTPLimiter     *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes the HTTP endpoints.
type Server struct {
	app            *app.App
	tokenVerifier  TokenVerifier
	otpLimiter     *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires the app")
	}
	if cfg.TokenVerifier == nil {
		return nil, errors.New("server requires a token verifier")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		tokenVerifier:  cfg.TokenVerifier,
		otpLimiter:     cfg.OTPLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// account
	s.mux.HandleFunc("/auth/otp/request", s.handleRequestOTP)
	s.mux.Handle("/auth/signup/confirm", s.withIdentity(s.handleConfirmSignup))
	s.mux.HandleFunc("/auth/password/reset", s.handleResetPassword)
	s.mux.Handle("/auth/password/change", s.withUser(s.handleChangePassword))
	s.mux.Handle("/auth/account", s.withUser(s.handleDeleteAccount))

	// profile
	s.mux.Handle("/users/register", s.withIdentity(s.handleRegister))
	s.mux.Handle("/users/me", s.withUser(s.handleMe))

	// files and collections
	s.mux.Handle("/files", s.withUser(s.handleFiles))
	s.mux.Handle("/files/", s.withUser(s.handleFileByID))
	s.mux.Handle("/collections", s.withUser(s.handleCollections))
	s.mux.Handle("/collections/", s.withUser(s.handleCollectionByName))

	// chat
	s.mux.Handle("/chats", s.withUser(s.handleChats))
	s.mux.Handle("/chats/", s.withUser(s.handleChatByID))

	// memories
	s.mux.Handle("/memories", s.withUser(s.handleMemories))
	s.mux.Handle("/memories/", s.withUser(s.handleMemoryByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

type identityHandler func(http.ResponseWriter, *http.Request, identity.Identity)

// withIdentity requires a valid bearer token but not a registered profile.
// Used by registration and signup confirmation.
func (s *Server) withIdentity(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		who, err := s.tokenVerifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, who)
	})
}

// withUser additionally resolves the subject to the local profile.
func (s *Server) withUser(next userHandler) http.Handler {
	return s.withIdentity(func(w http.ResponseWriter, r *http.Request, who identity.Identity) {
		user, err := s.app.GetProfileBySubject(who.Subject)
		if err != nil {
			if errors.Is(err, app.ErrNotFound) {
				writeError(w, http.StatusForbidden, "profile not registered")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		next(w, r, user)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError maps orchestrator errors onto HTTP statuses. Raw internals
// never reach the client; validation messages do.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrInconsistentState):
		writeError(w, http.StatusInternalServerError, "account partially deleted, contact support")
	case errors.Is(err, aigw.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "ai service timed out")
	case errors.Is(err, aigw.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "ai service unavailable")
	case errors.Is(err, aigw.ErrRemote), errors.Is(err, app.ErrGeneration):
		writeError(w, http.StatusBadGateway, "ai service failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
