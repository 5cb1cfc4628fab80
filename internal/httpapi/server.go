// Package httpapi exposes the account and lobby operations over REST and
// mounts the game WebSocket endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	corechess "github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// Lobby is the service behind the REST routes.
type Lobby interface {
	Register(ctx context.Context, username, password, email string) (domain.AuthToken, error)
	Login(ctx context.Context, username, password string) (domain.AuthToken, error)
	Logout(ctx context.Context, token string) error
	CreateGame(ctx context.Context, token, name string) (int, error)
	ListGames(ctx context.Context, token string) ([]*domain.GameRecord, error)
	JoinGame(ctx context.Context, token string, id int, color string) error
	Clear(ctx context.Context) error
	RenderBoard(ctx context.Context, token string, id int, perspective corechess.Color) ([]byte, error)
}

type Options struct {
	// AllowedOrigins is the CORS allow list; empty disables CORS headers.
	AllowedOrigins []string
}

type server struct {
	lobby  Lobby
	logger *zap.Logger
}

// NewHandler wires every route. ws serves GET /connect.
func NewHandler(lobby Lobby, ws http.Handler, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{lobby: lobby, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user", s.register)
	mux.HandleFunc("POST /session", s.login)
	mux.HandleFunc("DELETE /session", s.logout)
	mux.HandleFunc("GET /game", s.listGames)
	mux.HandleFunc("POST /game", s.createGame)
	mux.HandleFunc("PUT /game", s.joinGame)
	mux.HandleFunc("DELETE /db", s.clear)
	mux.HandleFunc("GET /game/{id}/board.png", s.board)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if ws != nil {
		mux.Handle("GET /connect", ws)
	}
	return cors(opts.AllowedOrigins, s.logRequests(mux))
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req chessdto.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok, err := s.lobby.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, chessdto.AuthResponse{Username: tok.Username, AuthToken: tok.Token})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req chessdto.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok, err := s.lobby.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, chessdto.AuthResponse{Username: tok.Username, AuthToken: tok.Token})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.lobby.Logout(r.Context(), authToken(r)); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, struct{}{})
}

func (s *server) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.lobby.ListGames(r.Context(), authToken(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, chessdto.ListGamesResponse{Games: chesspresenter.ToDTOSummaries(games)})
}

func (s *server) createGame(w http.ResponseWriter, r *http.Request) {
	var req chessdto.CreateGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.lobby.CreateGame(r.Context(), authToken(r), req.GameName)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, chessdto.CreateGameResponse{GameID: id})
}

func (s *server) joinGame(w http.ResponseWriter, r *http.Request) {
	var req chessdto.JoinGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.lobby.JoinGame(r.Context(), authToken(r), req.GameID, req.PlayerColor); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, struct{}{})
}

func (s *server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.lobby.Clear(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, struct{}{})
}

// board serves a PNG of the stored game; ?perspective=black flips it.
func (s *server) board(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.fail(w, domain.ErrBadRequest)
		return
	}
	perspective := corechess.White
	if p := r.URL.Query().Get("perspective"); p != "" {
		if perspective, err = corechess.ParseColor(p); err != nil {
			s.fail(w, domain.ErrBadRequest)
			return
		}
	}
	img, err := s.lobby.RenderBoard(r.Context(), authToken(r), id, perspective)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func authToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Authorization"))
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.fail(w, domain.ErrBadRequest)
		return false
	}
	return true
}

func (s *server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("http_response_encode_failed", zap.Error(err))
	}
}

func (s *server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("http_request_failed", zap.Error(err))
	}
	s.respond(w, status, chessdto.ErrorResponse{Message: "Error: " + err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrGameNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAlreadyTaken):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websocket upgrades.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/connect" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func cors(allow []string, next http.Handler) http.Handler {
	if len(allow) == 0 {
		return next
	}
	allowSet := make(map[string]struct{}, len(allow))
	for _, a := range allow {
		if a = strings.TrimSpace(a); a != "" {
			allowSet[a] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if _, ok := allowSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
