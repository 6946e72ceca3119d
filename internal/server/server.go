// ABOUTME: HTTP API exposing the query pipeline as POST /ask
// ABOUTME: Applies CORS, security headers, per-client rate limiting and input sanitization
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/cors"
)

// User-visible error messages
const (
	MsgInvalidJSON = "Felaktig JSON-struktur i förfrågan."
	MsgNoQuestion  = "Ingen fråga angavs"
	MsgRateLimited = "För många förfrågningar – vänta en stund innan du försöker igen."
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline' https:; img-src 'self' data:"

// DefaultMaxBodyBytes caps the /ask request body
const DefaultMaxBodyBytes = 64 << 10

// Answerer answers one pipeline request. *core.Pipeline satisfies it.
type Answerer interface {
	Answer(ctx context.Context, req core.Request) core.Response
}

// Config configures the HTTP server
type Config struct {
	AllowedOrigin string
	RateLimit     int
	RateWindow    time.Duration
	MaxBodyBytes  int64
}

// Server is the FK-Guiden HTTP API
type Server struct {
	answerer Answerer
	cfg      Config
	strip    *bluemonday.Policy
	limiter  *clientLimiter
	logger   *slog.Logger
	handler  http.Handler
}

type askRequest struct {
	Question *string                   `json:"question"`
	History  []models.ConversationTurn `json:"history,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Server around answerer
func New(answerer Answerer, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		answerer: answerer,
		cfg:      cfg,
		strip:    bluemonday.StrictPolicy(),
		limiter:  newClientLimiter(cfg.RateLimit, cfg.RateWindow),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /ask", s.rateLimit(http.HandlerFunc(s.handleAsk)))
	mux.HandleFunc("GET /health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = securityHeaders(c.Handler(mux))
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req askRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		s.logger.Debug("rejected request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidJSON})
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidJSON})
		return
	}

	if req.Question == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgNoQuestion})
		return
	}
	question := s.SanitizeQuestion(*req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgNoQuestion})
		return
	}

	resp := s.answerer.Answer(r.Context(), core.Request{Question: question, History: req.History})
	writeJSON(w, http.StatusOK, askResponse{Answer: resp.Answer.Text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SanitizeQuestion removes all HTML markup from q and trims it
func (s *Server) SanitizeQuestion(q string) string {
	return strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(q)))
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			s.logger.Warn("rate limit exceeded", "client", clientKey(r))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: MsgRateLimited})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Del("X-Powered-By")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
