// Package server exposes the chat assistant over a JSON HTTP API using
// Go 1.22+ method routing with a layered middleware stack.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foliobot/folio/internal/assistant"
	"github.com/foliobot/folio/internal/cache"
	"github.com/foliobot/folio/internal/leads"
	"github.com/foliobot/folio/internal/vectorstore"
)

// Replier answers one chat message with prior history.
type Replier interface {
	Reply(ctx context.Context, message string, history []assistant.Message) (string, error)
}

// Config contains the server's dependencies.
type Config struct {
	Assistant Replier      // Required
	Leads     *leads.Store // Optional: nil disables data endpoints
	Cache     *cache.Cache // Optional: nil omits cache stats
	Store     vectorstore.Store
	Logger    *slog.Logger

	CORSOrigins []string // Allowed origins; empty allows any
	RateBurst   int      // Per-IP burst size (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// New creates a server with all routes and middleware configured.
func New(cfg Config) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("POST /api/chat", s.chat)
	if cfg.Leads != nil {
		mux.HandleFunc("GET /api/leads", s.listLeads)
		mux.HandleFunc("GET /api/knowledge-gaps", s.listGaps)
		mux.HandleFunc("GET /api/stats", s.stats)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1, burst)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)
	s.handler = handler

	return s, nil
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

type chatRequest struct {
	Message string `json:"message"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

type chatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	history := make([]assistant.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, assistant.Message{
			Role:    assistant.Role(m.Role),
			Content: m.Content,
		})
	}

	answer, err := s.cfg.Assistant.Reply(r.Context(), req.Message, history)
	if err != nil {
		// Upstream failures surface as a structured error, never a
		// stack trace or partial message sequence.
		s.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "error processing request")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: answer, Status: "success"})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Career AI Assistant API",
		"endpoints": map[string]string{
			"chat":   "/api/chat",
			"health": "/health",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	all, err := s.cfg.Leads.ListLeads(r.Context())
	if err != nil {
		s.logger.Error("listing leads failed", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading leads")
		return
	}
	if all == nil {
		all = []leads.Lead{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) listGaps(w http.ResponseWriter, r *http.Request) {
	all, err := s.cfg.Leads.ListGaps(r.Context())
	if err != nil {
		s.logger.Error("listing knowledge gaps failed", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading knowledge gaps")
		return
	}
	if all == nil {
		all = []leads.Gap{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}

	st, err := s.cfg.Leads.Stats(r.Context())
	if err != nil {
		s.logger.Error("reading lead stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading stats")
		return
	}
	out["total_leads"] = st.TotalLeads
	out["total_knowledge_gaps"] = st.TotalGaps

	if s.cfg.Cache != nil {
		if cs, err := s.cfg.Cache.Stats(r.Context()); err == nil {
			out["cache"] = cs
		}
	}
	if s.cfg.Store != nil {
		if n, err := s.cfg.Store.Count(r.Context()); err == nil {
			out["indexed_chunks"] = n
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
