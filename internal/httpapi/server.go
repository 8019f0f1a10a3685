package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/dorothy/internal/chat"
	"github.com/antoniostano/dorothy/internal/config"
	"github.com/antoniostano/dorothy/internal/observability"
	"github.com/antoniostano/dorothy/internal/responder"
)

// Responder handles one inbound message and produces the reply text.
type Responder interface {
	HandleMessage(ctx context.Context, in responder.Inbound) (string, error)
}

type Server struct {
	cfg      config.Config
	registry *chat.Registry
	resp     Responder
	latency  *observability.LatencyWindow
	upgrader websocket.Upgrader
}

func New(cfg config.Config, registry *chat.Registry, resp Responder, latency *observability.LatencyWindow) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		resp:     resp,
		latency:  latency,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// omit Origin and are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/conversations", s.handleListConversations)
	r.Get("/v1/conversations/{id}/log", s.handleConversationLog)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"agent":         s.cfg.AgentName,
		"conversations": s.registry.Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	Private        bool   `json:"private"`
	Text           string `json:"text"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.AuthorID) == "" || strings.TrimSpace(req.AuthorName) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "author_id and author_name are required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := s.resp.HandleMessage(r.Context(), responder.Inbound{
		ConversationKey: req.ConversationID,
		AuthorID:        req.AuthorID,
		AuthorName:      req.AuthorName,
		Private:         req.Private,
		Content:         req.Text,
	})
	if err != nil {
		log.Printf("completion failed for %s: %v", req.ConversationID, err)
		respondError(w, http.StatusBadGateway, "completion_failed", responder.FailureReply)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Reply:          reply,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"conversations": s.registry.Snapshot(),
	})
}

func (s *Server) handleConversationLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h, ok := s.registry.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "conversation_not_found", "no such conversation")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.Render(s.cfg.AgentName)))
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.latency.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
