package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"estate-assistant-backend/internal/assistant"
	"estate-assistant-backend/internal/chat"
	"estate-assistant-backend/internal/config"
	"estate-assistant-backend/internal/marketplace"
	"estate-assistant-backend/internal/store"
	"estate-assistant-backend/internal/types"
)

// turnTimeout bounds a whole HTTP turn. Provider calls keep their own
// per-call timeout inside it.
const turnTimeout = 90 * time.Second

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	log      *logrus.Logger
	backend  *Backend
	convs    *store.MemoryStore
	upgrader websocket.Upgrader
}

// NewServer builds the backend from cfg and mounts every route.
func NewServer(cfg config.Config, log *logrus.Logger) (*Server, error) {
	backend, err := NewBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	return New(cfg, log, backend), nil
}

// New mounts the routes over an already wired backend.
func New(cfg config.Config, log *logrus.Logger, backend *Backend) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if backend.Log == nil {
		backend.Log = log
	}
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id", "X-User-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true, // Enable credentials for cookies
		MaxAge:           300,
	}))
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	s := &Server{
		router:  r,
		cfg:     cfg,
		log:     log,
		backend: backend,
		convs:   store.NewMemoryStore(backend.NewConversation, cfg.ConversationTTL, log),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	if s.cfg.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}
	s.router.Route("/api/chat", func(r chi.Router) {
		r.Use(withCredentials)
		r.Post("/", s.handleChat)
		r.Get("/session", s.handleSession)
		r.Delete("/session", s.handleEndSession)
		r.Post("/clear", s.handleClear)
		r.Post("/action", s.handleAction)
		r.Post("/visibility", s.handleVisibility)
		r.Get("/ws", s.handleWebSocket)
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Conversations exposes the live conversation table, e.g. for the sweeper.
func (s *Server) Conversations() *store.MemoryStore { return s.convs }

// Close releases the backend connections.
func (s *Server) Close() error { return s.backend.Close() }

// withCredentials forwards the caller's bearer token and user id to the
// marketplace collaborators.
func withCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		cred := marketplace.Credentials{
			Token:  strings.TrimSpace(token),
			UserID: strings.TrimSpace(r.Header.Get("X-User-Id")),
		}
		if cred.Token == "" && cred.UserID == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(marketplace.WithCredentials(r.Context(), cred)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok"}
	for _, p := range s.backend.Providers {
		if p.Ready() == nil {
			resp.Providers = append(resp.Providers, p.Name)
		}
	}
	if s.backend.Database != nil {
		resp.Database = "ok"
		if err := s.backend.Database.HealthCheck(); err != nil {
			s.log.WithError(err).Warn("database health check failed")
			resp.Status, resp.Database = "degraded", "unavailable"
		}
	}
	s.writeJSON(w, "", resp)
}

// turnContext detaches the turn from the request so a client hanging up does
// not abort calls already in flight. Credentials are kept.
func turnContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), turnTimeout)
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (string, *assistant.Orchestrator, bool) {
	sid := getOrCreateSessionID(r, w, s.log)
	conv, err := s.convs.Get(sid)
	if err != nil {
		s.log.WithError(err).WithField("session", sid).Error("failed to create conversation")
		s.writeError(w, http.StatusInternalServerError, "conversation unavailable")
		return "", nil, false
	}
	activeConversations.Set(float64(s.convs.Len()))
	return sid, conv, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	sid, conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	ctx, cancel := turnContext(r)
	defer cancel()
	msgs := conv.Send(ctx, req.Message)
	s.writeJSON(w, sid, types.ChatResponse{SessionID: sid, Messages: nonNil(msgs), Session: conv.Session()})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sid, conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, sid, types.SessionResponse{
		SessionID: sid,
		Session:   conv.Session(),
		Visible:   conv.Visible(),
		Typing:    conv.Typing(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sid, conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	sess := conv.Clear()
	s.writeJSON(w, sid, types.ChatResponse{SessionID: sid, Messages: nonNil(sess.Messages), Session: sess})
}

// handleEndSession drops the caller's conversation and cookie. With
// ?forget=true the archived transcript is deleted as well.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	conv, ok := s.convs.Lookup(sid)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	id := conv.Session().ID
	s.convs.Remove(sid)
	activeConversations.Set(float64(s.convs.Len()))
	ClearSessionCookie(w, r)

	if s.backend.Archive != nil && r.URL.Query().Get("forget") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.backend.Archive.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("session", id).Error("failed to delete transcript")
			s.writeError(w, http.StatusInternalServerError, "transcript could not be deleted")
			return
		}
	}
	s.log.WithField("session", sid).Debug("session ended")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req types.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(string(req.Action.Verb)) == "" {
		s.writeError(w, http.StatusBadRequest, "action is required")
		return
	}
	sid, conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	ctx, cancel := turnContext(r)
	defer cancel()
	out := conv.ExecuteAction(ctx, req.Action)
	s.writeJSON(w, sid, types.ActionResponse{
		SessionID: sid,
		Messages:  nonNil(out.Messages),
		Navigate:  out.Navigate,
		Session:   conv.Session(),
	})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req types.VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var apply func(*assistant.Orchestrator)
	switch strings.ToLower(strings.TrimSpace(req.Op)) {
	case "show":
		apply = (*assistant.Orchestrator).Show
	case "hide":
		apply = (*assistant.Orchestrator).Hide
	case "toggle":
		apply = (*assistant.Orchestrator).Toggle
	default:
		s.writeError(w, http.StatusBadRequest, "op must be show, hide or toggle")
		return
	}
	sid, conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	apply(conv)
	s.writeJSON(w, sid, types.VisibilityResponse{Visible: conv.Visible()})
}

func nonNil(msgs []chat.Message) []chat.Message {
	if msgs == nil {
		return []chat.Message{}
	}
	return msgs
}

func (s *Server) writeJSON(w http.ResponseWriter, sid string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if sid != "" {
		w.Header().Set("X-Session-Id", sid)
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return "s_" + uuid.NewString()
}

// getSessionID retrieves the session ID from cookie or query parameter/header
func getSessionID(r *http.Request) string {
	// Try cookie first
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	// Fall back to header
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	// Fall back to query parameter
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets existing session ID or creates a new one, setting the cookie
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter, log logrus.FieldLogger) string {
	sid := getSessionID(r)
	fields := logrus.Fields{"endpoint": r.URL.Path}
	if sid == "" {
		sid = newSessionID()
		log.WithFields(fields).WithField("session", sid).Debug("creating new session")
		SetSessionCookie(w, r, sid)
	} else {
		log.WithFields(fields).WithField("session", sid).Debug("reusing existing session")
	}
	return sid
}
