// Package http exposes the pipeline over a thin JSON API plus a minimal
// chat page. Routing is hand-rolled in ServeHTTP to keep dependencies
// light.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"careline-chatbot/internal/agent"
	"careline-chatbot/pkg"
)

// Version is reported by the health and root endpoints.
const Version = "1.0.0"

// historyWindow caps how much prior history is fed into a run. Older
// messages stay in storage but no longer steer the model.
const historyWindow = 20

//go:embed templates/*.html
var templateFS embed.FS

// ChatRunner is the single operation the API needs from the pipeline.
type ChatRunner interface {
	Run(ctx context.Context, userID, threadID, message string, prior []pkg.ChatMessage) (*agent.State, error)
}

// HistoryStore persists conversation turns between runs. The pipeline is
// stateless; this is how history survives from one request to the next.
type HistoryStore interface {
	PriorHistory(ctx context.Context, userID string, limit int) ([]pkg.ChatMessage, error)
	History(ctx context.Context, userID string, limit int) ([]pkg.StoredMessage, error)
	SaveRun(ctx context.Context, userID, threadID, userText, assistantText string) error
}

// Server bundles the handler dependencies and implements http.Handler.
type Server struct {
	Runner    ChatRunner
	Store     HistoryStore
	Provider  agent.ContextProvider
	Templates *template.Template
	Origins   []string
	Log       *zap.Logger

	validator *requestValidator
}

// NewServer constructs a Server. Templates are embedded so the binary is
// self-contained.
func NewServer(runner ChatRunner, store HistoryStore, provider agent.ContextProvider, origins []string, log *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Runner:    runner,
		Store:     store,
		Provider:  provider,
		Templates: tmpl,
		Origins:   origins,
		Log:       log,
		validator: newRequestValidator(),
	}, nil
}

// ServeHTTP dispatches requests by path. CORS headers are applied to every
// response so a browser front-end on another origin can call the API.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/chat" && r.Method == http.MethodPost:
		s.handleChat(w, r)
	case strings.HasPrefix(path, "/chat/history/") && r.Method == http.MethodGet:
		s.handleHistory(w, r, strings.TrimPrefix(path, "/chat/history/"))
	case strings.HasPrefix(path, "/patient/") && r.Method == http.MethodGet:
		s.handlePatient(w, r, strings.TrimPrefix(path, "/patient/"))
	case strings.HasPrefix(path, "/ui/") && r.Method == http.MethodGet:
		s.handleChatPage(w, r, strings.TrimPrefix(path, "/ui/"))
	case path == "/health" && r.Method == http.MethodGet:
		s.handleHealth(w, r)
	case path == "/" && r.Method == http.MethodGet:
		s.handleRoot(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleChat runs the pipeline for one incoming message and persists the
// appended turns. Persistence failures are logged, not surfaced: the reply
// was already generated and the patient should receive it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pkg.ChatRequest
	if err := s.validator.decode(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		u := uuid.New()
		threadID = fmt.Sprintf("thread-%s-%x", req.UserID, u[:4])
	}

	prior, err := s.Store.PriorHistory(ctx, req.UserID, historyWindow)
	if err != nil {
		s.Log.Error("failed to load prior history", zap.String("user_id", req.UserID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load conversation history")
		return
	}

	st, err := s.Runner.Run(ctx, req.UserID, threadID, req.Message, prior)
	if err != nil {
		if agent.IsInvalidInput(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Log.Error("pipeline run failed", zap.String("user_id", req.UserID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to process chat request")
		return
	}

	if err := s.Store.SaveRun(ctx, st.UserID, st.ThreadID, req.Message, st.LastReply); err != nil {
		s.Log.Error("failed to persist run", zap.String("user_id", st.UserID), zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, pkg.ChatResponse{
		Reply:     st.LastReply,
		Escalated: st.Escalated,
		UserID:    st.UserID,
		ThreadID:  st.ThreadID,
		Profile:   st.Profile,
	})
}

// handlePatient returns the resolved profile without generating a reply,
// for front-end display and debugging. Lookup failures degrade the same
// way a run would.
func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	profile, err := s.Provider.Resolve(r.Context(), userID)
	if err != nil {
		profile = agent.DegradedProfile(err)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"profile":   profile,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHistory returns a user's recent messages, newest last.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	messages, err := s.Store.History(r.Context(), userID, limit)
	if err != nil {
		s.Log.Error("failed to load history", zap.String("user_id", userID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load conversation history")
		return
	}
	if messages == nil {
		messages = []pkg.StoredMessage{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"messages": messages,
	})
}

// handleChatPage renders the embedded chat UI for a user.
func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		http.NotFound(w, r)
		return
	}
	data := struct{ UserID string }{UserID: userID}
	if err := s.Templates.ExecuteTemplate(w, "chat.html", data); err != nil {
		s.Log.Error("failed to render chat page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, pkg.HealthResponse{
		Status:  "healthy",
		Message: "Careline Chatbot API is running",
		Version: Version,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Careline Chatbot API",
		"version": Version,
		"health":  "/health",
	})
}

// applyCORS mirrors the request origin when it is allowed. "*" in the
// configured list allows every origin.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range s.Origins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Vary", "Origin")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"error": detail})
}
