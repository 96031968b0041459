// Package server exposes the engine over HTTP, a WebSocket task stream and a
// gRPC health service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"
	"github.com/gorilla/websocket"

	"github.com/becomeliminal/salesdesk/agents"
	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/memory"
)

// maxBodyBytes bounds request bodies and WebSocket frames.
const maxBodyBytes = 1 << 20

// LeadIndexer adds leads to the recommendation index.
type LeadIndexer interface {
	IndexLead(ctx context.Context, l agents.Lead) (recordID int, leadID string, err error)
}

// Server serves the HTTP API.
type Server struct {
	engine   *engine.Engine
	mem      *memory.SharedMemory
	leads    LeadIndexer // Optional
	upgrader websocket.Upgrader
	log      *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLeadIndexer enables POST /leads.
func WithLeadIndexer(ix LeadIndexer) Option {
	return func(s *Server) {
		s.leads = ix
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithCheckOrigin overrides the WebSocket origin check. The default only
// accepts same-host origins.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates a Server.
func New(e *engine.Engine, mem *memory.SharedMemory, opts ...Option) *Server {
	s := &Server{
		engine: e,
		mem:    mem,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: log.Default().WithPrefix("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /tasks", s.handleTask("", nil))
	mux.HandleFunc("POST /process-meeting", s.handleTask(core.TaskMeetingSummary, requireMeeting))
	mux.HandleFunc("POST /lead-suggestions", s.handleTask(core.TaskLeadRecommendation, requireSuggestions))
	mux.HandleFunc("POST /score-leads", s.handleTask(core.TaskLeadScoring, requireLeads))
	mux.HandleFunc("POST /proposal", s.handleTask(core.TaskProposalDrafting, requireProposal))
	mux.HandleFunc("POST /follow-up", s.handleTask(core.TaskFollowUp, requireFollowUp))
	mux.HandleFunc("POST /leads", s.handleIndexLead)

	mux.HandleFunc("GET /context/{key}", s.handleContext)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.log.Info("http stopped")
	return nil
}

// validator checks a task body before it reaches the engine.
type validator func(in core.Input) *valgo.Validation

// handleTask runs the body through the engine. A non-empty task forces the
// routing decision.
func (s *Server) handleTask(task core.TaskType, validate validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in core.Input
		if err := decodeBody(w, r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if validate != nil {
			if v := validate(in); !v.Valid() {
				writeInvalid(w, v)
				return
			}
		}
		if task != "" {
			in = in.WithTask(task)
		}

		env := s.engine.Execute(r.Context(), in)
		writeJSON(w, envelopeStatus(env), env)
	}
}

func (s *Server) handleIndexLead(w http.ResponseWriter, r *http.Request) {
	if s.leads == nil {
		writeError(w, http.StatusNotImplemented, "lead indexing is not configured")
		return
	}

	var lead agents.Lead
	if err := decodeBody(w, r, &lead); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if v := valgo.Is(valgo.String(lead.CompanyName, "company_name").Not().Blank()); !v.Valid() {
		writeInvalid(w, v)
		return
	}

	recordID, leadID, err := s.leads.IndexLead(r.Context(), lead)
	if err != nil {
		s.log.Error("index lead failed", "company", lead.CompanyName, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":    engine.StatusSuccess,
		"record_id": recordID,
		"lead_id":   leadID,
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	entry, ok := s.mem.ContextEntry(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no context stored under %q", key))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type agentInfo struct {
	Task core.TaskType `json:"task"`
	Name string        `json:"name"`
	core.Capabilities
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	reg := s.engine.Registry()
	tasks := reg.Tasks()

	infos := make([]agentInfo, 0, len(tasks))
	for _, t := range tasks {
		a, ok := reg.Lookup(t)
		if !ok {
			continue
		}
		infos = append(infos, agentInfo{Task: t, Name: a.Name(), Capabilities: a.Capabilities()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":       infos,
		"default_task": s.engine.Router().DefaultTask(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"agents":   len(s.engine.Registry().Tasks()),
		"vectors":  s.mem.VectorCount(),
		"contexts": len(s.mem.ContextKeys()),
	})
}

// envelopeStatus maps an envelope to its HTTP status.
func envelopeStatus(env *engine.Envelope) int {
	if env.OK() {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status":  engine.StatusError,
		"message": msg,
	})
}

// writeInvalid reports failed body validation as field -> messages.
func writeInvalid(w http.ResponseWriter, v *valgo.Validation) {
	fields := make(map[string][]string)
	for name, e := range v.Errors() {
		fields[name] = e.Messages()
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"status":  engine.StatusError,
		"message": "invalid request body",
		"errors":  fields,
	})
}
