package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/becomeliminal/salesdesk/core"
)

// Engine is the orchestrator. It classifies an input, dispatches it to the
// registered agent and wraps the outcome in an Envelope. Execute never
// returns an error and never panics; every outcome is an envelope.
//
// The engine does not touch SharedMemory itself. Agents do.
type Engine struct {
	router   *Router
	registry *Registry
	audit    AuditLogger // Optional: persists every finished run
	log      *log.Logger
	now      func() time.Time
	newID    func() string
}

// AuditLogger records finished runs. Failures to record are logged and
// otherwise ignored.
type AuditLogger interface {
	LogRun(ctx context.Context, env *Envelope) error
}

// Option configures the engine.
type Option func(*Engine)

// WithRouter replaces the default router.
func WithRouter(r *Router) Option {
	return func(e *Engine) {
		e.router = r
	}
}

// WithAudit sets the audit logger.
func WithAudit(a AuditLogger) Option {
	return func(e *Engine) {
		e.audit = a
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock sets the clock used for envelope timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRequestIDs sets the request id generator. Default: uuid v4.
func WithRequestIDs(next func() string) Option {
	return func(e *Engine) {
		e.newID = next
	}
}

// NewEngine creates an engine dispatching to the agents in registry.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.router == nil {
		e.router = NewRouter()
	}
	if e.log == nil {
		e.log = log.Default().WithPrefix("engine")
	}
	return e
}

// Registry returns the engine's agent registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Router returns the engine's router.
func (e *Engine) Router() *Router {
	return e.router
}

// Execute runs one task end to end.
func (e *Engine) Execute(ctx context.Context, input core.Input) *Envelope {
	start := e.now()
	requestID := e.newID()
	logger := e.log.With("request_id", requestID)

	logger.Debug("task state", "state", StateReceived)

	task := e.router.Classify(input)
	logger.Debug("task state", "state", StateClassified, "task", task)

	var env *Envelope
	agent, ok := e.registry.Lookup(task)
	if !ok {
		err := fmt.Errorf("%w: no agent registered for %s", ErrUnregisteredTask, task)
		env = e.failure(task, err, requestID, start)
	} else {
		logger.Debug("task state", "state", StateDispatched, "task", task, "agent", agent.Name())
		result, err := e.dispatch(ctx, task, agent, input)
		if err != nil {
			env = e.failure(task, err, requestID, start)
		} else {
			env = e.success(task, result, requestID, start)
		}
	}

	if env.Status == StatusSuccess {
		logger.Info("task succeeded", "state", StateSucceeded, "task", task, "duration_ms", env.Metadata.DurationMS)
	} else {
		logger.Warn("task failed", "state", StateFailed, "task", task, "error", env.Message)
	}

	if e.audit != nil {
		if err := e.audit.LogRun(context.WithoutCancel(ctx), env); err != nil {
			logger.Error("audit log failed", "error", err)
		}
	}
	return env
}

// dispatch invokes the agent, converting errors and panics into a
// HandlerError.
func (e *Engine) dispatch(ctx context.Context, task core.TaskType, agent core.Agent, input core.Input) (result core.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			e.log.Error("agent panicked", "task", task, "panic", v)
			result = nil
			err = &HandlerError{Task: task, Err: panicError(v)}
		}
	}()

	result, err = agent.Execute(ctx, input)
	if err != nil {
		return nil, &HandlerError{Task: task, Err: err}
	}
	return result, nil
}

func (e *Engine) success(task core.TaskType, result core.Result, requestID string, start time.Time) *Envelope {
	if result == nil {
		result = core.Result{}
	}
	return &Envelope{
		Status:   StatusSuccess,
		TaskType: task,
		Result:   result,
		Metadata: e.metadata(requestID, start),
	}
}

func (e *Engine) failure(task core.TaskType, err error, requestID string, start time.Time) *Envelope {
	return &Envelope{
		Status:   StatusError,
		TaskType: task,
		Message:  err.Error(),
		Metadata: e.metadata(requestID, start),
		Err:      err,
	}
}

func (e *Engine) metadata(requestID string, start time.Time) Metadata {
	end := e.now()
	return Metadata{
		Timestamp:  end.UTC().Format(time.RFC3339Nano),
		RequestID:  requestID,
		DurationMS: end.Sub(start).Milliseconds(),
	}
}

// IsUnregistered reports whether env failed because no agent was found.
func IsUnregistered(env *Envelope) bool {
	return env != nil && errors.Is(env.Err, ErrUnregisteredTask)
}
