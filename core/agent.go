package core

import "context"

// Result is the JSON-like value an agent returns on success.
type Result map[string]any

// Agent executes one kind of task.
//
// Agents read and write SharedMemory as a side channel; the orchestrator only
// sees the Result or the error. Returning an error (or panicking) turns into
// an error envelope for that request and nothing else.
type Agent interface {
	// Name identifies the agent in logs and in GET /agents.
	Name() string

	// Capabilities describes the payload the agent understands.
	Capabilities() Capabilities

	// Execute runs the task.
	Execute(ctx context.Context, input Input) (Result, error)
}

// Capabilities describes an agent for discovery.
type Capabilities struct {
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}
