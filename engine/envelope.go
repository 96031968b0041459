package engine

import (
	"encoding/json"

	"github.com/becomeliminal/salesdesk/core"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a step of a run. A run moves received, classified, dispatched and
// ends in succeeded or failed. The engine never retries.
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Envelope is the uniform result of Engine.Execute. Success envelopes
// always carry a result object, error envelopes never do.
type Envelope struct {
	Status   Status        `json:"status"`
	TaskType core.TaskType `json:"task_type,omitempty"`
	Result   core.Result   `json:"result"`
	Message  string        `json:"message,omitempty"`
	Metadata Metadata      `json:"metadata"`

	// Err is the underlying error for error envelopes. Not serialized.
	Err error `json:"-"`
}

// Metadata is attached to every envelope.
type Metadata struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	DurationMS int64  `json:"duration_ms"`
}

// OK reports whether the run succeeded.
func (env *Envelope) OK() bool {
	return env.Status == StatusSuccess
}

type envelopeJSON struct {
	Status   Status        `json:"status"`
	TaskType core.TaskType `json:"task_type,omitempty"`
	Result   *core.Result  `json:"result,omitempty"`
	Message  string        `json:"message,omitempty"`
	Metadata Metadata      `json:"metadata"`
}

func (env Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		Status:   env.Status,
		TaskType: env.TaskType,
		Message:  env.Message,
		Metadata: env.Metadata,
	}
	if env.OK() {
		result := env.Result
		if result == nil {
			result = core.Result{}
		}
		out.Result = &result
	}
	return json.Marshal(out)
}
