package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Input is the payload handed to the orchestrator and, unchanged, to the
// agent that handles it. Keys follow the HTTP API: "task", "audio",
// "lead_info", "requirements", and so on.
type Input map[string]any

// Well-known input keys.
const (
	KeyTask         = "task"
	KeyAudio        = "audio"
	KeyAudioPath    = "audio_path"
	KeyLeadInfo     = "lead_info"
	KeyLeads        = "leads"
	KeyRequirements = "requirements"
)

// Has reports whether key is present with a non-nil value.
func (in Input) Has(key string) bool {
	v, ok := in[key]
	return ok && v != nil
}

// String returns the value at key if it is a string.
func (in Input) String(key string) string {
	s, _ := in[key].(string)
	return s
}

// Text returns the value at key as text. Strings are returned as-is, other
// values as their JSON encoding.
func (in Input) Text(key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// Int returns the value at key as an int, or def when it is missing or not
// numeric. JSON numbers arrive as float64 and are truncated.
func (in Input) Int(key string, def int) int {
	switch v := in[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Decode copies the payload into a typed struct using its json tags.
func (in Input) Decode(into any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

// WithTask returns a shallow copy of the input with the task field set.
func (in Input) WithTask(task TaskType) Input {
	out := make(Input, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[KeyTask] = string(task)
	return out
}
