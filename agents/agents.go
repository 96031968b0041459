// Package agents implements the specialized sales agents the engine
// dispatches to.
//
// Every agent reads its payload from core.Input, talks to its collaborators
// (LLM, transcriber, embedder, scheduler), and publishes what it learned to
// the shared blackboard under a well-known context key so the others can
// build on it. Errors are returned, never swallowed; the engine turns them
// into error envelopes.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/scheduler"
	"github.com/becomeliminal/salesdesk/store"
	"github.com/becomeliminal/salesdesk/transcribe"
)

// ErrInvalidInput is returned when a payload lacks a required field.
var ErrInvalidInput = errors.New("invalid input")

// Deps holds the collaborators shared by all agents. Store and Scheduler
// are optional; without a Scheduler the follow-up agent is not registered.
type Deps struct {
	Memory      *memory.SharedMemory
	LLM         llm.Client
	Embedder    memory.Embedder
	Transcriber transcribe.Transcriber
	Store       *store.Store
	Scheduler   *scheduler.Scheduler
}

func (d Deps) validate() error {
	switch {
	case d.Memory == nil:
		return errors.New("agents: shared memory is required")
	case d.LLM == nil:
		return errors.New("agents: llm client is required")
	case d.Embedder == nil:
		return errors.New("agents: embedder is required")
	case d.Embedder.Dimensions() != d.Memory.Dimension():
		return fmt.Errorf("agents: embedder produces %d dimensions, memory expects %d",
			d.Embedder.Dimensions(), d.Memory.Dimension())
	}
	return nil
}

// Set is every agent built from one Deps.
type Set struct {
	MeetingSummary     *MeetingSummary
	LeadScoring        *LeadScoring
	LeadRecommendation *LeadRecommendation
	ProposalDrafting   *ProposalDrafting
	FollowUp           *FollowUp
}

// New builds the agents.
func New(d Deps) (*Set, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	s := &Set{
		LeadScoring:        NewLeadScoring(d.Memory, d.LLM),
		LeadRecommendation: NewLeadRecommendation(d.Memory, d.LLM, d.Embedder, d.Store),
		ProposalDrafting:   NewProposalDrafting(d.Memory, d.LLM),
	}
	if d.Transcriber != nil {
		s.MeetingSummary = NewMeetingSummary(d.Memory, d.LLM, d.Embedder, d.Transcriber, d.Store)
	}
	if d.Scheduler != nil {
		s.FollowUp = NewFollowUp(d.Memory, d.Scheduler)
	}
	return s, nil
}

// Register binds each built agent to its task in reg.
func (s *Set) Register(reg *engine.Registry) error {
	bindings := []struct {
		task  core.TaskType
		agent core.Agent
		ok    bool
	}{
		{core.TaskMeetingSummary, s.MeetingSummary, s.MeetingSummary != nil},
		{core.TaskLeadScoring, s.LeadScoring, s.LeadScoring != nil},
		{core.TaskLeadRecommendation, s.LeadRecommendation, s.LeadRecommendation != nil},
		{core.TaskProposalDrafting, s.ProposalDrafting, s.ProposalDrafting != nil},
		{core.TaskFollowUp, s.FollowUp, s.FollowUp != nil},
	}
	for _, b := range bindings {
		if !b.ok {
			continue
		}
		if err := reg.Register(b.task, b.agent); err != nil {
			return err
		}
	}
	return nil
}

// publish stores v on the blackboard under key.
func publish(mem *memory.SharedMemory, key string, v any) error {
	doc, err := core.NewDocument(v)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	mem.StoreContext(key, doc)
	return nil
}

// contextText returns a string field of the document stored under key, or
// "" when the key or field is absent.
func contextText(mem *memory.SharedMemory, key, field string) string {
	doc, ok := mem.GetContext(key)
	if !ok {
		return ""
	}
	s, _ := doc.Field(field).(string)
	return s
}

// embedOne embeds text and indexes it with metadata, returning the record id.
func embedOne(ctx context.Context, mem *memory.SharedMemory, emb memory.Embedder, text string, metadata map[string]any) (int, error) {
	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	doc, err := core.NewDocument(metadata)
	if err != nil {
		return 0, err
	}
	ids, err := mem.AddVectors(ctx, [][]float32{vec}, []core.Document{doc})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func agentLogger(name string) *log.Logger {
	return log.Default().WithPrefix(name)
}
