package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
)

// ErrNoProposal is returned when neither prompt produced a draft.
var ErrNoProposal = errors.New("failed to generate proposal")

// contextExcerpt bounds how much of each blackboard entry goes into the prompt.
const contextExcerpt = 300

const proposalPrompt = `Create a sales proposal%s with the following sections:

Client Requirements:
%s

Context:
%s
%s

Format:
1. Executive Summary
2. Solution Overview
3. Implementation Plan
4. Pricing & Timeline

Use markdown formatting.`

const fallbackProposalPrompt = `Create a brief sales proposal addressing:
%s

Include: Features, Implementation, and Pricing.`

// ProposalDrafting drafts a proposal from the requirements and whatever the
// meeting and lead agents last published.
type ProposalDrafting struct {
	mem *memory.SharedMemory
	llm llm.Client
	now func() time.Time
	log *log.Logger
}

// NewProposalDrafting creates the agent.
func NewProposalDrafting(mem *memory.SharedMemory, client llm.Client) *ProposalDrafting {
	return &ProposalDrafting{
		mem: mem,
		llm: client,
		now: time.Now,
		log: agentLogger("proposal_drafting"),
	}
}

func (a *ProposalDrafting) Name() string { return "proposal_drafting" }

func (a *ProposalDrafting) Capabilities() core.Capabilities {
	return core.Capabilities{
		Description: "Drafts a markdown sales proposal using the latest meeting summary and lead suggestions.",
		InputSchema: core.WithTaskOverride(core.BuildSchema(map[string]any{
			"requirements": core.StringProperty("Client requirements"),
			"client_name":  core.StringProperty("Client the proposal is for"),
		}, "requirements")),
	}
}

// Execute drafts the proposal, retrying once with a simpler prompt.
func (a *ProposalDrafting) Execute(ctx context.Context, in core.Input) (core.Result, error) {
	requirements := in.Text(core.KeyRequirements)
	client := in.String("client_name")

	meeting := contextText(a.mem, memory.KeyMeetingSummary, "summary")
	leads := contextText(a.mem, memory.KeyLeadSuggestions, "suggestions")

	meetingCtx := "No meeting context"
	if meeting != "" {
		meetingCtx = truncate(meeting, contextExcerpt)
	}
	leadCtx := "No lead analysis"
	if leads != "" {
		leadCtx = truncate(leads, contextExcerpt)
	}
	forClient := ""
	if client != "" {
		forClient = " for " + client
	}

	draft, err := a.llm.Query(ctx, fmt.Sprintf(proposalPrompt, forClient, requirements, meetingCtx, leadCtx))
	if err != nil || unusable(draft) {
		a.log.Warn("proposal draft unusable, retrying with fallback prompt", "error", err)
		draft, err = a.llm.Query(ctx, fmt.Sprintf(fallbackProposalPrompt, requirements))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoProposal, err)
		}
	}
	if strings.TrimSpace(draft) == "" {
		return nil, ErrNoProposal
	}

	timestamp := a.now().UTC().Format(time.RFC3339)
	if err := publish(a.mem, memory.KeyProposal, map[string]any{
		"draft":        draft,
		"requirements": requirements,
		"client_name":  client,
		"timestamp":    timestamp,
	}); err != nil {
		return nil, err
	}

	a.log.Info("proposal drafted", "client", client, "chars", len(draft))
	return core.Result{
		"proposal": draft,
		"context": map[string]any{
			"timestamp":        timestamp,
			"based_on_meeting": meeting != "",
			"based_on_leads":   leads != "",
		},
	}, nil
}

// unusable reports whether a reply is empty or an error message the model
// server passed through as text.
func unusable(reply string) bool {
	reply = strings.TrimSpace(reply)
	return reply == "" || strings.HasPrefix(reply, "Error")
}
