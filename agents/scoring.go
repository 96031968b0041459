package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
)

const scorePrompt = "Score the following lead based on engagement and activity:\n" +
	"Name: %s, Engagement: %s, Activity: %s\n" +
	"Answer with a score from 0 to 100 followed by a one sentence justification."

// LeadInfo is one lead as submitted for scoring.
type LeadInfo struct {
	Name       string `json:"name"`
	Engagement any    `json:"engagement"`
	Activity   any    `json:"activity"`
}

// LeadScore is the scoring outcome for one lead. Score is nil when the
// model's reply held no number in range.
type LeadScore struct {
	Name     string   `json:"name"`
	Score    *float64 `json:"score"`
	Analysis string   `json:"analysis"`
}

// LeadScoring asks the model to score each lead.
type LeadScoring struct {
	mem *memory.SharedMemory
	llm llm.Client
	log *log.Logger
}

// NewLeadScoring creates the agent.
func NewLeadScoring(mem *memory.SharedMemory, client llm.Client) *LeadScoring {
	return &LeadScoring{mem: mem, llm: client, log: agentLogger("lead_scoring")}
}

func (a *LeadScoring) Name() string { return "lead_scoring" }

func (a *LeadScoring) Capabilities() core.Capabilities {
	lead := core.ObjectSchema(map[string]any{
		"name":       core.StringProperty("Lead or company name"),
		"engagement": core.StringProperty("Engagement level or notes"),
		"activity":   core.StringProperty("Recent activity"),
	}, "name")
	return core.Capabilities{
		Description: "Scores leads from 0 to 100 by engagement and activity.",
		InputSchema: core.WithTaskOverride(core.BuildSchema(map[string]any{
			"lead_info": lead,
			"leads":     core.ArrayProperty("Leads to score", lead),
		})),
	}
}

// Execute scores every lead in lead_info (one object or a list) and leads.
func (a *LeadScoring) Execute(ctx context.Context, in core.Input) (core.Result, error) {
	leads, err := decodeLeads(in)
	if err != nil {
		return nil, err
	}

	scores := make([]LeadScore, 0, len(leads))
	for _, l := range leads {
		reply, err := a.llm.Query(ctx, fmt.Sprintf(scorePrompt, l.Name, text(l.Engagement), text(l.Activity)))
		if err != nil {
			return nil, fmt.Errorf("score lead %q: %w", l.Name, err)
		}
		scores = append(scores, LeadScore{
			Name:     l.Name,
			Score:    parseScore(reply),
			Analysis: reply,
		})
	}

	if err := publish(a.mem, memory.KeyLeadScores, map[string]any{"scores": scores}); err != nil {
		return nil, err
	}

	a.log.Info("leads scored", "count", len(scores))
	return core.Result{"scores": scores}, nil
}

func decodeLeads(in core.Input) ([]LeadInfo, error) {
	var leads []LeadInfo

	for _, key := range []string{core.KeyLeadInfo, core.KeyLeads} {
		if !in.Has(key) {
			continue
		}
		raw, err := json.Marshal(in[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, key, err)
		}

		var list []LeadInfo
		if len(raw) > 0 && raw[0] == '[' {
			err = json.Unmarshal(raw, &list)
		} else {
			var one LeadInfo
			err = json.Unmarshal(raw, &one)
			list = []LeadInfo{one}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, key, err)
		}
		leads = append(leads, list...)
	}

	for i, l := range leads {
		if l.Name == "" {
			return nil, fmt.Errorf("%w: lead %d has no name", ErrInvalidInput, i)
		}
	}
	return leads, nil
}

var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseScore returns the first number in [0, 100] found in reply.
func parseScore(reply string) *float64 {
	for _, m := range scorePattern.FindAllString(reply, -1) {
		f, err := strconv.ParseFloat(m, 64)
		if err == nil && f >= 0 && f <= 100 {
			return &f
		}
	}
	return nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return "unknown"
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
