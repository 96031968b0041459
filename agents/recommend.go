package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/store"
)

const defaultTopK = 5

const rationalePrompt = `A sales team is looking for leads matching these requirements:
%s

The closest leads in our pipeline are:
%s
Explain in three short bullet points why these leads fit and which one to contact first.`

// Lead is a lead submitted for indexing.
type Lead struct {
	CompanyName     string         `json:"company_name"`
	Industry        string         `json:"industry,omitempty"`
	SizeRange       string         `json:"size_range,omitempty"`
	PainPoints      string         `json:"pain_points,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	Source          string         `json:"source,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
}

// Description is the text embedded for the lead.
func (l Lead) Description() string {
	parts := []string{l.CompanyName}
	for _, p := range []string{l.Industry, l.SizeRange, l.PainPoints} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ". ")
}

// Match is one recommended lead.
type Match struct {
	RecordID int            `json:"record_id"`
	Score    float64        `json:"score"`
	Lead     map[string]any `json:"lead,omitempty"`
}

// LeadRecommendation finds indexed leads similar to a set of requirements.
type LeadRecommendation struct {
	mem      *memory.SharedMemory
	llm      llm.Client
	embedder memory.Embedder
	store    *store.Store // Optional
	log      *log.Logger
}

// NewLeadRecommendation creates the agent. st may be nil.
func NewLeadRecommendation(mem *memory.SharedMemory, client llm.Client, emb memory.Embedder, st *store.Store) *LeadRecommendation {
	return &LeadRecommendation{
		mem:      mem,
		llm:      client,
		embedder: emb,
		store:    st,
		log:      agentLogger("lead_recommendation"),
	}
}

func (a *LeadRecommendation) Name() string { return "lead_recommendation" }

func (a *LeadRecommendation) Capabilities() core.Capabilities {
	return core.Capabilities{
		Description: "Recommends indexed leads similar to the given requirements.",
		InputSchema: core.WithTaskOverride(core.BuildSchema(map[string]any{
			"requirements": core.StringProperty("What the ideal lead looks like"),
			"query_vector": core.ArrayProperty("Precomputed query embedding", core.NumberProperty("")),
			"top_k":        core.IntegerProperty("Number of leads to return (default 5)"),
		})),
	}
}

// Execute searches the index with the embedded requirements (or a given
// query vector) and asks the model to explain the matches.
func (a *LeadRecommendation) Execute(ctx context.Context, in core.Input) (core.Result, error) {
	topK := in.Int("top_k", defaultTopK)
	v := valgo.Is(valgo.Int(topK, "top_k").GreaterThan(0))
	if !v.Valid() {
		return nil, fmt.Errorf("%w: top_k must be positive", ErrInvalidInput)
	}

	requirements := in.Text(core.KeyRequirements)
	query, err := a.queryVector(ctx, in, requirements)
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return core.Result{"matches": []Match{}, "suggestions": ""}, nil
	}

	// Meeting summaries share the index, so rank everything and keep the
	// first topK leads.
	hits, err := a.mem.SearchVectors(ctx, query, max(topK, a.mem.VectorCount()))
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, topK)
	for _, h := range hits {
		if len(matches) == topK {
			break
		}
		fields, _ := h.Metadata.Map()
		if t, _ := fields["type"].(string); t != "" && t != "lead" {
			continue
		}
		matches = append(matches, Match{RecordID: h.ID, Score: h.Score, Lead: fields})
	}

	suggestions := ""
	if len(matches) > 0 && requirements != "" {
		suggestions, err = a.llm.Query(ctx, fmt.Sprintf(rationalePrompt, requirements, formatMatches(matches)))
		if err != nil {
			// Matches are still useful without the explanation.
			a.log.Warn("rationale failed", "error", err)
			suggestions = ""
		}
	}

	if err := publish(a.mem, memory.KeyLeadSuggestions, map[string]any{
		"requirements": requirements,
		"matches":      matches,
		"suggestions":  suggestions,
	}); err != nil {
		return nil, err
	}

	a.log.Info("leads recommended", "matches", len(matches), "top_k", topK)
	return core.Result{"matches": matches, "suggestions": suggestions}, nil
}

func (a *LeadRecommendation) queryVector(ctx context.Context, in core.Input, requirements string) ([]float32, error) {
	if in.Has("query_vector") {
		switch raw := in["query_vector"].(type) {
		case []float32:
			return raw, nil
		case []float64:
			vec := make([]float32, len(raw))
			for i, x := range raw {
				vec[i] = float32(x)
			}
			return vec, nil
		case []any:
			vec := make([]float32, len(raw))
			for i, x := range raw {
				f, ok := x.(float64)
				if !ok {
					return nil, fmt.Errorf("%w: query_vector[%d] is not a number", ErrInvalidInput, i)
				}
				vec[i] = float32(f)
			}
			return vec, nil
		default:
			return nil, fmt.Errorf("%w: query_vector must be an array of numbers", ErrInvalidInput)
		}
	}

	v := valgo.Is(valgo.String(requirements, "requirements").Not().Blank())
	if !v.Valid() {
		return nil, fmt.Errorf("%w: requirements or query_vector is required", ErrInvalidInput)
	}
	vec, err := a.embedder.Embed(ctx, requirements)
	if err != nil {
		return nil, fmt.Errorf("embed requirements: %w", err)
	}
	return vec, nil
}

// IndexLead embeds a lead, adds it to the vector index and, when a store is
// configured, persists it. It returns the vector record id and the stored
// lead id ("" without a store).
func (a *LeadRecommendation) IndexLead(ctx context.Context, l Lead) (int, string, error) {
	v := valgo.Is(valgo.String(l.CompanyName, "company_name").Not().Blank())
	if !v.Valid() {
		return 0, "", fmt.Errorf("%w: company_name is required", ErrInvalidInput)
	}

	meta := map[string]any{
		"type":         "lead",
		"company_name": l.CompanyName,
	}
	for k, val := range map[string]string{"industry": l.Industry, "size_range": l.SizeRange, "pain_points": l.PainPoints} {
		if val != "" {
			meta[k] = val
		}
	}

	recordID, err := embedOne(ctx, a.mem, a.embedder, l.Description(), meta)
	if err != nil {
		return 0, "", fmt.Errorf("index lead: %w", err)
	}

	leadID := ""
	if a.store != nil {
		sl := &store.Lead{
			CompanyName:     l.CompanyName,
			Industry:        l.Industry,
			SizeRange:       l.SizeRange,
			PainPoints:      l.PainPoints,
			Details:         l.Details,
			Source:          l.Source,
			ConfidenceScore: l.ConfidenceScore,
			VectorID:        recordID,
		}
		if err := a.store.AddLead(ctx, sl); err != nil {
			return recordID, "", fmt.Errorf("persist lead: %w", err)
		}
		leadID = sl.ID
	}

	a.log.Debug("lead indexed", "company", l.CompanyName, "record_id", recordID)
	return recordID, leadID, nil
}

func formatMatches(matches []Match) string {
	var sb strings.Builder
	for i, m := range matches {
		name, _ := m.Lead["company_name"].(string)
		if name == "" {
			name = fmt.Sprintf("record %d", m.RecordID)
		}
		fmt.Fprintf(&sb, "%d. %s (score %.2f)", i+1, name, m.Score)
		if ind, _ := m.Lead["industry"].(string); ind != "" {
			fmt.Fprintf(&sb, ", %s", ind)
		}
		if pp, _ := m.Lead["pain_points"].(string); pp != "" {
			fmt.Fprintf(&sb, ", pain points: %s", pp)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
