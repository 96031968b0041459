package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/salesdesk/core"
)

func TestInput_Accessors(t *testing.T) {
	in := core.Input{
		"requirements": "Draft a proposal",
		"top_k":        float64(3),
		"count":        "7",
		"lead_info":    map[string]any{"name": "Acme"},
		"nothing":      nil,
	}

	assert.True(t, in.Has("requirements"))
	assert.False(t, in.Has("nothing"))
	assert.False(t, in.Has("absent"))

	assert.Equal(t, "Draft a proposal", in.String("requirements"))
	assert.Equal(t, "", in.String("lead_info"))
	assert.JSONEq(t, `{"name":"Acme"}`, in.Text("lead_info"))

	assert.Equal(t, 3, in.Int("top_k", 5))
	assert.Equal(t, 7, in.Int("count", 5))
	assert.Equal(t, 5, in.Int("absent", 5))
}

func TestInput_Decode(t *testing.T) {
	var req struct {
		LeadID  int    `json:"lead_id"`
		Message string `json:"message"`
	}
	in := core.Input{"lead_id": float64(12), "message": "ping"}
	require.NoError(t, in.Decode(&req))
	assert.Equal(t, 12, req.LeadID)
	assert.Equal(t, "ping", req.Message)
}

func TestInput_WithTask(t *testing.T) {
	in := core.Input{"requirements": "x"}
	out := in.WithTask(core.TaskProposalDrafting)

	assert.Equal(t, "proposal_drafting", out["task"])
	assert.NotContains(t, in, "task")
}

func TestParseTaskType(t *testing.T) {
	tt, known := core.ParseTaskType("lead_scoring")
	assert.True(t, known)
	assert.Equal(t, core.TaskLeadScoring, tt)

	tt, known = core.ParseTaskType("churn_forecast")
	assert.False(t, known)
	assert.Equal(t, core.TaskType("churn_forecast"), tt)
}

func TestBuildSchema_AddsTaskOverride(t *testing.T) {
	schema := core.BuildSchema(map[string]any{
		"requirements": core.StringProperty("Client requirements"),
	}, "requirements")

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "requirements")
	assert.Contains(t, props, "task")
	assert.Equal(t, []string{"requirements"}, schema["required"])
}
