package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/scheduler"
	"github.com/becomeliminal/salesdesk/store"
)

// FollowUp schedules a message to a lead for later delivery.
type FollowUp struct {
	mem       *memory.SharedMemory
	scheduler *scheduler.Scheduler
	log       *log.Logger
}

// NewFollowUp creates the agent.
func NewFollowUp(mem *memory.SharedMemory, s *scheduler.Scheduler) *FollowUp {
	return &FollowUp{mem: mem, scheduler: s, log: agentLogger("follow_up")}
}

func (a *FollowUp) Name() string { return "follow_up" }

func (a *FollowUp) Capabilities() core.Capabilities {
	return core.Capabilities{
		Description: "Schedules a follow-up message to a lead.",
		InputSchema: core.WithTaskOverride(core.BuildSchema(map[string]any{
			"lead_id":        core.StringProperty("Lead to follow up with"),
			"follow_up_time": core.StringProperty("When to follow up (RFC 3339)"),
			"message":        core.StringProperty("Message to send"),
		}, "lead_id", "follow_up_time")),
	}
}

// Execute persists the follow-up with the scheduler.
func (a *FollowUp) Execute(ctx context.Context, in core.Input) (core.Result, error) {
	leadID := in.Text("lead_id")
	when := in.String("follow_up_time")

	v := valgo.Is(valgo.String(leadID, "lead_id").Not().Blank()).
		Is(valgo.String(when, "follow_up_time").Not().Blank())
	if !v.Valid() {
		return nil, fmt.Errorf("%w: lead_id and follow_up_time are required", ErrInvalidInput)
	}

	dueAt, err := time.Parse(time.RFC3339, when)
	if err != nil {
		return nil, fmt.Errorf("%w: follow_up_time: %v", ErrInvalidInput, err)
	}

	f := &store.FollowUp{
		LeadID:  leadID,
		Message: in.String("message"),
		DueAt:   dueAt,
	}
	if err := a.scheduler.Schedule(ctx, f); err != nil {
		return nil, err
	}

	due := f.DueAt.UTC().Format(time.RFC3339)
	if err := publish(a.mem, memory.KeyFollowUp, map[string]any{
		"follow_up_id": f.ID,
		"lead_id":      f.LeadID,
		"due_at":       due,
		"message":      f.Message,
		"status":       f.Status,
	}); err != nil {
		return nil, err
	}

	a.log.Debug("follow-up published", "id", f.ID, "lead_id", f.LeadID)
	return core.Result{
		"follow_up_id": f.ID,
		"lead_id":      f.LeadID,
		"due_at":       due,
		"status":       "scheduled",
	}, nil
}
