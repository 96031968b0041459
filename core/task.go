package core

// TaskType identifies which agent handles an input.
//
// The constants below are the closed set of built-in kinds. Any other
// non-empty name is an extension task and must be registered explicitly.
type TaskType string

const (
	TaskMeetingSummary     TaskType = "meeting_summary"
	TaskLeadScoring        TaskType = "lead_scoring"
	TaskLeadRecommendation TaskType = "lead_recommendation"
	TaskProposalDrafting   TaskType = "proposal_drafting"
	TaskFollowUp           TaskType = "follow_up"
)

// KnownTasks lists the built-in task kinds.
var KnownTasks = []TaskType{
	TaskMeetingSummary,
	TaskLeadScoring,
	TaskLeadRecommendation,
	TaskProposalDrafting,
	TaskFollowUp,
}

// ParseTaskType converts a name into a TaskType. The second result reports
// whether the name is one of the built-in kinds.
func ParseTaskType(name string) (TaskType, bool) {
	t := TaskType(name)
	return t, t.Known()
}

// Known reports whether t is a built-in task kind.
func (t TaskType) Known() bool {
	for _, k := range KnownTasks {
		if t == k {
			return true
		}
	}
	return false
}

func (t TaskType) String() string {
	return string(t)
}
