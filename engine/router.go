package engine

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/core"
)

// DefaultTask is used when no rule matches.
const DefaultTask = core.TaskLeadRecommendation

// proposalKeywords in the requirements text select proposal drafting over
// lead recommendation.
var proposalKeywords = []string{"proposal", "draft", "document"}

// Router classifies an input into exactly one task. Classification never
// fails: the first matching rule wins and the default catches the rest.
//
// Rules, in order:
//  1. a non-empty string "task" field is used verbatim
//  2. "audio" or "audio_path" routes to meeting_summary
//  3. "lead_info" routes to lead_scoring
//  4. "requirements" routes to proposal_drafting when its text mentions a
//     proposal keyword, otherwise to lead_recommendation
//  5. extension rules, in configuration order
//  6. the default task
type Router struct {
	defaultTask core.TaskType
	rules       []Rule
	log         *log.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDefaultTask overrides DefaultTask. Empty names are ignored.
func WithDefaultTask(task core.TaskType) RouterOption {
	return func(r *Router) {
		if task != "" {
			r.defaultTask = task
		}
	}
}

// WithRules appends compiled extension rules.
func WithRules(rules ...Rule) RouterOption {
	return func(r *Router) {
		r.rules = append(r.rules, rules...)
	}
}

// NewRouter creates a router with the built-in rule table.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		defaultTask: DefaultTask,
		log:         log.Default().WithPrefix("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultTask returns the task used when nothing matches.
func (r *Router) DefaultTask() core.TaskType {
	return r.defaultTask
}

// Classify returns the task for in.
func (r *Router) Classify(in core.Input) core.TaskType {
	if task := in.String(core.KeyTask); task != "" {
		return core.TaskType(task)
	}

	switch {
	case in.Has(core.KeyAudio), in.Has(core.KeyAudioPath):
		return core.TaskMeetingSummary
	case in.Has(core.KeyLeadInfo):
		return core.TaskLeadScoring
	case in.Has(core.KeyRequirements):
		if mentionsProposal(in.Text(core.KeyRequirements)) {
			return core.TaskProposalDrafting
		}
		return core.TaskLeadRecommendation
	}

	for _, rule := range r.rules {
		ok, err := rule.Match(in)
		if err != nil {
			r.log.Debug("rule skipped", "rule", rule.Name, "error", err)
			continue
		}
		if ok {
			return rule.Task
		}
	}

	return r.defaultTask
}

func mentionsProposal(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range proposalKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
