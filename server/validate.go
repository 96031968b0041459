package server

import (
	"github.com/cohesivestack/valgo"

	"github.com/becomeliminal/salesdesk/core"
)

// Per-route body checks. Deeper validation is left to the agents, which
// report failures as error envelopes.

func requireMeeting(in core.Input) *valgo.Validation {
	path := in.String(core.KeyAudioPath)
	if path == "" {
		path = in.String(core.KeyAudio)
	}
	return valgo.Is(valgo.String(path, "audio_path").Not().Blank())
}

func requireSuggestions(in core.Input) *valgo.Validation {
	if in.Has("query_vector") {
		return valgo.Is(valgo.Int(in.Int("top_k", 1), "top_k").GreaterThan(0))
	}
	return valgo.Is(valgo.String(in.Text(core.KeyRequirements), "requirements").Not().Blank()).
		Is(valgo.Int(in.Int("top_k", 1), "top_k").GreaterThan(0))
}

func requireLeads(in core.Input) *valgo.Validation {
	return valgo.Is(valgo.Bool(in.Has(core.KeyLeads) || in.Has(core.KeyLeadInfo), "leads").True())
}

func requireProposal(in core.Input) *valgo.Validation {
	return valgo.Is(valgo.String(in.Text(core.KeyRequirements), "requirements").Not().Blank())
}

func requireFollowUp(in core.Input) *valgo.Validation {
	return valgo.Is(valgo.String(in.Text("lead_id"), "lead_id").Not().Blank()).
		Is(valgo.String(in.String("follow_up_time"), "follow_up_time").Not().Blank())
}
