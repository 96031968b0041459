package agents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/store"
	"github.com/becomeliminal/salesdesk/transcribe"
)

const summaryPrompt = `Analyze the following meeting transcript and provide a structured summary:

Transcript:
%s

Please provide a summary with the following sections:
1. Meeting Overview
2. Key Participants
3. Discussion Points
4. Action Items
5. Next Steps
6. Potential Opportunities

Format the response as a clear, professional summary that highlights the most important aspects of the meeting.`

// MeetingSummary transcribes a recorded sales call and summarizes it.
type MeetingSummary struct {
	mem         *memory.SharedMemory
	llm         llm.Client
	embedder    memory.Embedder
	transcriber transcribe.Transcriber
	store       *store.Store // Optional
	log         *log.Logger
}

// NewMeetingSummary creates the agent. st may be nil.
func NewMeetingSummary(mem *memory.SharedMemory, client llm.Client, emb memory.Embedder, tr transcribe.Transcriber, st *store.Store) *MeetingSummary {
	return &MeetingSummary{
		mem:         mem,
		llm:         client,
		embedder:    emb,
		transcriber: tr,
		store:       st,
		log:         agentLogger("meeting_summary"),
	}
}

func (a *MeetingSummary) Name() string { return "meeting_summary" }

func (a *MeetingSummary) Capabilities() core.Capabilities {
	return core.Capabilities{
		Description: "Transcribes a meeting recording, summarizes it and indexes the summary.",
		InputSchema: core.WithTaskOverride(core.BuildSchema(map[string]any{
			"audio":      core.StringProperty("Path to the recording (alias of audio_path)"),
			"audio_path": core.StringProperty("Path to the recording"),
			"source":     core.StringProperty("Where the recording came from"),
		})),
	}
}

// Execute runs transcription, summarization and indexing.
func (a *MeetingSummary) Execute(ctx context.Context, in core.Input) (core.Result, error) {
	path := in.String(core.KeyAudioPath)
	if path == "" {
		path = in.String(core.KeyAudio)
	}
	v := valgo.Is(valgo.String(path, "audio_path").Not().Blank())
	if !v.Valid() {
		return nil, fmt.Errorf("%w: no audio path provided", ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: audio file not found: %s", ErrInvalidInput, path)
		}
		return nil, err
	}

	source := in.String("source")
	if source == "" {
		source = "unknown"
	}

	transcript, err := a.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, transcribe.ErrEmptyTranscript
	}

	summary, err := a.llm.Query(ctx, fmt.Sprintf(summaryPrompt, transcript))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	recordID, err := embedOne(ctx, a.mem, a.embedder, summary, map[string]any{
		"type":   "meeting_summary",
		"source": source,
	})
	if err != nil {
		return nil, fmt.Errorf("index summary: %w", err)
	}

	if err := publish(a.mem, memory.KeyMeetingSummary, map[string]any{
		"transcript": transcript,
		"summary":    summary,
		"source":     source,
	}); err != nil {
		return nil, err
	}

	result := core.Result{
		"transcript": transcript,
		"summary":    summary,
		"record_id":  recordID,
	}

	if a.store != nil {
		m := &store.MeetingSummary{
			Transcript: transcript,
			Summary:    summary,
			Source:     source,
			VectorID:   recordID,
		}
		if err := a.store.AddMeetingSummary(ctx, m); err != nil {
			// The blackboard already has the summary; persistence is best effort.
			a.log.Warn("failed to persist meeting summary", "error", err)
		} else {
			result["summary_id"] = m.ID
		}
	}

	a.log.Info("meeting summarized", "source", source, "record_id", recordID, "transcript_chars", len(transcript))
	return result, nil
}
