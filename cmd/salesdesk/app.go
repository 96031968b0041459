package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/becomeliminal/salesdesk/agents"
	"github.com/becomeliminal/salesdesk/config"
	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/memory/embedder/cache"
	"github.com/becomeliminal/salesdesk/memory/embedder/mock"
	"github.com/becomeliminal/salesdesk/memory/embedder/ollama"
	"github.com/becomeliminal/salesdesk/memory/store/chromem"
	"github.com/becomeliminal/salesdesk/scheduler"
	"github.com/becomeliminal/salesdesk/store"
	"github.com/becomeliminal/salesdesk/transcribe"
)

// app is everything built from one configuration.
type app struct {
	cfg       *config.Config
	mem       *memory.SharedMemory
	store     *store.Store
	scheduler *scheduler.Scheduler
	agents    *agents.Set
	engine    *engine.Engine

	closers []func()
	log     *log.Logger
}

// appOverrides replaces collaborators that would otherwise talk to the
// network. Used by tests and the route command's --offline flag.
type appOverrides struct {
	llm         llm.Client
	transcriber transcribe.Transcriber
}

func buildApp(cfg *config.Config, ov appOverrides) (_ *app, err error) {
	a := &app{cfg: cfg, log: log.Default().WithPrefix("salesdesk")}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var memOpts []memory.Option
	if cfg.Memory.Backend == "chromem" {
		ix, err := chromem.New(cfg.Memory.Dimension)
		if err != nil {
			return nil, err
		}
		memOpts = append(memOpts, memory.WithIndex(ix))
	}
	a.mem, err = memory.New(cfg.MemoryConfig(), memOpts...)
	if err != nil {
		return nil, err
	}

	emb, err := a.buildEmbedder()
	if err != nil {
		return nil, err
	}

	client := ov.llm
	if client == nil {
		client, err = llm.New(cfg.LLMConfig())
		if err != nil {
			return nil, err
		}
	}

	tr := ov.transcriber
	if tr == nil {
		if wc, ok := cfg.WhisperConfig(); ok {
			w, err := transcribe.NewWhisper(wc)
			if err != nil {
				return nil, err
			}
			tr = w
		} else {
			a.log.Warn("no transcription api key configured, meeting_summary is disabled")
		}
	}

	a.store, err = store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { a.store.Close() })

	a.scheduler = scheduler.New(a.store,
		scheduler.WithInterval(cfg.Scheduler.Interval),
		scheduler.WithJob(a.deliverFollowUp),
	)

	a.agents, err = agents.New(agents.Deps{
		Memory:      a.mem,
		LLM:         client,
		Embedder:    emb,
		Transcriber: tr,
		Store:       a.store,
		Scheduler:   a.scheduler,
	})
	if err != nil {
		return nil, err
	}

	reg := engine.NewRegistry()
	if err := a.agents.Register(reg); err != nil {
		return nil, err
	}

	routerOpts, err := cfg.RouterOptions()
	if err != nil {
		return nil, err
	}
	a.engine = engine.NewEngine(reg,
		engine.WithRouter(engine.NewRouter(routerOpts...)),
		engine.WithAudit(a.store),
	)
	return a, nil
}

// buildEmbedder returns the configured embedder behind a cache, falling back
// to the hash embedder so indexing never fails on a flaky model server.
func (a *app) buildEmbedder() (memory.Embedder, error) {
	dim := a.cfg.Memory.Dimension
	hash := mock.New(dim)

	if a.cfg.Embedder.Provider != "ollama" {
		return hash, nil
	}

	primary, err := ollama.New(a.cfg.OllamaEmbedderConfig())
	if err != nil {
		return nil, err
	}
	var next memory.Embedder = primary
	if a.cfg.Embedder.CacheSize > 0 {
		c, err := cache.New(primary, a.cfg.Embedder.CacheSize)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		next = c
	}
	return memory.NewFallbackEmbedder(next, hash), nil
}

// deliverFollowUp is the scheduler job for due follow-ups. Delivery itself
// is out of scope; the due follow-up is published so other agents and
// GET /context/latest_follow_up can see it.
func (a *app) deliverFollowUp(ctx context.Context, f *store.FollowUp) error {
	doc, err := core.NewDocument(map[string]any{
		"follow_up_id": f.ID,
		"lead_id":      f.LeadID,
		"message":      f.Message,
		"due_at":       f.DueAt.UTC().Format(time.RFC3339),
		"status":       "due",
	})
	if err != nil {
		return err
	}
	a.mem.StoreContext(memory.KeyFollowUp, doc)
	a.log.Info("follow-up due", "id", f.ID, "lead_id", f.LeadID)
	return nil
}

// runBackground runs the scheduler and periodic context eviction until ctx
// is cancelled.
func (a *app) runBackground(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- a.scheduler.Run(ctx) }()
	go func() {
		interval := a.cfg.Memory.EvictionInterval
		if interval <= 0 || a.cfg.Memory.ContextMaxAge <= 0 {
			errCh <- nil
			return
		}
		errCh <- scheduler.Every(ctx, interval, func(context.Context) {
			if n := a.mem.EvictStaleContexts(); n > 0 {
				a.log.Info("evicted stale contexts", "count", n)
			}
		})
	}()

	var errs []error
	for range 2 {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("background: %w", errors.Join(errs...))
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
