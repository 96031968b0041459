package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 768, cfg.Memory.Dimension)
	assert.Equal(t, "l2", cfg.Memory.Metric)
	assert.Equal(t, "flat", cfg.Memory.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Memory.ContextMaxAge)
	assert.Equal(t, time.Hour, cfg.Memory.EvictionInterval)
	assert.Equal(t, "lead_recommendation", cfg.Router.DefaultTask)
	assert.Empty(t, cfg.Router.Rules)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.GRPCAddr)

	_, ok := cfg.WhisperConfig()
	assert.False(t, ok)

	mc := cfg.MemoryConfig()
	assert.Equal(t, memory.MetricL2, mc.Metric)
	require.NoError(t, mc.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
memory:
  dimension: 384
  metric: cosine
  context_max_age: 2h
router:
  default_task: lead_scoring
  rules:
    - name: renewals
      expr: 'has(input.contract_id)'
      task: renewal_review
llm:
  provider: anthropic
  api_key: sk-test
  timeout: 15s
server:
  grpc_addr: ":9090"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 384, cfg.Memory.Dimension)
	assert.Equal(t, "cosine", cfg.Memory.Metric)
	assert.Equal(t, 2*time.Hour, cfg.Memory.ContextMaxAge)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
	require.Len(t, cfg.Router.Rules, 1)
	assert.Equal(t, engine.RuleConfig{Name: "renewals", Expr: "has(input.contract_id)", Task: "renewal_review"}, cfg.Router.Rules[0])

	lc := cfg.LLMConfig()
	assert.Equal(t, llm.ProviderAnthropic, lc.Provider)
	assert.Equal(t, "sk-test", lc.APIKey)
	assert.Equal(t, 15*time.Second, lc.Timeout)

	opts, err := cfg.RouterOptions()
	require.NoError(t, err)
	r := engine.NewRouter(opts...)
	assert.Equal(t, core.TaskLeadScoring, r.DefaultTask())
	assert.Equal(t, core.TaskType("renewal_review"), r.Classify(core.Input{"contract_id": "c-1"}))
	assert.Equal(t, core.TaskLeadScoring, r.Classify(core.Input{}))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SALESDESK_MEMORY_DIMENSION", "64")
	t.Setenv("SALESDESK_TRANSCRIBE_API_KEY", "sk-whisper")
	t.Setenv("SALESDESK_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Memory.Dimension)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)

	wc, ok := cfg.WhisperConfig()
	assert.True(t, ok)
	assert.Equal(t, "sk-whisper", wc.APIKey)
	assert.Equal(t, "whisper-1", wc.Model)

	assert.Equal(t, 64, cfg.OllamaEmbedderConfig().Dimensions)
}

func TestLoad_ChromemDefaultsToCosine(t *testing.T) {
	t.Setenv("SALESDESK_MEMORY_BACKEND", "chromem")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cosine", cfg.Memory.Metric)

	t.Setenv("SALESDESK_MEMORY_METRIC", "l2")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalid, "an explicit l2 still conflicts with chromem")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimension", func(c *Config) { c.Memory.Dimension = 0 }},
		{"unknown backend", func(c *Config) { c.Memory.Backend = "faiss" }},
		{"unknown metric", func(c *Config) { c.Memory.Metric = "manhattan" }},
		{"chromem with l2", func(c *Config) { c.Memory.Backend = "chromem"; c.Memory.Metric = "l2" }},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bard" }},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "onnx" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"empty default task", func(c *Config) { c.Router.DefaultTask = "" }},
		{"negative interval", func(c *Config) { c.Scheduler.Interval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestRouterOptions_InvalidRule(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Router.Rules = []engine.RuleConfig{{Name: "bad", Expr: "input.", Task: "x"}}

	_, err = cfg.RouterOptions()
	assert.ErrorIs(t, err, engine.ErrInvalidRule)
}
