// Package config loads salesdesk settings from defaults, an optional YAML
// file, a .env file and SALESDESK_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/cohesivestack/valgo"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/llm"
	"github.com/becomeliminal/salesdesk/memory"
	"github.com/becomeliminal/salesdesk/memory/embedder/ollama"
	"github.com/becomeliminal/salesdesk/transcribe"
)

// EnvPrefix prefixes every environment override, e.g. SALESDESK_LLM_API_KEY.
const EnvPrefix = "SALESDESK"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

type Memory struct {
	Dimension        int           `mapstructure:"dimension"`
	Metric           string        `mapstructure:"metric"`
	Backend          string        `mapstructure:"backend"`
	ContextMaxAge    time.Duration `mapstructure:"context_max_age"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

type Router struct {
	DefaultTask string              `mapstructure:"default_task"`
	Rules       []engine.RuleConfig `mapstructure:"rules"`
}

type LLM struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int64         `mapstructure:"max_tokens"`
}

type Embedder struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	CacheSize int64  `mapstructure:"cache_size"`
}

type Transcribe struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type Store struct {
	Path string `mapstructure:"path"`
}

type Scheduler struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Server struct {
	Addr     string `mapstructure:"addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`
}

// Config is the full application configuration.
type Config struct {
	Memory     Memory     `mapstructure:"memory"`
	Router     Router     `mapstructure:"router"`
	LLM        LLM        `mapstructure:"llm"`
	Embedder   Embedder   `mapstructure:"embedder"`
	Transcribe Transcribe `mapstructure:"transcribe"`
	Store      Store      `mapstructure:"store"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Server     Server     `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("memory.dimension", 768)
	v.SetDefault("memory.metric", string(memory.MetricL2))
	v.SetDefault("memory.backend", "flat")
	v.SetDefault("memory.context_max_age", 24*time.Hour)
	v.SetDefault("memory.eviction_interval", time.Hour)

	v.SetDefault("router.default_task", string(engine.DefaultTask))
	v.SetDefault("router.rules", []engine.RuleConfig{})

	v.SetDefault("llm.provider", string(llm.ProviderOllama))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("embedder.provider", "mock")
	v.SetDefault("embedder.model", "nomic-embed-text")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.cache_size", 10000)

	v.SetDefault("transcribe.api_key", "")
	v.SetDefault("transcribe.base_url", "")
	v.SetDefault("transcribe.model", "whisper-1")

	v.SetDefault("store.path", "salesdesk.db")
	v.SetDefault("scheduler.interval", 30*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.grpc_addr", "")
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory
// is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	// chromem only ranks by cosine.
	if v.GetString("memory.backend") == "chromem" {
		v.SetDefault("memory.metric", string(memory.MetricCosine))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	v := valgo.Is(valgo.Int(c.Memory.Dimension, "memory.dimension").GreaterThan(0)).
		Is(valgo.String(c.Memory.Backend, "memory.backend").InSlice([]string{"flat", "chromem"})).
		Is(valgo.String(c.LLM.Provider, "llm.provider").InSlice([]string{string(llm.ProviderOllama), string(llm.ProviderAnthropic)})).
		Is(valgo.String(c.Embedder.Provider, "embedder.provider").InSlice([]string{"mock", "ollama"})).
		Is(valgo.String(c.Store.Path, "store.path").Not().Blank()).
		Is(valgo.String(c.Server.Addr, "server.addr").Not().Blank())
	if !v.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(v))
	}

	metric, err := memory.ParseMetric(c.Memory.Metric)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Memory.Backend == "chromem" && metric != memory.MetricCosine {
		return fmt.Errorf("%w: the chromem backend only supports the cosine metric", ErrInvalid)
	}
	if c.Router.DefaultTask == "" {
		return fmt.Errorf("%w: router.default_task must not be empty", ErrInvalid)
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"memory.context_max_age", c.Memory.ContextMaxAge},
		{"memory.eviction_interval", c.Memory.EvictionInterval},
		{"scheduler.interval", c.Scheduler.Interval},
		{"llm.timeout", c.LLM.Timeout},
	} {
		if d.val < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalid, d.name)
		}
	}
	return nil
}

func describe(v *valgo.Validation) string {
	var parts []string
	for field, e := range v.Errors() {
		parts = append(parts, field+": "+strings.Join(e.Messages(), ", "))
	}
	return strings.Join(parts, "; ")
}

// MemoryConfig returns the shared memory settings.
func (c *Config) MemoryConfig() memory.Config {
	return memory.Config{
		Dimension:     c.Memory.Dimension,
		Metric:        memory.Metric(c.Memory.Metric),
		ContextMaxAge: c.Memory.ContextMaxAge,
	}
}

// LLMConfig returns the model client settings.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:  llm.Provider(c.LLM.Provider),
		Model:     c.LLM.Model,
		BaseURL:   c.LLM.BaseURL,
		APIKey:    c.LLM.APIKey,
		Timeout:   c.LLM.Timeout,
		MaxTokens: c.LLM.MaxTokens,
	}
}

// OllamaEmbedderConfig returns the embedder settings for the ollama provider.
func (c *Config) OllamaEmbedderConfig() ollama.Config {
	return ollama.Config{
		BaseURL:    c.Embedder.BaseURL,
		Model:      c.Embedder.Model,
		Dimensions: c.Memory.Dimension,
	}
}

// WhisperConfig returns the transcription settings. The second result is
// false when no API key is configured.
func (c *Config) WhisperConfig() (transcribe.WhisperConfig, bool) {
	return transcribe.WhisperConfig{
		APIKey:  c.Transcribe.APIKey,
		BaseURL: c.Transcribe.BaseURL,
		Model:   c.Transcribe.Model,
	}, c.Transcribe.APIKey != ""
}

// RouterOptions compiles the routing settings.
func (c *Config) RouterOptions() ([]engine.RouterOption, error) {
	rules, err := engine.CompileRules(c.Router.Rules)
	if err != nil {
		return nil, err
	}
	return []engine.RouterOption{
		engine.WithDefaultTask(core.TaskType(c.Router.DefaultTask)),
		engine.WithRules(rules...),
	}, nil
}
