package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Agents     AgentsConfig     `yaml:"agents"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Guard      guard.Policy     `yaml:"guard"`
	Web        WebConfig        `yaml:"web"`
	NATS       NATSConfig       `yaml:"nats"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Curriculum CurriculumConfig `yaml:"curriculum"`
	Store      StoreConfig      `yaml:"store"`
}

type ProviderConfig struct {
	Kind    string `yaml:"kind"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	CLIPath string `yaml:"cli_path"`
	// Temperature and MaxTokens are passed to OpenAI-compatible and Ollama
	// backends. Zero keeps the backend default.
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type AgentsConfig struct {
	ReflectThreshold   float64  `yaml:"reflect_threshold"`
	ResearchConfidence float64  `yaml:"research_confidence"`
	KnowledgeSources   []string `yaml:"knowledge_sources"`
	// Evaluator is "static", "backend" or "plugin".
	Evaluator  string `yaml:"evaluator"`
	PluginPath string `yaml:"plugin_path"`
}

type PipelineConfig struct {
	StepTimeout time.Duration `yaml:"step_timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Weeks       []int         `yaml:"weeks"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type NATSConfig struct {
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	Port     int    `yaml:"port"`
	DataDir  string `yaml:"data_dir"`
}

type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Weeks   []int  `yaml:"weeks"`
}

type CurriculumConfig struct {
	Root      string `yaml:"root"`
	Structure string `yaml:"structure"`
}

type StoreConfig struct {
	Path        string `yaml:"path"`
	ArtifactDir string `yaml:"artifact_dir"`
}

// Dir returns the cohort home directory (~/.cohort).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cohort"
	}
	return filepath.Join(home, ".cohort")
}

func defaults() Config {
	dir := Dir()
	return Config{
		Provider: ProviderConfig{
			Kind: "simulated",
		},
		Agents: AgentsConfig{
			ReflectThreshold:   8.0,
			ResearchConfidence: 0.85,
			Evaluator:          "static",
		},
		Pipeline: PipelineConfig{
			StepTimeout: 2 * time.Minute,
			MaxAttempts: 2,
			Weeks:       []int{1, 2, 3, 4, 5, 6},
		},
		Guard: guard.DefaultPolicy,
		Web: WebConfig{
			Port: 8000,
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: filepath.Join(dir, "nats"),
		},
		Schedule: ScheduleConfig{
			Cron:  "0 3 * * 1",
			Weeks: []int{1, 2, 3, 4, 5, 6},
		},
		Curriculum: CurriculumConfig{
			Root: ".",
		},
		Store: StoreConfig{
			Path:        filepath.Join(dir, "metadata.db"),
			ArtifactDir: filepath.Join(dir, "artifacts"),
		},
	}
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	cfg := defaults()
	applyEnv(&cfg)
	return &cfg
}

// Path resolves the config file location: explicit path, then
// $COHORT_CONFIG, then ~/.cohort/config.yaml.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("COHORT_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config file at Path(explicit). A missing file yields the
// defaults; environment overrides are applied either way.
func Load(explicit string) (*Config, error) {
	cfg := defaults()
	path := Path(explicit)

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if explicit != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var providerKeyEnv = map[string]string{
	"deepseek":  "DEEPSEEK_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COHORT_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("COHORT_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("COHORT_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if env, ok := providerKeyEnv[strings.ToLower(cfg.Provider.Kind)]; ok {
		if v := os.Getenv(env); v != "" {
			cfg.Provider.APIKey = v
		}
	}
	if v := os.Getenv("COHORT_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("COHORT_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("COHORT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("COHORT_CURRICULUM_ROOT"); v != "" {
		cfg.Curriculum.Root = v
	}
	if v := os.Getenv("COHORT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	var errs []error
	if c.Agents.ReflectThreshold < 0 || c.Agents.ReflectThreshold > 10 {
		errs = append(errs, fmt.Errorf("agents.reflect_threshold must be within 0-10, got %v", c.Agents.ReflectThreshold))
	}
	if c.Agents.ResearchConfidence < 0 || c.Agents.ResearchConfidence > 1 {
		errs = append(errs, fmt.Errorf("agents.research_confidence must be within 0-1, got %v", c.Agents.ResearchConfidence))
	}
	switch c.Agents.Evaluator {
	case "", "static", "backend":
	case "plugin":
		if c.Agents.PluginPath == "" {
			errs = append(errs, errors.New("agents.plugin_path is required for the plugin evaluator"))
		}
	default:
		errs = append(errs, fmt.Errorf("agents.evaluator must be static, backend or plugin, got %q", c.Agents.Evaluator))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature must be within 0-2, got %v", c.Provider.Temperature))
	}
	if c.Provider.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.max_tokens must not be negative"))
	}
	if c.Pipeline.MaxAttempts < 0 {
		errs = append(errs, errors.New("pipeline.max_attempts must not be negative"))
	}
	if c.Pipeline.StepTimeout < 0 {
		errs = append(errs, errors.New("pipeline.step_timeout must not be negative"))
	}
	for _, w := range append(append([]int{}, c.Pipeline.Weeks...), c.Schedule.Weeks...) {
		if w < 1 {
			errs = append(errs, fmt.Errorf("week %d is invalid: weeks start at 1", w))
		}
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web.port out of range: %d", c.Web.Port))
	}
	if c.Schedule.Enabled && !gronx.New().IsValid(c.Schedule.Cron) {
		errs = append(errs, fmt.Errorf("schedule.cron is not a valid cron expression: %q", c.Schedule.Cron))
	}
	return errors.Join(errs...)
}
