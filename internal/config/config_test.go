package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.Provider.Kind != "simulated" {
		t.Errorf("expected simulated provider, got %s", cfg.Provider.Kind)
	}
	if cfg.Agents.ReflectThreshold != 8.0 {
		t.Errorf("expected reflect threshold 8, got %v", cfg.Agents.ReflectThreshold)
	}
	if cfg.Agents.ResearchConfidence != 0.85 {
		t.Errorf("expected research confidence 0.85, got %v", cfg.Agents.ResearchConfidence)
	}
	if cfg.Pipeline.StepTimeout != 2*time.Minute {
		t.Errorf("expected step timeout 2m, got %v", cfg.Pipeline.StepTimeout)
	}
	if len(cfg.Pipeline.Weeks) != 6 {
		t.Errorf("expected 6 default weeks, got %v", cfg.Pipeline.Weeks)
	}
	if cfg.Web.Port != 8000 {
		t.Errorf("expected web port 8000, got %d", cfg.Web.Port)
	}
	if !strings.HasSuffix(cfg.Store.Path, "metadata.db") {
		t.Errorf("unexpected store path %s", cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("COHORT_CONFIG", "/nonexistent/config.yaml")
	t.Setenv("COHORT_PROVIDER", "deepseek")
	t.Setenv("DEEPSEEK_API_KEY", "sk-deepseek")
	t.Setenv("COHORT_WEB_PORT", "9090")
	t.Setenv("COHORT_NATS_URL", "nats://localhost:4333")
	t.Setenv("COHORT_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider.Kind != "deepseek" {
		t.Errorf("expected provider deepseek, got %s", cfg.Provider.Kind)
	}
	if cfg.Provider.APIKey != "sk-deepseek" {
		t.Errorf("expected deepseek key, got %s", cfg.Provider.APIKey)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected web port 9090, got %d", cfg.Web.Port)
	}
	if cfg.NATS.URL != "nats://localhost:4333" {
		t.Errorf("unexpected nats url %s", cfg.NATS.URL)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("COHORT_API_KEY", "")

	content := `
provider:
  kind: openai
  model: gpt-4o
  api_key: ${TEST_OPENAI_KEY}
agents:
  reflect_threshold: 7.5
pipeline:
  step_timeout: 30s
  max_attempts: 3
  weeks: [1, 2]
guard:
  max_iterations: 10
  allowed_content_globs: ["**/*.md"]
schedule:
  enabled: true
  cron: "*/5 * * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("expected expanded api key, got %q", cfg.Provider.APIKey)
	}
	if cfg.Agents.ReflectThreshold != 7.5 {
		t.Errorf("expected threshold 7.5, got %v", cfg.Agents.ReflectThreshold)
	}
	if cfg.Agents.ResearchConfidence != 0.85 {
		t.Errorf("unset fields should keep defaults, got %v", cfg.Agents.ResearchConfidence)
	}
	if cfg.Pipeline.StepTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Pipeline.StepTimeout)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Guard.MaxIterations != 10 {
		t.Errorf("expected guard max iterations 10, got %d", cfg.Guard.MaxIterations)
	}
	if len(cfg.Guard.AllowedContentGlobs) != 1 {
		t.Errorf("expected one glob, got %v", cfg.Guard.AllowedContentGlobs)
	}
	if !cfg.Schedule.Enabled || cfg.Schedule.Cron != "*/5 * * * *" {
		t.Errorf("unexpected schedule %+v", cfg.Schedule)
	}
}

func TestLoad_ExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("provider: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold", func(c *Config) { c.Agents.ReflectThreshold = 11 }},
		{"confidence", func(c *Config) { c.Agents.ResearchConfidence = 1.5 }},
		{"evaluator", func(c *Config) { c.Agents.Evaluator = "oracle" }},
		{"plugin path", func(c *Config) { c.Agents.Evaluator = "plugin" }},
		{"week", func(c *Config) { c.Pipeline.Weeks = []int{0} }},
		{"port", func(c *Config) { c.Web.Port = 70000 }},
		{"temperature", func(c *Config) { c.Provider.Temperature = 3 }},
		{"max tokens", func(c *Config) { c.Provider.MaxTokens = -1 }},
		{"cron", func(c *Config) { c.Schedule.Enabled = true; c.Schedule.Cron = "not a cron" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestPath(t *testing.T) {
	if got := Path("/tmp/x.yaml"); got != "/tmp/x.yaml" {
		t.Errorf("explicit path should win, got %s", got)
	}
	t.Setenv("COHORT_CONFIG", "/etc/cohort.yaml")
	if got := Path(""); got != "/etc/cohort.yaml" {
		t.Errorf("env path should be used, got %s", got)
	}
}
