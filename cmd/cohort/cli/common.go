package cli

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/cohort/internal/agent"
	"github.com/felixgeelhaar/cohort/internal/config"
	"github.com/felixgeelhaar/cohort/internal/credential"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/plugin"
	"github.com/felixgeelhaar/cohort/internal/provider"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/store"
	"github.com/spf13/cobra"
)

// app bundles everything a command needs.
type app struct {
	cfg     *config.Config
	obs     *observe.Observer
	store   store.Storage
	vault   *credential.Vault
	orch    *orchestrate.Orchestrator
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newObserver(w io.Writer) *observe.Observer {
	if ciMode {
		return observe.NewJSON(w, verbose)
	}
	return observe.New(w, verbose)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if providerKind != "" {
		cfg.Provider.Kind = providerKind
	}
	if modelName != "" {
		cfg.Provider.Model = modelName
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.Storage, *credential.Vault, error) {
	s, err := store.NewSQLiteStore(cfg.Store.Path, cfg.Store.ArtifactDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	mgr, err := credential.NewManager()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, credential.NewVault(s, mgr), nil
}

// setup loads configuration and builds the orchestrator with its backend
// and evaluator.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	obs := newObserver(cmd.ErrOrStderr())

	s, vault, err := openStore(cfg)
	if err != nil {
		obs.Log().Error().Err(err).Msg("Failed to init store")
		return nil, err
	}
	a := &app{cfg: cfg, obs: obs, store: s, vault: vault}
	a.closers = append(a.closers, func() { obs.Close() }, func() { s.Close() })

	backend, err := a.backend()
	if err != nil {
		a.Close()
		obs.Log().Error().Err(err).Msg("Failed to initialize provider")
		return nil, err
	}
	evaluator, err := a.evaluator(backend)
	if err != nil {
		a.Close()
		obs.Log().Error().Err(err).Msg("Failed to initialize evaluator")
		return nil, err
	}

	opts := []orchestrate.Option{
		orchestrate.WithObserver(obs),
		orchestrate.WithGuard(guard.New(cfg.Guard)),
		orchestrate.WithReflectThreshold(cfg.Agents.ReflectThreshold),
		orchestrate.WithResearchConfidence(cfg.Agents.ResearchConfidence),
		orchestrate.WithKnowledgeSources(cfg.Agents.KnowledgeSources),
		orchestrate.WithStepPolicy(orchestrate.StepPolicy{
			Timeout:     cfg.Pipeline.StepTimeout,
			MaxAttempts: cfg.Pipeline.MaxAttempts,
		}),
	}
	if backend != nil {
		opts = append(opts, orchestrate.WithBackend(backend))
	}
	if evaluator != nil {
		opts = append(opts, orchestrate.WithEvaluator(evaluator))
	}

	orch, err := orchestrate.New(opts...)
	if err != nil {
		a.Close()
		obs.Log().Error().Err(err).Msg("Failed to build orchestrator")
		return nil, err
	}
	obs.Attach(orch.Bus())
	a.orch = orch
	return a, nil
}

// backend returns nil for the simulated team.
func (a *app) backend() (provider.Provider, error) {
	pc := a.cfg.Provider
	kind := strings.ToLower(pc.Kind)
	if kind == "simulated" {
		return nil, nil
	}

	if pc.APIKey == "" && kind != "" {
		pc.APIKey, _ = a.vault.Get(kind + ".api_key")
	}
	if pc.BaseURL == "" && kind != "" {
		pc.BaseURL, _ = a.vault.Get(kind + ".base_url")
	}
	if kind == "cli" && pc.CLIPath == "" {
		path, err := detectCLI(a.vault)
		if err != nil {
			return nil, err
		}
		pc.CLIPath = path
	}

	return provider.New(provider.Settings{
		Kind:    kind,
		Model:   pc.Model,
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		CLIPath: pc.CLIPath,
		Sampling: provider.Sampling{
			Temperature: pc.Temperature,
			MaxTokens:   pc.MaxTokens,
		},
	})
}

func (a *app) evaluator(backend provider.Provider) (agent.Evaluator, error) {
	switch a.cfg.Agents.Evaluator {
	case "", "static":
		return nil, nil
	case "backend":
		if backend == nil {
			return nil, fmt.Errorf("backend evaluator needs a provider, got %q", a.cfg.Provider.Kind)
		}
		p, err := role.DefaultRegistry().Lookup(role.Reflector)
		if err != nil {
			return nil, err
		}
		return &agent.BackendEvaluator{Provider: backend, Prompt: p.Prompt}, nil
	case "plugin":
		loaded, err := plugin.Load(a.cfg.Agents.PluginPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, loaded.Close)
		a.obs.Log().Info().Str("plugin", loaded.Evaluator.Name()).Str("version", loaded.Evaluator.Version()).Msg("evaluator plugin loaded")
		return loaded.Evaluator, nil
	default:
		return nil, fmt.Errorf("unknown evaluator %q", a.cfg.Agents.Evaluator)
	}
}

func detectCLI(v *credential.Vault) (string, error) {
	// 1. Check config first
	if path, _ := v.Get("provider.cli.path"); path != "" {
		return path, nil
	}

	// 2. Auto-detect common tools
	tools := []string{"claude", "codex", "gemini", "llm"}
	for _, t := range tools {
		if path, err := exec.LookPath(t); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no local CLI agents detected (tried %s)", strings.Join(tools, ", "))
}
