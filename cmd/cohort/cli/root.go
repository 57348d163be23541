package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/cohort/internal/ui"
	"github.com/felixgeelhaar/cohort/internal/ui/tui"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	verbose      bool
	providerKind string
	modelName    string
	ciMode       bool
	interactive  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Role-based agent orchestration",
	Long: `Cohort coordinates a team of eight role agents. Every task is researched,
carried out by the target role and evaluated by the reflector before it is
recorded.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [task-file]",
	Short: "Execute the tasks, topics and weeks listed in a task file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if !interactive {
			runner := NewRunner(a.obs, a.orch, args[0], nil, cmd.OutOrStdout())
			return runner.Run(cmd.Context())
		}

		model := tui.NewModel("Cohort", 3)
		program := tea.NewProgram(model)
		u := tui.NewTUI(program)
		ui.Follow(a.orch.Bus(), u)

		errCh := make(chan error, 1)
		go func() {
			runner := NewRunner(a.obs, a.orch, args[0], u, nil)
			errCh <- runner.Run(cmd.Context())
			program.Send(tui.DoneMsg{})
		}()

		if _, err := program.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.orch.Report())
			return nil
		default:
			return nil
		}
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $COHORT_CONFIG or ~/.cohort/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().StringVarP(&providerKind, "provider", "p", "", "Backend (simulated, stub, deepseek, openai, anthropic, ollama, gemini, cli)")
	RootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
	RootCmd.PersistentFlags().BoolVar(&ciMode, "ci", false, "CI mode: JSON logs")

	RootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive TUI")
}
