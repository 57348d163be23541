package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/felixgeelhaar/cohort/internal/coach"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	targetRole   string
	weeksFlag    []int
	topicsFlag   []string
	saveTutorial bool
	jsonOutput   bool
)

var executeCmd = &cobra.Command{
	Use:   "execute [task]",
	Short: "Run one task through research, act and reflect",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := coach.New().LintPrompt(args[0]); err != nil {
			return err
		}
		target, err := role.Parse(targetRole)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, err := a.orch.ExecuteWithReflection(cmd.Context(), args[0], target)
		var partial *orchestrate.PartialError
		if err != nil && !errors.As(err, &partial) {
			a.obs.Log().Error().Err(err).Msg("Execution failed")
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		}
		if outcome.Result != nil {
			fmt.Fprintln(out, outcome.Result.Output)
		}
		if outcome.Evaluation != nil {
			fmt.Fprintf(out, "\nScore: %d/%d\n", outcome.Evaluation.TotalScore, outcome.Evaluation.MaxScore)
			for _, issue := range outcome.Evaluation.IssuesFound {
				fmt.Fprintf(out, "  issue: %s\n", issue)
			}
			for _, imp := range outcome.Evaluation.Improvements {
				fmt.Fprintf(out, "  improve: %s\n", imp)
			}
		}
		if partial != nil {
			for _, f := range partial.Failures {
				fmt.Fprintf(out, "  failed: %s\n", f.Error())
			}
		}
		return nil
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Research and evaluate curriculum weeks or free-form topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var topics []orchestrate.Topic
		switch {
		case len(topicsFlag) > 0:
			topics = orchestrate.TopicsFromStrings(topicsFlag)
		case cmd.Flags().Changed("weeks"):
			topics = orchestrate.WeekTopics(weeksFlag)
		default:
			topics = orchestrate.WeekTopics(a.cfg.Pipeline.Weeks)
		}

		res, err := a.orch.RunPipeline(cmd.Context(), topics)
		if err != nil {
			a.obs.Log().Error().Err(err).Msg("Pipeline interrupted")
		}
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
		} else {
			printPipeline(cmd.OutOrStdout(), res)
		}
		return err
	},
}

var tutorialCmd = &cobra.Command{
	Use:   "tutorial [topic]",
	Short: "Write a tutorial on a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		topic := args[0]
		tutorial, err := a.orch.CreateTutorial(cmd.Context(), topic)
		if err != nil {
			a.obs.Log().Error().Err(err).Msg("Tutorial failed")
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tutorial)

		if !saveTutorial {
			return nil
		}
		id := uuid.NewString()
		artifact := &store.Artifact{
			ID:        id,
			Topic:     topic,
			Path:      filepath.Join("tutorials", slug(topic)+"-"+id[:8]+".md"),
			Type:      "tutorial",
			CreatedAt: time.Now(),
		}
		if err := a.store.SaveArtifact(artifact, []byte(tutorial)); err != nil {
			a.obs.Log().Error().Err(err).Msg("Failed to save tutorial")
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved artifact %s (%s)\n", artifact.ID, artifact.Path)
		return nil
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [type]",
	Short: "List saved artifacts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, _, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		kind := ""
		if len(args) == 1 {
			kind = args[0]
		}
		list, err := s.ListArtifacts(kind)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tTOPIC\tPATH\tCREATED")
		for _, art := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", art.ID, art.Type, art.Topic, art.Path, art.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the team roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range role.DefaultRegistry().Profiles() {
			fmt.Fprintln(cmd.OutOrStdout(), p.Identity())
		}
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [role]",
	Short: "Analyse a role's instruction template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := role.Parse(args[0])
		if err != nil {
			return err
		}
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.orch.OptimizePrompt(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var thinkCmd = &cobra.Command{
	Use:   "think [role] [input]",
	Short: "Have one agent reason about an input",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := role.Parse(args[0])
		if err != nil {
			return err
		}
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		thought, err := a.orch.Think(cmd.Context(), r, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), thought)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [task-file]",
	Short: "Run a task file and print the session summary as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runner := NewRunner(a.obs, a.orch, args[0], nil, nil)
		if err := runner.Run(cmd.Context()); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a.orch.Summary())
	},
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "topic"
	}
	return out
}

func init() {
	RootCmd.AddCommand(executeCmd, pipelineCmd, tutorialCmd, artifactsCmd, rolesCmd, optimizeCmd, thinkCmd, reportCmd)

	executeCmd.Flags().StringVarP(&targetRole, "role", "r", string(role.Engineer), "Target role")
	executeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the outcome as JSON")

	pipelineCmd.Flags().IntSliceVar(&weeksFlag, "weeks", nil, "Curriculum weeks, e.g. 1,2,3")
	pipelineCmd.Flags().StringSliceVar(&topicsFlag, "topics", nil, "Free-form topics")
	pipelineCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	tutorialCmd.Flags().BoolVar(&saveTutorial, "save", false, "Save the tutorial as an artifact")
}
