package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/cohort/internal/coach"
	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/ui"
)

type Runner struct {
	Observer     *observe.Observer
	Orchestrator *orchestrate.Orchestrator
	SpecPath     string
	UI           ui.UI
	Out          io.Writer
}

func (r *Runner) Run(ctx context.Context) error {
	r.UI.UpdateStatus("Starting Cohort...")
	r.Observer.Log().Info().Int("agents", len(r.Orchestrator.Agents())).Msg("Cohort initialized")

	c := coach.New()

	r.UI.UpdateStatus("Loading task file...")
	r.Observer.Log().Info().Str("path", r.SpecPath).Msg("loading task file")
	spec, err := c.LoadSpec(r.SpecPath)
	if err != nil {
		r.Observer.Log().Error().Err(err).Msg("Failed to load task file")
		return err
	}

	validation := c.Validate(*spec)
	for _, w := range validation.Warnings {
		r.Observer.Log().Warn().Str("warning", w).Msg("task file")
	}
	if !validation.Valid {
		r.Observer.Log().Error().Str("errors", strings.Join(validation.Errors, ", ")).Msg("Invalid task file")
		return fmt.Errorf("invalid task file: %s", strings.Join(validation.Errors, "; "))
	}

	r.UI.UpdateStatus("Executing tasks...")
	partial := 0
	for _, t := range spec.Tasks {
		target, err := role.Parse(t.Role)
		if err != nil {
			return err
		}
		_, err = r.Orchestrator.ExecuteWithReflection(ctx, t.Task, target)
		var pe *orchestrate.PartialError
		switch {
		case errors.As(err, &pe):
			partial++
			r.Observer.Log().Warn().Str("role", t.Role).Err(err).Msg("Task finished partially")
		case err != nil:
			r.UI.UpdateStatus("Execution Failed")
			r.Observer.Log().Error().Err(err).Msg("Execution failed")
			return err
		}
	}

	topics := orchestrate.TopicsFromStrings(spec.Topics)
	topics = append(topics, orchestrate.WeekTopics(spec.Weeks)...)
	if len(topics) > 0 {
		r.UI.UpdateStatus("Running pipeline...")
		res, err := r.Orchestrator.RunPipeline(ctx, topics)
		if err != nil {
			r.UI.UpdateStatus("Pipeline Interrupted")
			r.Observer.Log().Error().Err(err).Msg("Pipeline interrupted")
			return err
		}
		printPipeline(r.Out, res)
	}

	r.UI.UpdateStatus("Completed")
	if partial > 0 {
		r.Observer.Log().Warn().Int("partial", partial).Msg("Some tasks finished partially")
	}
	fmt.Fprintln(r.Out, r.Orchestrator.Report())
	return nil
}

func NewRunner(obs *observe.Observer, orch *orchestrate.Orchestrator, specPath string, u ui.UI, out io.Writer) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		Observer:     obs,
		Orchestrator: orch,
		SpecPath:     specPath,
		UI:           u,
		Out:          out,
	}
}

func printPipeline(w io.Writer, res orchestrate.PipelineResult) {
	for _, t := range res.Topics {
		switch {
		case t.Evaluation != nil:
			fmt.Fprintf(w, "%-8s %-9s %d/%d  %s\n", t.Key, t.Status, t.Evaluation.TotalScore, t.Evaluation.MaxScore, t.Topic)
		default:
			fmt.Fprintf(w, "%-8s %-9s -      %s\n", t.Key, t.Status, t.Error)
		}
	}
}
