package orchestrate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cohort/internal/agent"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"github.com/felixgeelhaar/cohort/internal/role"
)

// Step names one stage of the research, act, reflect sequence.
type Step string

const (
	StepResearch Step = "research"
	StepAct      Step = "act"
	StepReflect  Step = "reflect"

	// StepGuard marks an execution stopped by a policy violation before
	// any step ran.
	StepGuard Step = "guard"
)

// Outcome is the result of one task execution. Fields are nil when the
// corresponding step failed.
type Outcome struct {
	Result     *agent.Result         `json:"result"`
	Research   *agent.ResearchResult `json:"research"`
	Evaluation *agent.Evaluation     `json:"evaluation"`
}

// StepFailure records why a step did not produce a result.
type StepFailure struct {
	Step    Step   `json:"step"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func newFailure(step Step, err error) StepFailure {
	return StepFailure{Step: step, Message: err.Error(), Err: err}
}

func guardFailure(v *guard.Violation) StepFailure {
	return StepFailure{Step: StepGuard, Message: v.Rule + ": " + v.Message, Err: v}
}

func (f StepFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Step, f.Message)
}

// PartialError is returned alongside a partial Outcome.
type PartialError struct {
	Failures []StepFailure
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "partial execution: " + strings.Join(parts, "; ")
}

// Unwrap exposes the step errors to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Failed reports whether step is among the failures.
func (e *PartialError) Failed(step Step) bool {
	for _, f := range e.Failures {
		if f.Step == step {
			return true
		}
	}
	return false
}

// ExecutionRecord is the history entry written for every task execution.
type ExecutionRecord struct {
	ID         string                `json:"id"`
	Task       string                `json:"task"`
	Role       role.Role             `json:"role"`
	Result     *agent.Result         `json:"result"`
	Research   *agent.ResearchResult `json:"research"`
	Evaluation *agent.Evaluation     `json:"evaluation"`
	Failures   []StepFailure         `json:"failures"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Outcome returns the three-part view of the record.
func (r ExecutionRecord) Outcome() Outcome {
	return Outcome{Result: r.Result, Research: r.Research, Evaluation: r.Evaluation}
}

// Partial reports whether any step failed.
func (r ExecutionRecord) Partial() bool {
	return len(r.Failures) > 0
}

// Err returns the record's failures as a *PartialError, or nil.
func (r ExecutionRecord) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &PartialError{Failures: append([]StepFailure(nil), r.Failures...)}
}

// clone copies r deeply enough that callers cannot reach the stored record.
func (r ExecutionRecord) clone() ExecutionRecord {
	r.Failures = append([]StepFailure{}, r.Failures...)
	if r.Result != nil {
		res := *r.Result
		r.Result = &res
	}
	if r.Research != nil {
		res := r.Research.Clone()
		r.Research = &res
	}
	if r.Evaluation != nil {
		ev := r.Evaluation.Clone()
		r.Evaluation = &ev
	}
	return r
}

// retryable reports whether a failed attempt is worth repeating.
func retryable(parent error, err error) bool {
	if parent != nil {
		return false
	}
	return !errors.Is(err, agent.ErrUnsupported) && !errors.Is(err, agent.ErrOrderingViolation)
}
