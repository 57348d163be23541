// Package orchestrate coordinates the role agents through the research,
// act, reflect sequence and the topic pipeline.
package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/cohort/internal/agent"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/provider"
	"github.com/felixgeelhaar/cohort/internal/report"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StepPolicy bounds every step of an execution. Retries of the act step
// repeat the same assignment and do not count as further agent iterations.
type StepPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
}

var DefaultStepPolicy = StepPolicy{
	Timeout:     2 * time.Minute,
	MaxAttempts: 2,
}

type options struct {
	registry *role.Registry
	backend  provider.Provider
	behavior agent.BehaviorOptions
	policy   StepPolicy
	obs      *observe.Observer
	bus      *runtime.EventBus
	guard    *guard.Guard
}

// Option configures an Orchestrator.
type Option func(*options)

func WithRegistry(r *role.Registry) Option { return func(o *options) { o.registry = r } }

// WithBackend routes every agent through p. Without a backend the agents
// produce simulated output.
func WithBackend(p provider.Provider) Option { return func(o *options) { o.backend = p } }

func WithEvaluator(e agent.Evaluator) Option { return func(o *options) { o.behavior.Evaluator = e } }

func WithReflectThreshold(t float64) Option { return func(o *options) { o.behavior.Threshold = t } }

func WithResearchConfidence(c float64) Option { return func(o *options) { o.behavior.Confidence = c } }

func WithKnowledgeSources(s []string) Option { return func(o *options) { o.behavior.Sources = s } }

func WithStepPolicy(p StepPolicy) Option { return func(o *options) { o.policy = p } }

func WithObserver(obs *observe.Observer) Option { return func(o *options) { o.obs = obs } }

func WithEventBus(b *runtime.EventBus) Option { return func(o *options) { o.bus = b } }

func WithGuard(g *guard.Guard) Option { return func(o *options) { o.guard = g } }

// Orchestrator owns one agent per role plus the execution history and
// message queue. Public operations are serialised.
type Orchestrator struct {
	registry *role.Registry
	agents   map[role.Role]*agent.Agent
	policy   StepPolicy
	obs      *observe.Observer
	bus      *runtime.EventBus
	guard    *guard.Guard

	opMu sync.Mutex

	mu       sync.RWMutex
	history  []ExecutionRecord
	messages []agent.Message
}

// New validates the role registry and builds the team.
func New(opts ...Option) (*Orchestrator, error) {
	cfg := options{
		registry: role.DefaultRegistry(),
		behavior: agent.DefaultBehaviorOptions(),
		policy:   DefaultStepPolicy,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.obs == nil {
		cfg.obs = observe.Discard()
	}
	if cfg.bus == nil {
		cfg.bus = runtime.NewEventBus()
	}
	if cfg.guard == nil {
		cfg.guard = guard.New(guard.DefaultPolicy)
	}
	if cfg.policy.MaxAttempts < 1 {
		cfg.policy.MaxAttempts = 1
	}

	if err := cfg.registry.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		registry: cfg.registry,
		agents:   make(map[role.Role]*agent.Agent),
		policy:   cfg.policy,
		obs:      cfg.obs,
		bus:      cfg.bus,
		guard:    cfg.guard,
	}

	backendName := "simulated"
	if cfg.backend != nil {
		backendName = cfg.backend.Name()
	}
	for _, p := range cfg.registry.Profiles() {
		o.agents[p.Role] = agent.New(p, agent.ForRole(p.Role, cfg.backend, cfg.behavior))
		o.obs.Log().Info().Str("agent", p.Identity()).Str("backend", backendName).Msg("agent ready")
	}

	return o, nil
}

// Bus returns the event bus the orchestrator publishes on.
func (o *Orchestrator) Bus() *runtime.EventBus {
	return o.bus
}

func (o *Orchestrator) lookup(r role.Role) (*agent.Agent, error) {
	a, ok := o.agents[r]
	if !ok {
		return nil, &role.UnknownRoleError{Role: r}
	}
	return a, nil
}

// ExecuteWithReflection runs research, act and reflect for task against
// the target role, strictly in that order. Failed steps are recorded and
// returned as a *PartialError next to whatever the other steps produced.
func (o *Orchestrator) ExecuteWithReflection(ctx context.Context, task string, target role.Role) (Outcome, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	targetAgent, err := o.lookup(target)
	if err != nil {
		return Outcome{}, err
	}
	researcher, err := o.lookup(role.Researcher)
	if err != nil {
		return Outcome{}, err
	}
	reflector, err := o.lookup(role.Reflector)
	if err != nil {
		return Outcome{}, err
	}

	rec := ExecutionRecord{
		ID:        uuid.NewString(),
		Task:      task,
		Role:      target,
		Failures:  []StepFailure{},
		StartedAt: time.Now(),
	}
	runID := rec.ID

	ctx, span := o.obs.StartSpan(ctx, "orchestrate.execute")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("role", string(target)))

	o.bus.PublishWithData(runtime.EventRunStart, runID, map[string]interface{}{
		"kind":    "task",
		"subject": task,
		"role":    string(target),
	})
	o.obs.Log().Info().Str("run_id", runID).Str("role", string(target)).Str("task", task).Msg("execution started")

	o.send(runID, role.Commander, target, agent.KindRequest, task)

	if v := o.guard.CheckBudget(targetAgent.Iteration()+1, len([]rune(task))); v != nil {
		o.bus.PublishWithData(runtime.EventGuardViolation, runID, map[string]interface{}{
			"rule":    v.Rule,
			"message": v.Message,
		})
		rec.Failures = append(rec.Failures, guardFailure(v))
		return o.finish(span, rec)
	}

	research, err := runStep(ctx, o, runID, StepResearch, role.Researcher, func(ctx context.Context) (agent.ResearchResult, error) {
		return researcher.Research(ctx, task)
	})
	if err != nil {
		rec.Failures = append(rec.Failures, newFailure(StepResearch, err))
	} else {
		rec.Research = &research
	}

	targetAgent.Assign(task)
	result, err := runStep(ctx, o, runID, StepAct, target, func(ctx context.Context) (agent.Result, error) {
		return targetAgent.Perform(ctx, task)
	})
	if err != nil {
		rec.Failures = append(rec.Failures, newFailure(StepAct, err))
		rec.Failures = append(rec.Failures, newFailure(StepReflect, agent.ErrOrderingViolation))
		o.bus.PublishWithData(runtime.EventStepFailed, runID, map[string]interface{}{
			"step":  string(StepReflect),
			"error": agent.ErrOrderingViolation.Error(),
		})
		return o.finish(span, rec)
	}
	rec.Result = &result
	o.send(runID, target, role.Commander, agent.KindResponse, result.Output)

	evaluation, err := runStep(ctx, o, runID, StepReflect, role.Reflector, func(ctx context.Context) (agent.Evaluation, error) {
		return reflector.Reflect(ctx, resultText(result), string(target))
	})
	if err != nil {
		rec.Failures = append(rec.Failures, newFailure(StepReflect, err))
	} else {
		rec.Evaluation = &evaluation
		o.send(runID, role.Reflector, target, agent.KindReflection,
			fmt.Sprintf("score %d/%d, %d issues", evaluation.TotalScore, evaluation.MaxScore, len(evaluation.IssuesFound)))
	}

	return o.finish(span, rec)
}

func (o *Orchestrator) finish(span trace.Span, rec ExecutionRecord) (Outcome, error) {
	rec.FinishedAt = time.Now()

	o.mu.Lock()
	o.history = append(o.history, rec)
	o.mu.Unlock()

	status := runtime.StatusCompleted
	if rec.Partial() {
		status = runtime.StatusPartial
		span.SetStatus(codes.Error, rec.Err().Error())
	}
	o.bus.PublishWithData(runtime.EventTaskComplete, rec.ID, map[string]interface{}{
		"status":   status,
		"role":     string(rec.Role),
		"failures": len(rec.Failures),
	})
	o.obs.Log().Info().Str("run_id", rec.ID).Str("status", status).Msg("execution finished")

	return rec.clone().Outcome(), rec.Err()
}

// resultText is the act result as the reflector sees it.
func resultText(r agent.Result) string {
	data, err := json.Marshal(r)
	if err != nil {
		return r.Output
	}
	return string(data)
}

// runStep executes fn under the step policy inside its own span.
func runStep[T any](ctx context.Context, o *Orchestrator, runID string, step Step, r role.Role, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := o.obs.StartSpan(ctx, "orchestrate."+string(step))
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("role", string(r)))

	o.bus.PublishWithData(runtime.EventStepStart, runID, map[string]interface{}{
		"step": string(step),
		"role": string(r),
	})

	var zero T
	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		stepCtx := ctx
		cancel := func() {}
		if o.policy.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, o.policy.Timeout)
		}
		out, err := fn(stepCtx)
		cancel()
		if err == nil {
			o.bus.PublishWithData(runtime.EventStepEnd, runID, map[string]interface{}{
				"step":    string(step),
				"role":    string(r),
				"attempt": attempt,
			})
			return out, nil
		}

		lastErr = err
		o.obs.Log().Warn().Str("run_id", runID).Str("step", string(step)).Int("attempt", attempt).Err(err).Msg("step attempt failed")
		if !retryable(ctx.Err(), err) {
			break
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) && ctx.Err() == nil {
		lastErr = fmt.Errorf("%s step timed out after %s: %w", step, o.policy.Timeout, lastErr)
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	o.bus.PublishWithData(runtime.EventStepFailed, runID, map[string]interface{}{
		"step":  string(step),
		"role":  string(r),
		"error": lastErr.Error(),
	})
	return zero, lastErr
}

func (o *Orchestrator) send(runID string, from, to role.Role, kind agent.MessageKind, content string) {
	msg, err := agent.NewMessage(from, to, kind, content)
	if err != nil {
		o.obs.Log().Error().Err(err).Msg("dropping message")
		return
	}

	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()

	o.bus.PublishWithData(runtime.EventMessage, runID, map[string]interface{}{
		"from": string(from),
		"to":   string(to),
		"kind": string(kind),
	})
}

// CreateTutorial researches topic and has the content agent write a
// tutorial from the findings. A failed research step degrades to the
// plain template.
func (o *Orchestrator) CreateTutorial(ctx context.Context, topic string) (string, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	writer, err := o.lookup(role.Content)
	if err != nil {
		return "", err
	}
	tw, ok := writer.Behavior().(interface {
		Tutorial(topic string, research *agent.ResearchResult) string
	})
	if !ok {
		return "", fmt.Errorf("%s: tutorial: %w", role.Content, agent.ErrUnsupported)
	}
	researcher, err := o.lookup(role.Researcher)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	o.bus.PublishWithData(runtime.EventRunStart, runID, map[string]interface{}{"kind": "tutorial", "subject": topic})

	var research *agent.ResearchResult
	if res, err := runStep(ctx, o, runID, StepResearch, role.Researcher, func(ctx context.Context) (agent.ResearchResult, error) {
		return researcher.Research(ctx, topic)
	}); err == nil {
		research = &res
	}

	tutorial := tw.Tutorial(topic, research)
	o.send(runID, role.Content, role.Commander, agent.KindResponse, tutorial)
	o.bus.PublishWithData(runtime.EventTaskComplete, runID, map[string]interface{}{"status": runtime.StatusCompleted})
	return tutorial, nil
}

// OptimizePrompt runs the reflector's prompt analysis over the template of r.
func (o *Orchestrator) OptimizePrompt(r role.Role) (string, error) {
	p, err := o.registry.Lookup(r)
	if err != nil {
		return "", err
	}
	reflector, err := o.lookup(role.Reflector)
	if err != nil {
		return "", err
	}
	opt, ok := reflector.Behavior().(interface{ OptimizePrompt(string) string })
	if !ok {
		return "", fmt.Errorf("%s: optimize prompt: %w", role.Reflector, agent.ErrUnsupported)
	}
	return opt.OptimizePrompt(p.Prompt), nil
}

// Think has the agent for r reason about input and returns the thought.
func (o *Orchestrator) Think(ctx context.Context, r role.Role, input string) (string, error) {
	a, err := o.lookup(r)
	if err != nil {
		return "", err
	}
	return a.Think(ctx, input), nil
}

// AgentInfo is a snapshot of one agent.
type AgentInfo struct {
	Profile     role.Profile `json:"profile"`
	Identity    string       `json:"identity"`
	Iteration   int          `json:"iteration"`
	CurrentTask string       `json:"current_task"`
}

func snapshot(a *agent.Agent) AgentInfo {
	p := a.Profile()
	return AgentInfo{
		Profile:     p,
		Identity:    p.Identity(),
		Iteration:   a.Iteration(),
		CurrentTask: a.CurrentTask(),
	}
}

// Agents returns snapshots of every agent in roster order.
func (o *Orchestrator) Agents() []AgentInfo {
	out := make([]AgentInfo, 0, len(o.agents))
	for _, p := range o.registry.Profiles() {
		if a, ok := o.agents[p.Role]; ok {
			out = append(out, snapshot(a))
		}
	}
	return out
}

// Agent returns a snapshot of the agent for r.
func (o *Orchestrator) Agent(r role.Role) (AgentInfo, error) {
	a, err := o.lookup(r)
	if err != nil {
		return AgentInfo{}, err
	}
	return snapshot(a), nil
}

// AgentHistory returns a copy of the private history of the agent for r.
func (o *Orchestrator) AgentHistory(r role.Role) ([]agent.Entry, error) {
	a, err := o.lookup(r)
	if err != nil {
		return nil, err
	}
	return a.History(), nil
}

// History returns a copy of the execution history.
func (o *Orchestrator) History() []ExecutionRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]ExecutionRecord, len(o.history))
	for i, r := range o.history {
		out[i] = r.clone()
	}
	return out
}

// Record returns the execution record with the given id.
func (o *Orchestrator) Record(id string) (ExecutionRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, r := range o.history {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return ExecutionRecord{}, false
}

// Messages returns a copy of the message queue.
func (o *Orchestrator) Messages() []agent.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]agent.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Summary aggregates the current state without changing it.
func (o *Orchestrator) Summary() report.Summary {
	o.mu.RLock()
	in := report.Input{
		Agents:     len(o.agents),
		Executions: len(o.history),
		Messages:   len(o.messages),
	}
	for _, r := range o.history {
		view := report.RecordView{Role: string(r.Role), Failed: r.Partial()}
		if r.Evaluation != nil {
			view.Evaluated = true
			view.TotalScore = r.Evaluation.TotalScore
			view.MaxScore = r.Evaluation.MaxScore
		}
		in.Records = append(in.Records, view)
	}
	o.mu.RUnlock()

	for _, r := range role.All() {
		in.Roles = append(in.Roles, string(r))
	}
	return report.Build(in)
}

// Report renders Summary for the terminal.
func (o *Orchestrator) Report() string {
	return report.Render(o.Summary())
}
