// Package agent implements the role-bound workers driven by the orchestrator.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/cohort/internal/role"
)

// EntryKind classifies history entries.
type EntryKind string

const (
	EntryThought    EntryKind = "thought"
	EntryAction     EntryKind = "action"
	EntryResearch   EntryKind = "research"
	EntryReflection EntryKind = "reflection"
)

// Entry is one line of an agent's private history.
type Entry struct {
	Kind   EntryKind `json:"kind"`
	Task   string    `json:"task,omitempty"`
	Output string    `json:"output"`
	At     time.Time `json:"at"`
}

// Result is the outcome of an act step.
type Result struct {
	Agent  string `json:"agent"`
	Task   string `json:"task"`
	Status string `json:"status"`
	Output string `json:"output"`
}

const StatusCompleted = "completed"

// Agent is one role-bound worker.
type Agent struct {
	profile  role.Profile
	behavior Behavior

	mu          sync.Mutex
	iteration   int
	currentTask string
	history     []Entry
}

func New(p role.Profile, b Behavior) *Agent {
	if b == nil {
		b = DefaultBehavior{}
	}
	return &Agent{profile: p, behavior: b}
}

func (a *Agent) Profile() role.Profile { return a.profile }
func (a *Agent) Role() role.Role       { return a.profile.Role }
func (a *Agent) Name() string          { return a.profile.Name }
func (a *Agent) Behavior() Behavior    { return a.behavior }

// Iteration returns how many times the agent has acted.
func (a *Agent) Iteration() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.iteration
}

func (a *Agent) CurrentTask() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTask
}

// History returns a copy of the agent's history.
func (a *Agent) History() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Agent) record(kind EntryKind, task, output string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, Entry{Kind: kind, Task: task, Output: output, At: time.Now()})
}

// Act assigns task and performs it once.
func (a *Agent) Act(ctx context.Context, task string) (Result, error) {
	a.Assign(task)
	return a.Perform(ctx, task)
}

// Assign makes task the current task and counts one iteration, whether or
// not the task later succeeds. It returns the new iteration count.
func (a *Agent) Assign(task string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentTask = task
	a.iteration++
	return a.iteration
}

// Perform runs the behavior for an assigned task without counting another
// iteration. Retries of one task call Perform again.
func (a *Agent) Perform(ctx context.Context, task string) (Result, error) {
	out, err := a.behavior.Act(ctx, a.profile, task)
	if err != nil {
		return Result{}, err
	}
	a.record(EntryAction, task, out)

	return Result{
		Agent:  a.profile.Name,
		Task:   task,
		Status: StatusCompleted,
		Output: out,
	}, nil
}

func (a *Agent) Research(ctx context.Context, topic string) (ResearchResult, error) {
	res, err := a.behavior.Research(ctx, a.profile, topic)
	if err != nil {
		return ResearchResult{}, err
	}
	a.record(EntryResearch, topic, fmt.Sprintf("%d findings from %d sources", len(res.KeyFindings), len(res.Sources)))
	return res, nil
}

func (a *Agent) Reflect(ctx context.Context, content, contentType string) (Evaluation, error) {
	ev, err := a.behavior.Reflect(ctx, a.profile, content, contentType)
	if err != nil {
		return Evaluation{}, err
	}
	a.record(EntryReflection, contentType, fmt.Sprintf("%d/%d", ev.TotalScore, ev.MaxScore))
	return ev, nil
}

// Think records a thought combining the role prompt and the given context.
func (a *Agent) Think(_ context.Context, input string) string {
	thought := fmt.Sprintf("[%s is thinking]\nSystem prompt: %s...\nContext: %s...\n",
		a.profile.Name, truncate(a.profile.Prompt, 200), truncate(input, 300))
	a.record(EntryThought, "", thought)
	return thought
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
