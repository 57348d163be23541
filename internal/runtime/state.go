package runtime

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// RunState represents the progress of one orchestration run.
type RunState struct {
	RunID          string    `json:"run_id"`
	Kind           string    `json:"kind"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	CurrentStep    string    `json:"current_step"`
	StepsCompleted int       `json:"steps_completed"`
	Failures       []string  `json:"failures"`
	StartedAt      time.Time `json:"started_at"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
}

// StateManager tracks run state in memory.
// It provides thread-safe access to run state and can follow an EventBus.
type StateManager struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewStateManager creates a new state manager.
func NewStateManager() *StateManager {
	return &StateManager{
		runs: make(map[string]*RunState),
	}
}

// InitRun registers a new run.
func (sm *StateManager) InitRun(runID, kind, subject string) RunState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	state := &RunState{
		RunID:         runID,
		Kind:          kind,
		Subject:       subject,
		Status:        StatusRunning,
		Failures:      []string{},
		StartedAt:     now,
		LastUpdatedAt: now,
	}
	sm.runs[runID] = state
	return *state
}

// GetState returns a copy of the state for a run.
func (sm *StateManager) GetState(runID string) (RunState, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	state, ok := sm.runs[runID]
	if !ok {
		return RunState{}, false
	}
	return state.clone(), true
}

func (s *RunState) clone() RunState {
	c := *s
	c.Failures = append([]string{}, s.Failures...)
	return c
}

func (sm *StateManager) update(runID string, fn func(*RunState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state, ok := sm.runs[runID]; ok {
		fn(state)
		state.LastUpdatedAt = time.Now()
	}
}

// SetStep records the step currently executing.
func (sm *StateManager) SetStep(runID, step string) {
	sm.update(runID, func(s *RunState) { s.CurrentStep = step })
}

// CompleteStep increments the completed step counter.
func (sm *StateManager) CompleteStep(runID string) {
	sm.update(runID, func(s *RunState) { s.StepsCompleted++ })
}

// AddFailure appends a failure description.
func (sm *StateManager) AddFailure(runID, failure string) {
	sm.update(runID, func(s *RunState) { s.Failures = append(s.Failures, failure) })
}

// SetStatus updates the run status.
func (sm *StateManager) SetStatus(runID, status string) {
	sm.update(runID, func(s *RunState) { s.Status = status })
}

// GetStatus returns the current run status.
func (sm *StateManager) GetStatus(runID string) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if state, ok := sm.runs[runID]; ok {
		return state.Status
	}
	return ""
}

// List returns copies of all runs, oldest first.
func (sm *StateManager) List() []RunState {
	sm.mu.RLock()
	out := make([]RunState, 0, len(sm.runs))
	for _, s := range sm.runs {
		out = append(out, s.clone())
	}
	sm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// CleanupRun removes the run from memory.
func (sm *StateManager) CleanupRun(runID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.runs, runID)
}

// Track keeps run state in sync with events published on bus.
func (sm *StateManager) Track(bus *EventBus) {
	bus.SubscribeAll(sm.apply)
}

func (sm *StateManager) apply(e Event) {
	str := func(key string) string {
		if v, ok := e.Data[key]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}

	switch e.Type {
	case EventRunStart:
		sm.InitRun(e.RunID, str("kind"), str("subject"))
	case EventStepStart:
		sm.SetStep(e.RunID, str("step"))
	case EventStepEnd:
		sm.CompleteStep(e.RunID)
	case EventStepFailed:
		sm.AddFailure(e.RunID, str("step")+": "+str("error"))
	case EventGuardViolation:
		sm.AddFailure(e.RunID, "guard: "+str("rule"))
	case EventTaskComplete, EventPipelineComplete:
		status := str("status")
		if status == "" {
			status = StatusCompleted
		}
		sm.SetStatus(e.RunID, status)
		sm.SetStep(e.RunID, "")
	case EventRunError:
		sm.SetStatus(e.RunID, StatusFailed)
	}
}
