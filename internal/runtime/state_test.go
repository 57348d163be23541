package runtime

import (
	"sync"
	"testing"
)

func TestNewStateManager(t *testing.T) {
	sm := NewStateManager()
	if sm == nil {
		t.Fatal("expected non-nil StateManager")
	}
	if sm.runs == nil {
		t.Fatal("expected non-nil runs map")
	}
}

func TestStateManager_InitRun(t *testing.T) {
	sm := NewStateManager()
	state := sm.InitRun("run-1", "task", "Build a login form")

	if state.RunID != "run-1" {
		t.Errorf("expected run ID 'run-1', got %q", state.RunID)
	}
	if state.StepsCompleted != 0 {
		t.Errorf("expected 0 steps, got %d", state.StepsCompleted)
	}
	if state.Status != StatusRunning {
		t.Errorf("expected status 'running', got %q", state.Status)
	}
}

func TestStateManager_GetState(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")

	state, ok := sm.GetState("run-1")
	if !ok {
		t.Fatal("expected state")
	}
	if state.Kind != "task" {
		t.Errorf("expected kind 'task', got %q", state.Kind)
	}

	if _, ok := sm.GetState("missing"); ok {
		t.Error("expected no state for unknown run")
	}
}

func TestStateManager_Steps(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")

	sm.SetStep("run-1", "research")
	sm.CompleteStep("run-1")
	sm.SetStep("run-1", "act")
	sm.AddFailure("run-1", "act: timeout")

	state, _ := sm.GetState("run-1")
	if state.CurrentStep != "act" {
		t.Errorf("expected step 'act', got %q", state.CurrentStep)
	}
	if state.StepsCompleted != 1 {
		t.Errorf("expected 1 completed step, got %d", state.StepsCompleted)
	}
	if len(state.Failures) != 1 {
		t.Errorf("expected 1 failure, got %d", len(state.Failures))
	}
}

func TestStateManager_Status(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")

	sm.SetStatus("run-1", StatusPartial)
	if got := sm.GetStatus("run-1"); got != StatusPartial {
		t.Errorf("expected 'partial', got %q", got)
	}
	if got := sm.GetStatus("missing"); got != "" {
		t.Errorf("expected empty status, got %q", got)
	}
}

func TestStateManager_CleanupRun(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")
	sm.CleanupRun("run-1")

	if _, ok := sm.GetState("run-1"); ok {
		t.Error("expected run to be removed")
	}
}

func TestStateManager_GetStateReturnsACopy(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")
	sm.AddFailure("run-1", "a")

	state, _ := sm.GetState("run-1")
	state.Failures[0] = "mutated"

	again, _ := sm.GetState("run-1")
	if again.Failures[0] != "a" {
		t.Error("GetState should return a copy")
	}
}

func TestStateManager_Track(t *testing.T) {
	sm := NewStateManager()
	bus := NewEventBus()
	sm.Track(bus)

	bus.PublishWithData(EventRunStart, "run-9", map[string]interface{}{"kind": "pipeline", "subject": "3 topics"})
	bus.PublishWithData(EventStepStart, "run-9", map[string]interface{}{"step": "research"})
	bus.PublishWithData(EventStepEnd, "run-9", map[string]interface{}{"step": "research"})
	bus.PublishWithData(EventStepFailed, "run-9", map[string]interface{}{"step": "reflect", "error": "boom"})
	bus.PublishWithData(EventPipelineComplete, "run-9", map[string]interface{}{"status": StatusPartial})

	state, ok := sm.GetState("run-9")
	if !ok {
		t.Fatal("expected tracked run")
	}
	if state.Kind != "pipeline" || state.Subject != "3 topics" {
		t.Errorf("unexpected run header %+v", state)
	}
	if state.StepsCompleted != 1 {
		t.Errorf("expected 1 step, got %d", state.StepsCompleted)
	}
	if len(state.Failures) != 1 || state.Failures[0] != "reflect: boom" {
		t.Errorf("unexpected failures %v", state.Failures)
	}
	if state.Status != StatusPartial {
		t.Errorf("expected partial, got %q", state.Status)
	}

	bus.PublishSimple(EventRunError, "run-9")
	if sm.GetStatus("run-9") != StatusFailed {
		t.Error("expected failed status after run error")
	}
}

func TestStateManager_List(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("a", "task", "1")
	sm.InitRun("b", "task", "2")

	if got := len(sm.List()); got != 2 {
		t.Errorf("expected 2 runs, got %d", got)
	}
}

func TestStateManager_ConcurrentAccess(t *testing.T) {
	sm := NewStateManager()
	sm.InitRun("run-1", "task", "x")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.CompleteStep("run-1")
			_, _ = sm.GetState("run-1")
		}()
	}
	wg.Wait()

	state, _ := sm.GetState("run-1")
	if state.StepsCompleted != 100 {
		t.Errorf("expected 100 steps, got %d", state.StepsCompleted)
	}
}
