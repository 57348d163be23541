package ui

import (
	"testing"

	"github.com/felixgeelhaar/cohort/internal/runtime"
)

func TestSilentUI_ImplementsInterface(t *testing.T) {
	var _ UI = SilentUI{}
	var _ UI = &SilentUI{}

	// Should not panic
	ui := SilentUI{}
	ui.UpdateStatus("test status")
	ui.UpdateProgress(1, 3)
	ui.Log("")
}

// MockUI implements UI interface for testing
type MockUI struct {
	StatusUpdates   []string
	ProgressUpdates [][2]int
	LogMessages     []string
}

func (m *MockUI) UpdateStatus(status string) {
	m.StatusUpdates = append(m.StatusUpdates, status)
}

func (m *MockUI) UpdateProgress(done, total int) {
	m.ProgressUpdates = append(m.ProgressUpdates, [2]int{done, total})
}

func (m *MockUI) Log(msg string) {
	m.LogMessages = append(m.LogMessages, msg)
}

func (m *MockUI) lastProgress() [2]int {
	if len(m.ProgressUpdates) == 0 {
		return [2]int{}
	}
	return m.ProgressUpdates[len(m.ProgressUpdates)-1]
}

func TestFollow_TaskRun(t *testing.T) {
	bus := runtime.NewEventBus()
	ui := &MockUI{}
	Follow(bus, ui)

	bus.PublishWithData(runtime.EventRunStart, "r1", map[string]interface{}{"kind": "task"})
	bus.PublishWithData(runtime.EventStepStart, "r1", map[string]interface{}{"step": "research", "role": "researcher"})
	bus.PublishWithData(runtime.EventStepEnd, "r1", map[string]interface{}{"step": "research"})

	if got := ui.lastProgress(); got != [2]int{1, 3} {
		t.Errorf("expected 1/3, got %v", got)
	}
	if ui.StatusUpdates[len(ui.StatusUpdates)-1] != "research (researcher)" {
		t.Errorf("unexpected status %q", ui.StatusUpdates[len(ui.StatusUpdates)-1])
	}

	bus.PublishWithData(runtime.EventStepFailed, "r1", map[string]interface{}{"step": "act", "error": "boom"})
	if got := ui.lastProgress(); got != [2]int{2, 3} {
		t.Errorf("expected 2/3, got %v", got)
	}
	if len(ui.LogMessages) != 1 || ui.LogMessages[0] != "✗ act failed: boom" {
		t.Errorf("unexpected log %v", ui.LogMessages)
	}

	bus.PublishWithData(runtime.EventTaskComplete, "r1", map[string]interface{}{"status": "partial"})
	if got := ui.lastProgress(); got != [2]int{3, 3} {
		t.Errorf("expected 3/3, got %v", got)
	}
	if ui.StatusUpdates[len(ui.StatusUpdates)-1] != "Finished: partial" {
		t.Errorf("unexpected final status %q", ui.StatusUpdates[len(ui.StatusUpdates)-1])
	}
}

func TestFollow_PipelineCountsTopics(t *testing.T) {
	bus := runtime.NewEventBus()
	ui := &MockUI{}
	Follow(bus, ui)

	bus.PublishWithData(runtime.EventRunStart, "p1", map[string]interface{}{"kind": "pipeline", "topics": 2})
	bus.PublishWithData(runtime.EventStepEnd, "p1", map[string]interface{}{"step": "research"})
	bus.PublishWithData(runtime.EventStepEnd, "p1", map[string]interface{}{"step": "reflect"})
	if got := ui.lastProgress(); got != [2]int{0, 2} {
		t.Errorf("steps should not advance a pipeline, got %v", got)
	}

	bus.PublishWithData(runtime.EventTopicAnalyzed, "p1", map[string]interface{}{"key": "week1", "status": "analyzed"})
	if got := ui.lastProgress(); got != [2]int{1, 2} {
		t.Errorf("expected 1/2, got %v", got)
	}
	if ui.LogMessages[0] != "week1 analyzed" {
		t.Errorf("unexpected log %q", ui.LogMessages[0])
	}
}

func TestFollow_MessagesAndGuard(t *testing.T) {
	bus := runtime.NewEventBus()
	ui := &MockUI{}
	Follow(bus, ui)

	bus.PublishWithData(runtime.EventMessage, "r1", map[string]interface{}{"from": "commander", "to": "engineer", "kind": "request"})
	bus.PublishWithData(runtime.EventGuardViolation, "r1", map[string]interface{}{"rule": "max_task_length", "message": "too long"})

	want := []string{"commander → engineer: request", "⛔ guard max_task_length: too long"}
	if len(ui.LogMessages) != len(want) {
		t.Fatalf("expected %d logs, got %v", len(want), ui.LogMessages)
	}
	for i, w := range want {
		if ui.LogMessages[i] != w {
			t.Errorf("log %d: expected %q, got %q", i, w, ui.LogMessages[i])
		}
	}
}
