package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel_Progress(t *testing.T) {
	var m tea.Model = NewModel("Cohort", 3)

	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(StatusMsg("research (researcher)"))
	m, _ = m.Update(ProgressMsg{Done: 2, Total: 3})
	m, _ = m.Update(LogMsg("commander → engineer: request"))

	model := m.(Model)
	if model.Done != 2 || model.Total != 3 {
		t.Errorf("unexpected progress %d/%d", model.Done, model.Total)
	}
	if len(model.Log) != 1 {
		t.Errorf("expected 1 log line, got %d", len(model.Log))
	}

	view := model.View()
	if !strings.Contains(view, "Cohort") || !strings.Contains(view, "Steps: 2/3") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestModel_NotReady(t *testing.T) {
	m := NewModel("Cohort", 1)
	if !strings.Contains(m.View(), "Initializing") {
		t.Errorf("expected initializing view, got %q", m.View())
	}
}

func TestModel_Quit(t *testing.T) {
	var m tea.Model = NewModel("Cohort", 1)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.(Model).Quitting {
		t.Error("expected quitting")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}
