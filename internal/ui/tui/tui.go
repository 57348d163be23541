package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) UpdateProgress(done, total int) {
	t.program.Send(ProgressMsg{Done: done, Total: total})
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF0000"))
)

type Model struct {
	Title    string
	Status   string
	Done     int
	Total    int
	Log      []string
	Progress progress.Model
	Viewport viewport.Model
	Quitting bool
	Finished bool
	Ready    bool
	Width    int
	Height   int
}

type LogMsg string
type StatusMsg string
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg marks the run as finished; the view keeps showing until the
// user quits.
type DoneMsg struct{}

func NewModel(title string, total int) Model {
	p := progress.New(progress.WithDefaultGradient())
	return Model{
		Title:    title,
		Status:   "Initializing...",
		Total:    total,
		Progress: p,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-10)
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 10
		}

	case LogMsg:
		line := string(msg)
		if strings.HasPrefix(line, "✗") || strings.HasPrefix(line, "⛔") {
			line = errorStyle.Render(line)
		}
		m.Log = append(m.Log, line)
		m.Viewport.SetContent(strings.Join(m.Log, "\n"))
		m.Viewport.GotoBottom()

	case StatusMsg:
		m.Status = string(msg)

	case ProgressMsg:
		m.Done = msg.Done
		if msg.Total > 0 {
			m.Total = msg.Total
		}

	case DoneMsg:
		m.Finished = true
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	title := m.Title
	if title == "" {
		title = "Cohort"
	}
	header := titleStyle.Render(" " + title + " ")
	status := infoStyle.Render(fmt.Sprintf(" Status: %s ", m.Status))
	steps := fmt.Sprintf(" Steps: %d/%d ", m.Done, m.Total)

	ratio := 0.0
	if m.Total > 0 {
		ratio = float64(m.Done) / float64(m.Total)
	}
	prog := m.Progress.ViewAs(ratio)

	view := fmt.Sprintf("%s%s%s\n\n%s\n\n%s",
		header, status, steps,
		m.Viewport.View(),
		prog)

	if m.Quitting {
		return view + "\n  Quitting...\n"
	}
	if m.Finished {
		return view + "\n" + infoStyle.Render("  Done. Press q to exit.") + "\n"
	}

	return view
}
