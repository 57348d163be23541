// Package report summarises the state of an orchestrator session.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RecordView is the part of an execution record the summary needs.
type RecordView struct {
	Role       string
	TotalScore int
	MaxScore   int
	Evaluated  bool
	Failed     bool
}

// Input is what the orchestrator exposes to the report.
type Input struct {
	Agents     int
	Executions int
	Messages   int
	Roles      []string
	Records    []RecordView
}

// RoleCount is the number of executions targeting one role.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// Summary is the structured form of the report.
type Summary struct {
	Agents     int         `json:"agents"`
	Executions int         `json:"executions"`
	Messages   int         `json:"messages"`
	PerRole    []RoleCount `json:"per_role"`
	MeanScore  float64     `json:"mean_score"`
	MaxScore   int         `json:"max_score"`
	Failures   int         `json:"failures"`
}

// Build aggregates the input. PerRole follows the order of in.Roles and
// skips roles without executions.
func Build(in Input) Summary {
	s := Summary{
		Agents:     in.Agents,
		Executions: in.Executions,
		Messages:   in.Messages,
		PerRole:    []RoleCount{},
	}

	counts := make(map[string]int)
	var total, evaluated int
	for _, r := range in.Records {
		counts[r.Role]++
		if r.Failed {
			s.Failures++
		}
		if r.Evaluated {
			total += r.TotalScore
			evaluated++
			if r.MaxScore > s.MaxScore {
				s.MaxScore = r.MaxScore
			}
		}
	}
	for _, role := range in.Roles {
		if n := counts[role]; n > 0 {
			s.PerRole = append(s.PerRole, RoleCount{Role: role, Count: n})
		}
	}
	if evaluated > 0 {
		s.MeanScore = float64(total) / float64(evaluated)
	}
	return s
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true)
)

// Text renders the summary as plain lines.
func Text(s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agents: %d\n", s.Agents)
	fmt.Fprintf(&sb, "Executions: %d\n", s.Executions)
	fmt.Fprintf(&sb, "Messages: %d\n", s.Messages)
	for _, rc := range s.PerRole {
		fmt.Fprintf(&sb, "  %s: %d\n", rc.Role, rc.Count)
	}
	if s.MaxScore > 0 {
		fmt.Fprintf(&sb, "Mean score: %.1f/%d\n", s.MeanScore, s.MaxScore)
	}
	if s.Failures > 0 {
		fmt.Fprintf(&sb, "Partial runs: %d\n", s.Failures)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Render draws the summary inside a bordered box.
func Render(s Summary) string {
	return boxStyle.Render(headerStyle.Render("Orchestration report") + "\n" + Text(s))
}
