package plugin

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/cohort/internal/agent"
)

// HeuristicEvaluator scores markdown content from its shape alone: length,
// headings, code blocks, checklists and cited sources.
type HeuristicEvaluator struct{}

func (HeuristicEvaluator) Name() string     { return "heuristic" }
func (HeuristicEvaluator) Version() string  { return "1.0" }
func (HeuristicEvaluator) Type() PluginType { return PluginTypeEvaluator }

func (HeuristicEvaluator) Evaluate(ctx context.Context, content, _ string) (agent.Scores, error) {
	if err := ctx.Err(); err != nil {
		return agent.Scores{}, err
	}

	lower := strings.ToLower(content)
	words := len(strings.Fields(content))
	headings := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings++
		}
	}

	s := agent.Scores{
		Completeness:  4 + min(words/50, 6),
		Accuracy:      6,
		Actionability: 4,
		Clarity:       5 + min(headings, 3),
		BestPractices: 6,
	}
	if strings.Contains(lower, "sources:") || strings.Contains(lower, "http") {
		s.Accuracy += 3
	}
	if strings.Contains(content, "```") {
		s.Actionability += 3
	}
	if strings.Contains(lower, "## checklist") || strings.Contains(lower, "- [ ]") {
		s.Actionability += 2
		s.Clarity++
	}
	if strings.Contains(lower, "test") {
		s.BestPractices += 2
	}
	if strings.Contains(lower, "error") {
		s.BestPractices += 2
	}
	return s.Clamp(), nil
}
