package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cohort/internal/provider"
	"github.com/felixgeelhaar/cohort/internal/role"
)

// Behavior is the set of capabilities a role can exercise.
type Behavior interface {
	Act(ctx context.Context, p role.Profile, task string) (string, error)
	Research(ctx context.Context, p role.Profile, topic string) (ResearchResult, error)
	Reflect(ctx context.Context, p role.Profile, content, contentType string) (Evaluation, error)
}

// DefaultBehavior acts on tasks and supports nothing else. With a nil
// Backend the act output is simulated.
type DefaultBehavior struct {
	Backend provider.Provider
}

func (b DefaultBehavior) Act(ctx context.Context, p role.Profile, task string) (string, error) {
	out := fmt.Sprintf("[%s] completed task: %s", p.Name, task)
	if b.Backend == nil {
		return out, nil
	}

	resp, err := b.Backend.Chat(ctx, provider.SystemAndUser(p.Prompt, task))
	if err != nil {
		return "", &BackendError{Role: p.Role, Op: "act", Err: err}
	}
	if reply := strings.TrimSpace(resp.Content); reply != "" {
		out += "\n\n" + reply
	}
	return out, nil
}

func (b DefaultBehavior) Research(context.Context, role.Profile, string) (ResearchResult, error) {
	return ResearchResult{}, ErrUnsupported
}

func (b DefaultBehavior) Reflect(context.Context, role.Profile, string, string) (Evaluation, error) {
	return Evaluation{}, ErrUnsupported
}

// ResearchBehavior adds topic research to the default behavior. Confidence
// is reported as set; use DefaultBehaviorOptions for the stock value.
type ResearchBehavior struct {
	DefaultBehavior
	Sources    []string
	Confidence float64
}

func (b ResearchBehavior) Research(ctx context.Context, p role.Profile, topic string) (ResearchResult, error) {
	sources := b.Sources
	if len(sources) == 0 {
		sources = DefaultKnowledgeSources
	}
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	findings := defaultFindings(topic)
	if b.Backend != nil {
		user := fmt.Sprintf("List the %d most important current findings about %q, one per line.", maxFindings, topic)
		resp, err := b.Backend.Chat(ctx, provider.SystemAndUser(p.Prompt, user))
		if err != nil {
			return ResearchResult{}, &BackendError{Role: p.Role, Op: "research", Err: err}
		}
		if parsed := parseFindings(resp.Content); len(parsed) > 0 {
			findings = parsed
		}
	}

	return ResearchResult{
		Topic:        topic,
		Sources:      append([]string(nil), sources...),
		KeyFindings:  findings,
		CodeExamples: []string{},
		LastVerified: time.Now(),
		Confidence:   b.Confidence,
	}, nil
}

// ReflectBehavior adds content evaluation to the default behavior. A zero
// Threshold never flags issues.
type ReflectBehavior struct {
	DefaultBehavior
	Evaluator Evaluator
	Threshold float64
}

func (b ReflectBehavior) Reflect(ctx context.Context, p role.Profile, content, contentType string) (Evaluation, error) {
	scores := DefaultScores()
	if b.Evaluator != nil {
		s, err := b.Evaluator.Evaluate(ctx, content, contentType)
		if err != nil {
			return Evaluation{}, &BackendError{Role: p.Role, Op: "reflect", Err: err}
		}
		scores = s
	}

	return NewEvaluation(contentType, scores, b.Threshold), nil
}

// OptimizePrompt analyses a prompt and returns it wrapped with concrete
// output requirements.
func (b ReflectBehavior) OptimizePrompt(prompt string) string {
	structure := "needs work"
	if strings.Contains(prompt, "##") {
		structure = "good"
	}

	var sb strings.Builder
	sb.WriteString("[optimized prompt]\n\n")
	sb.WriteString("Analysis:\n")
	fmt.Fprintf(&sb, "- length: %d characters\n", len([]rune(prompt)))
	fmt.Fprintf(&sb, "- structure: %s\n\n", structure)
	sb.WriteString("Suggestions:\n")
	sb.WriteString("1. State the expected output format explicitly\n")
	sb.WriteString("2. Include a concrete example\n")
	sb.WriteString("3. Set boundaries and limits\n\n")
	sb.WriteString(prompt)
	sb.WriteString("\n\n## Output requirements\nFollow the output format above strictly.\n")
	return sb.String()
}

// ContentBehavior adds tutorial authoring to the default behavior.
type ContentBehavior struct {
	DefaultBehavior
}

// Tutorial renders a markdown tutorial skeleton for topic, seeded with
// research findings when available.
func (b ContentBehavior) Tutorial(topic string, research *ResearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", topic)
	fmt.Fprintf(&sb, "> **Learning goal**: master the core concepts and practical use of %s\n\n---\n\n", topic)
	sb.WriteString("## Goals\n\nAfter this tutorial you will be able to:\n\n")
	fmt.Fprintf(&sb, "- understand the fundamentals of %s\n", topic)
	fmt.Fprintf(&sb, "- use %s to solve real problems\n", topic)
	sb.WriteString("- write code that follows best practices\n\n---\n\n")
	sb.WriteString("## Core concepts\n\n")
	fmt.Fprintf(&sb, "### What is %s?\n\n", topic)
	if research != nil && len(research.KeyFindings) > 0 {
		for _, f := range research.KeyFindings {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
		if len(research.Sources) > 0 {
			fmt.Fprintf(&sb, "Sources: %s\n\n", strings.Join(research.Sources, ", "))
		}
	} else {
		fmt.Fprintf(&sb, "%s is...\n\n", topic)
	}
	sb.WriteString("---\n\n## Implementation\n\n```python\n")
	fmt.Fprintf(&sb, "# %s example\npass\n```\n\n---\n\n", topic)
	sb.WriteString("## Checklist\n\n- [ ] Understand the core concepts\n- [ ] Run the example code\n- [ ] Finish the practice project\n")
	return sb.String()
}

// ForRole picks the behavior a role gets by default.
func ForRole(r role.Role, backend provider.Provider, opts BehaviorOptions) Behavior {
	base := DefaultBehavior{Backend: backend}
	switch r {
	case role.Researcher:
		return ResearchBehavior{DefaultBehavior: base, Sources: opts.Sources, Confidence: opts.Confidence}
	case role.Reflector:
		return ReflectBehavior{DefaultBehavior: base, Evaluator: opts.Evaluator, Threshold: opts.Threshold}
	case role.Content:
		return ContentBehavior{DefaultBehavior: base}
	default:
		return base
	}
}

// BehaviorOptions tunes the specialised behaviors built by ForRole. Values
// are used as given.
type BehaviorOptions struct {
	Sources    []string
	Confidence float64
	Evaluator  Evaluator
	Threshold  float64
}

// DefaultBehaviorOptions carries the stock threshold and confidence.
func DefaultBehaviorOptions() BehaviorOptions {
	return BehaviorOptions{
		Confidence: DefaultResearchConfidence,
		Threshold:  DefaultReflectThreshold,
	}
}
