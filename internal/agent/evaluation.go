package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cohort/internal/provider"
)

const (
	// DefaultReflectThreshold is the mean score below which an evaluation
	// carries issues and improvements.
	DefaultReflectThreshold = 8.0

	// MaxScore is the highest total over the five dimensions.
	MaxScore = 50

	maxDimension = 10
)

// Scores holds the five quality dimensions, each in 0..10.
type Scores struct {
	Completeness  int `json:"completeness"`
	Accuracy      int `json:"accuracy"`
	Actionability int `json:"actionability"`
	Clarity       int `json:"clarity"`
	BestPractices int `json:"best_practices"`
}

// DefaultScores are the scores reported when no evaluator is configured.
func DefaultScores() Scores {
	return Scores{
		Completeness:  8,
		Accuracy:      9,
		Actionability: 7,
		Clarity:       8,
		BestPractices: 8,
	}
}

// Clamp limits every dimension to 0..10.
func (s Scores) Clamp() Scores {
	c := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > maxDimension {
			return maxDimension
		}
		return v
	}
	return Scores{
		Completeness:  c(s.Completeness),
		Accuracy:      c(s.Accuracy),
		Actionability: c(s.Actionability),
		Clarity:       c(s.Clarity),
		BestPractices: c(s.BestPractices),
	}
}

func (s Scores) Total() int {
	return s.Completeness + s.Accuracy + s.Actionability + s.Clarity + s.BestPractices
}

func (s Scores) Mean() float64 {
	return float64(s.Total()) / 5
}

// Map returns the scores keyed by dimension name.
func (s Scores) Map() map[string]int {
	return map[string]int{
		"completeness":   s.Completeness,
		"accuracy":       s.Accuracy,
		"actionability":  s.Actionability,
		"clarity":        s.Clarity,
		"best_practices": s.BestPractices,
	}
}

// Evaluation is the reflector's structured judgment of a piece of content.
type Evaluation struct {
	EvaluationTarget string   `json:"evaluation_target"`
	Scores           Scores   `json:"scores"`
	TotalScore       int      `json:"total_score"`
	MaxScore         int      `json:"max_score"`
	IssuesFound      []string `json:"issues_found"`
	Improvements     []string `json:"improvements"`
}

// Clone returns a copy that shares no slices with e.
func (e Evaluation) Clone() Evaluation {
	e.IssuesFound = cloneStrings(e.IssuesFound)
	e.Improvements = cloneStrings(e.Improvements)
	return e
}

// NewEvaluation applies the threshold rule to scores.
func NewEvaluation(target string, scores Scores, threshold float64) Evaluation {
	scores = scores.Clamp()
	ev := Evaluation{
		EvaluationTarget: target,
		Scores:           scores,
		TotalScore:       scores.Total(),
		MaxScore:         MaxScore,
		IssuesFound:      []string{},
		Improvements:     []string{},
	}
	if scores.Mean() < threshold {
		ev.IssuesFound = append(ev.IssuesFound, "some content needs updating")
		ev.Improvements = append(ev.Improvements, "add more hands-on examples")
	}
	return ev
}

// Evaluator produces scores for a piece of content.
type Evaluator interface {
	Evaluate(ctx context.Context, content, contentType string) (Scores, error)
}

// StaticEvaluator always returns the same scores.
type StaticEvaluator struct {
	Scores Scores
}

func (e StaticEvaluator) Evaluate(_ context.Context, _, _ string) (Scores, error) {
	return e.Scores, nil
}

// BackendEvaluator asks a provider to score content and parses the JSON
// object in its reply.
type BackendEvaluator struct {
	Provider provider.Provider
	Prompt   string
}

func (e *BackendEvaluator) Evaluate(ctx context.Context, content, contentType string) (Scores, error) {
	user := fmt.Sprintf("Evaluate the following %s. Reply with a JSON object containing a \"scores\" field "+
		"with completeness, accuracy, actionability, clarity and best_practices, each 0-10.\n\n%s", contentType, content)
	resp, err := e.Provider.Chat(ctx, provider.SystemAndUser(e.Prompt, user))
	if err != nil {
		return Scores{}, err
	}
	return ParseScores(resp.Content)
}

// ParseScores extracts scores from the first JSON object in text. Both
// {"scores": {...}} and a bare score object are accepted.
func ParseScores(text string) (Scores, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Scores{}, errors.New("no JSON object in evaluator reply")
	}
	raw := []byte(text[start : end+1])

	var wrapped struct {
		Scores *Scores `json:"scores"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return Scores{}, fmt.Errorf("parse evaluator reply: %w", err)
	}
	if wrapped.Scores != nil {
		return *wrapped.Scores, nil
	}

	var bare Scores
	if err := json.Unmarshal(raw, &bare); err != nil {
		return Scores{}, fmt.Errorf("parse evaluator reply: %w", err)
	}
	return bare, nil
}
