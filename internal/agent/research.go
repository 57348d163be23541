package agent

import (
	"fmt"
	"strings"
	"time"
)

// DefaultResearchConfidence is the confidence attached to research results.
const DefaultResearchConfidence = 0.85

const maxSources = 3
const maxFindings = 3

// DefaultKnowledgeSources is the catalogue the researcher cites from.
var DefaultKnowledgeSources = []string{
	"FastAPI documentation",
	"LangChain / LangGraph documentation",
	"OpenAI API documentation",
	"Python documentation",
	"Engineering blogs",
}

// ResearchResult summarises what is known about a topic.
type ResearchResult struct {
	Topic        string    `json:"topic"`
	Sources      []string  `json:"sources"`
	KeyFindings  []string  `json:"key_findings"`
	CodeExamples []string  `json:"code_examples"`
	LastVerified time.Time `json:"last_verified"`
	Confidence   float64   `json:"confidence"`
}

// Clone returns a copy that shares no slices with r.
func (r ResearchResult) Clone() ResearchResult {
	r.Sources = cloneStrings(r.Sources)
	r.KeyFindings = cloneStrings(r.KeyFindings)
	r.CodeExamples = cloneStrings(r.CodeExamples)
	return r
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func defaultFindings(topic string) []string {
	return []string{
		fmt.Sprintf("latest finding 1 about %s", topic),
		fmt.Sprintf("latest finding 2 about %s", topic),
		fmt.Sprintf("best practices for %s", topic),
	}
}

// parseFindings turns a backend reply into at most three findings, one per
// non-empty line with list markers removed.
func parseFindings(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxFindings {
			break
		}
	}
	return out
}
