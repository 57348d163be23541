package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/cohort/internal/provider"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluation_ThresholdRule(t *testing.T) {
	testCases := []struct {
		name       string
		scores     Scores
		wantIssues bool
	}{
		{"default scores at threshold", DefaultScores(), false},
		{"all tens", Scores{10, 10, 10, 10, 10}, false},
		{"just below", Scores{8, 8, 8, 8, 7}, true},
		{"all zero", Scores{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev := NewEvaluation("x", tc.scores, DefaultReflectThreshold)
			assert.Equal(t, tc.wantIssues, len(ev.IssuesFound) > 0)
			assert.Equal(t, tc.wantIssues, len(ev.Improvements) > 0)
			assert.Equal(t, tc.scores.Total(), ev.TotalScore)
		})
	}
}

func TestEvaluation_JSONKeys(t *testing.T) {
	data, err := json.Marshal(NewEvaluation("task_result", DefaultScores(), DefaultReflectThreshold))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"evaluation_target", "scores", "total_score", "max_score", "issues_found", "improvements"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, []any{}, m["issues_found"])
}

func TestParseScores(t *testing.T) {
	wrapped := "Here you go:\n```json\n{\"scores\": {\"completeness\": 6, \"accuracy\": 7, \"actionability\": 8, \"clarity\": 9, \"best_practices\": 10}}\n```"
	s, err := ParseScores(wrapped)
	require.NoError(t, err)
	assert.Equal(t, Scores{6, 7, 8, 9, 10}, s)

	bare := `{"completeness": 1, "accuracy": 2, "actionability": 3, "clarity": 4, "best_practices": 5}`
	s, err = ParseScores(bare)
	require.NoError(t, err)
	assert.Equal(t, 15, s.Total())

	_, err = ParseScores("no json here")
	assert.Error(t, err)
}

func TestBackendEvaluator(t *testing.T) {
	stub := provider.NewStubProvider()
	stub.Responses = []provider.Response{{Content: `{"scores": {"completeness": 4, "accuracy": 4, "actionability": 4, "clarity": 4, "best_practices": 4}}`}}
	p, err := role.DefaultRegistry().Lookup(role.Reflector)
	require.NoError(t, err)

	a := New(p, ReflectBehavior{Evaluator: &BackendEvaluator{Provider: stub, Prompt: p.Prompt}, Threshold: DefaultReflectThreshold})
	ev, err := a.Reflect(context.Background(), "draft tutorial", "curriculum_content")
	require.NoError(t, err)
	assert.Equal(t, 20, ev.TotalScore)
	assert.NotEmpty(t, ev.IssuesFound)
}

func TestNewMessage(t *testing.T) {
	m, err := NewMessage(role.Commander, role.Engineer, KindRequest, "build it")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, KindRequest, m.Kind)

	_, err = NewMessage(role.Commander, role.Engineer, MessageKind("gossip"), "x")
	assert.Error(t, err)
}
