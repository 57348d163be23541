package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cohort/internal/config"
	"github.com/felixgeelhaar/cohort/internal/curriculum"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/provider"
	"github.com/felixgeelhaar/cohort/internal/report"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...orchestrate.Option) (*Server, *httptest.Server) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "week1", "tutorials"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "week1", "tutorials", "01_async_basics.md"), []byte("# Async basics"), 0644))

	orch, err := orchestrate.New(opts...)
	require.NoError(t, err)

	lib := curriculum.NewLibrary(root, guard.New(guard.DefaultPolicy))
	s := NewServer(orch, curriculum.Default(), lib, config.WebConfig{Port: 0}, nil, "test")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCurriculumAndContent(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/curriculum")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cur curriculum.Curriculum
	decode(t, resp, &cur)
	assert.Len(t, cur.Weeks, 3)

	testCases := []struct {
		name string
		path string
		code int
	}{
		{"found", "week1/tutorials/01_async_basics.md", http.StatusOK},
		{"missing", "week1/tutorials/04_pydantic_basics.md", http.StatusNotFound},
		{"traversal", "../secret.md", http.StatusForbidden},
		{"empty", "", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/content?path=" + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}

	resp, err = http.Get(ts.URL + "/api/content?path=week1/tutorials/01_async_basics.md")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "# Async basics", body["content"])
}

func TestExecuteTask(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tasks", taskRequest{Task: "design a login form", Role: "designer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out taskResponse
	decode(t, resp, &out)

	assert.Equal(t, runtime.StatusCompleted, out.Status)
	require.NotNil(t, out.Outcome.Result)
	assert.NotNil(t, out.Outcome.Research)
	assert.NotNil(t, out.Outcome.Evaluation)
	assert.Empty(t, out.Failures)

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	var history []orchestrate.ExecutionRecord
	decode(t, resp, &history)
	require.Len(t, history, 1)

	resp, err = http.Get(ts.URL + "/api/runs/" + history[0].ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run runResponse
	decode(t, resp, &run)
	require.NotNil(t, run.State)
	require.NotNil(t, run.Record)
	assert.Equal(t, runtime.StatusCompleted, run.State.Status)
	assert.Equal(t, "task", run.State.Kind)
	assert.Equal(t, history[0].ID, run.Record.ID)

	resp, err = http.Get(ts.URL + "/api/report")
	require.NoError(t, err)
	var summary report.Summary
	decode(t, resp, &summary)
	assert.Equal(t, 8, summary.Agents)
	assert.Equal(t, 1, summary.Executions)
	assert.Equal(t, 3, summary.Messages)
}

func TestExecuteTask_BadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tasks", taskRequest{Task: "do something useful", Role: "janitor"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/tasks", taskRequest{Role: "engineer"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(ts.URL+"/api/tasks", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/runs/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteTask_Partial(t *testing.T) {
	stub := provider.NewStubProvider()
	stub.Err = errors.New("backend down")
	_, ts := newTestServer(t,
		orchestrate.WithBackend(stub),
		orchestrate.WithStepPolicy(orchestrate.StepPolicy{Timeout: time.Second, MaxAttempts: 1}),
	)

	resp := postJSON(t, ts.URL+"/api/tasks", taskRequest{Task: "implement the login form", Role: "engineer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out taskResponse
	decode(t, resp, &out)

	assert.Equal(t, runtime.StatusPartial, out.Status)
	assert.Nil(t, out.Outcome.Result)
	assert.NotEmpty(t, out.Failures)
}

func TestRunPipeline(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/pipeline", pipelineRequest{Weeks: []int{1, 2}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result orchestrate.PipelineResult
	decode(t, resp, &result)
	require.Len(t, result.Topics, 2)
	assert.Equal(t, "week1", result.Topics[0].Key)
	assert.Equal(t, orchestrate.StatusAnalyzed, result.Topics[1].Status)

	resp = postJSON(t, ts.URL+"/api/pipeline", pipelineRequest{Topics: []string{"FastAPI"}})
	decode(t, resp, &result)
	require.Len(t, result.Topics, 1)
	assert.Equal(t, "topic1", result.Topics[0].Key)

	resp = postJSON(t, ts.URL+"/api/pipeline", pipelineRequest{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/tasks", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEventsWebSocket(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := postJSON(t, ts.URL+"/api/tasks", taskRequest{Task: "write the week one tutorial", Role: "content"})
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, string(runtime.EventRunStart), ev.Type)
}
