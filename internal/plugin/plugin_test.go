package plugin

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"testing"

	"github.com/felixgeelhaar/cohort/internal/agent"
)

type MockEvaluator struct{}

func (m *MockEvaluator) Name() string     { return "mock" }
func (m *MockEvaluator) Version() string  { return "0.1" }
func (m *MockEvaluator) Type() PluginType { return PluginTypeEvaluator }
func (m *MockEvaluator) Evaluate(ctx context.Context, content, contentType string) (agent.Scores, error) {
	if content == "fail" {
		return agent.Scores{}, errors.New("cannot score")
	}
	return agent.Scores{Completeness: 10, Accuracy: 9, Actionability: 8, Clarity: 7, BestPractices: len(contentType)}, nil
}

func newPipeClient(t *testing.T, impl EvaluatorPlugin) *EvaluatorRPCClient {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	p := &EvaluatorRPCPlugin{Impl: impl}
	srvImpl, err := p.Server(nil)
	if err != nil {
		t.Fatal(err)
	}
	server := rpc.NewServer()
	if err := server.RegisterName("Plugin", srvImpl); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	go server.ServeConn(serverConn)

	rpcClient := rpc.NewClient(clientConn)
	t.Cleanup(func() { rpcClient.Close() })

	raw, err := p.Client(nil, rpcClient)
	if err != nil {
		t.Fatal(err)
	}
	client, ok := raw.(*EvaluatorRPCClient)
	if !ok {
		t.Fatalf("unexpected client type %T", raw)
	}
	return client
}

func TestEvaluatorRPC(t *testing.T) {
	client := newPipeClient(t, &MockEvaluator{})

	var _ agent.Evaluator = client

	scores, err := client.Evaluate(context.Background(), "tutorial body", "task")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if scores.Completeness != 10 || scores.BestPractices != 4 {
		t.Errorf("unexpected scores %+v", scores)
	}

	if _, err := client.Evaluate(context.Background(), "fail", "task"); err == nil || !strings.Contains(err.Error(), "cannot score") {
		t.Errorf("expected remote error, got %v", err)
	}

	if client.Name() != "mock" || client.Version() != "0.1" {
		t.Errorf("unexpected info %s %s", client.Name(), client.Version())
	}
}

func TestEvaluatorRPC_CancelledContext(t *testing.T) {
	client := newPipeClient(t, &MockEvaluator{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Evaluate(ctx, "anything", "task"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHeuristicEvaluator(t *testing.T) {
	var ev HeuristicEvaluator

	bare, err := ev.Evaluate(context.Background(), "short note", "task_result")
	if err != nil {
		t.Fatal(err)
	}

	rich := "# Async basics\n\n## Core concepts\n\n```python\nawait run()\n```\n\n" +
		"Handle every error and test the happy path.\n\n## Checklist\n- [ ] run it\n\nSources: https://docs.python.org"
	full, err := ev.Evaluate(context.Background(), rich, "task_result")
	if err != nil {
		t.Fatal(err)
	}

	if full.Total() <= bare.Total() {
		t.Errorf("expected richer content to score higher: %d <= %d", full.Total(), bare.Total())
	}
	for name, v := range full.Map() {
		if v < 0 || v > 10 {
			t.Errorf("%s out of range: %d", name, v)
		}
	}
}
