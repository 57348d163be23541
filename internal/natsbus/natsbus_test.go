package natsbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/cohort/internal/config"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"github.com/nats-io/nats.go"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := New(config.NATSConfig{Port: -1})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(bus.Close)
	return bus
}

func newTestClient(t *testing.T, bus *Bus) *Client {
	t.Helper()
	client, err := NewClient(bus)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestBusStartStop(t *testing.T) {
	bus, err := New(config.NATSConfig{Port: -1, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	defer bus.Close()

	if bus.ClientURL() == "" {
		t.Fatal("expected non-empty client URL")
	}
	if bus.Port() <= 0 {
		t.Errorf("expected a bound port, got %d", bus.Port())
	}
}

func TestPublishJSON(t *testing.T) {
	bus := newTestBus(t)
	client := newTestClient(t, bus)

	received := make(chan string, 1)
	_, err := client.Subscribe("test.json", func(msg *nats.Msg) {
		received <- string(msg.Data)
	})
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}

	if err := client.PublishJSON("test.json", map[string]string{"key": "value"}); err != nil {
		t.Fatalf("publish json error: %v", err)
	}
	client.Flush()

	select {
	case data := <-received:
		if data != `{"key":"value"}` {
			t.Errorf("expected json, got '%s'", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRelay(t *testing.T) {
	bus := newTestBus(t)
	pub := newTestClient(t, bus)
	sub := newTestClient(t, bus)

	received := make(chan runtime.Event, 4)
	if _, err := sub.SubscribeEvents(func(e runtime.Event) { received <- e }); err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	sub.Flush()

	events := runtime.NewEventBus()
	NewRelay(pub, nil).Attach(events)
	events.PublishWithData(runtime.EventStepFailed, "run-1", map[string]interface{}{"step": "act"})
	pub.Flush()

	select {
	case e := <-received:
		if e.Type != runtime.EventStepFailed || e.RunID != "run-1" {
			t.Errorf("unexpected event %+v", e)
		}
		if e.Data["step"] != "act" {
			t.Errorf("expected step act, got %v", e.Data["step"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for relayed event")
	}
}

func TestServeTasks(t *testing.T) {
	bus := newTestBus(t)
	server := newTestClient(t, bus)
	caller := newTestClient(t, bus)

	orch, err := orchestrate.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ServeTasks(context.Background(), server, orch); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	server.Flush()

	data, _ := json.Marshal(TaskRequest{Task: "review the async tutorial", Role: "reviewer"})
	msg, err := caller.Request(TopicTaskRequest, data, 5*time.Second)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	var reply TaskReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" {
		t.Fatalf("unexpected error %q", reply.Error)
	}
	if reply.Outcome.Result == nil || reply.Outcome.Evaluation == nil {
		t.Errorf("expected full outcome, got %+v", reply.Outcome)
	}

	data, _ = json.Marshal(TaskRequest{Task: "sweep", Role: "janitor"})
	msg, err = caller.Request(TopicTaskRequest, data, 5*time.Second)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	reply = TaskReply{}
	json.Unmarshal(msg.Data, &reply)
	if reply.Error == "" {
		t.Error("expected error for unknown role")
	}
}

func TestTopicNames(t *testing.T) {
	if got := TopicEvent("run_start"); got != "cohort.events.run_start" {
		t.Errorf("expected cohort.events.run_start, got %s", got)
	}
}
