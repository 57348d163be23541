package natsbus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/cohort/internal/observe"
	"github.com/felixgeelhaar/cohort/internal/orchestrate"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"github.com/nats-io/nats.go"
)

// Relay republishes event bus events as JSON on cohort.events.<type>.
type Relay struct {
	client *Client
	obs    *observe.Observer
}

func NewRelay(client *Client, obs *observe.Observer) *Relay {
	if obs == nil {
		obs = observe.Discard()
	}
	return &Relay{client: client, obs: obs}
}

// Attach forwards every event published on bus.
func (r *Relay) Attach(bus *runtime.EventBus) {
	bus.SubscribeAll(r.forward)
}

func (r *Relay) forward(e runtime.Event) {
	if err := r.client.PublishJSON(TopicEvent(string(e.Type)), e); err != nil {
		r.obs.Log().Warn().Err(err).Str("event", string(e.Type)).Msg("nats relay publish failed")
	}
}

// SubscribeEvents decodes relayed events and hands them to handler.
func (c *Client) SubscribeEvents(handler func(runtime.Event)) (*nats.Subscription, error) {
	return c.Subscribe(TopicEventsAll, func(msg *nats.Msg) {
		var e runtime.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		handler(e)
	})
}

// TaskRequest is the payload accepted on TopicTaskRequest.
type TaskRequest struct {
	Task string `json:"task"`
	Role string `json:"role"`
}

// TaskReply answers a TaskRequest.
type TaskReply struct {
	Outcome  orchestrate.Outcome       `json:"outcome"`
	Failures []orchestrate.StepFailure `json:"failures,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// ServeTasks executes task requests received over NATS until the
// subscription is drained or ctx ends.
func ServeTasks(ctx context.Context, c *Client, orch *orchestrate.Orchestrator) (*nats.Subscription, error) {
	return c.Subscribe(TopicTaskRequest, func(msg *nats.Msg) {
		reply := handleTask(ctx, orch, msg.Data)
		data, err := json.Marshal(reply)
		if err != nil {
			return
		}
		_ = msg.Respond(data)
	})
}

func handleTask(ctx context.Context, orch *orchestrate.Orchestrator, data []byte) TaskReply {
	var req TaskRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return TaskReply{Error: "invalid request: " + err.Error()}
	}
	target, err := role.Parse(req.Role)
	if err != nil {
		return TaskReply{Error: err.Error()}
	}

	outcome, err := orch.ExecuteWithReflection(ctx, req.Task, target)
	reply := TaskReply{Outcome: outcome}
	if err != nil {
		var partial *orchestrate.PartialError
		if errors.As(err, &partial) {
			reply.Failures = partial.Failures
		}
		reply.Error = err.Error()
	}
	return reply
}
