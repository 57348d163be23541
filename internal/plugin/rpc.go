package plugin

import (
	"context"
	"net/rpc"

	"github.com/felixgeelhaar/cohort/internal/agent"
	hcplugin "github.com/hashicorp/go-plugin"
)

// EvaluatorRPCPlugin is the implementation of hcplugin.Plugin so we can
// serve/consume an evaluator.
type EvaluatorRPCPlugin struct {
	Impl EvaluatorPlugin
}

func (p *EvaluatorRPCPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &EvaluatorRPCServer{Impl: p.Impl}, nil
}

func (p *EvaluatorRPCPlugin) Client(_ *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &EvaluatorRPCClient{client: c}, nil
}

type EvaluateArgs struct {
	Content     string
	ContentType string
}

type Info struct {
	Name    string
	Version string
	Type    PluginType
}

// EvaluatorRPCClient is an EvaluatorPlugin that talks over RPC.
type EvaluatorRPCClient struct {
	client *rpc.Client
}

func (c *EvaluatorRPCClient) info() Info {
	var resp Info
	if err := c.client.Call("Plugin.Info", new(interface{}), &resp); err != nil {
		return Info{Name: "rpc-evaluator", Type: PluginTypeEvaluator}
	}
	return resp
}

func (c *EvaluatorRPCClient) Name() string     { return c.info().Name }
func (c *EvaluatorRPCClient) Version() string  { return c.info().Version }
func (c *EvaluatorRPCClient) Type() PluginType { return PluginTypeEvaluator }

func (c *EvaluatorRPCClient) Evaluate(ctx context.Context, content, contentType string) (agent.Scores, error) {
	if err := ctx.Err(); err != nil {
		return agent.Scores{}, err
	}
	var resp agent.Scores
	call := c.client.Go("Plugin.Evaluate", EvaluateArgs{Content: content, ContentType: contentType}, &resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return agent.Scores{}, ctx.Err()
	case <-call.Done:
		if call.Error != nil {
			return agent.Scores{}, call.Error
		}
		return resp, nil
	}
}

// EvaluatorRPCServer is the RPC server that calls the local implementation.
type EvaluatorRPCServer struct {
	Impl EvaluatorPlugin
}

func (s *EvaluatorRPCServer) Evaluate(args EvaluateArgs, resp *agent.Scores) error {
	scores, err := s.Impl.Evaluate(context.Background(), args.Content, args.ContentType)
	if err != nil {
		return err
	}
	*resp = scores
	return nil
}

func (s *EvaluatorRPCServer) Info(_ interface{}, resp *Info) error {
	*resp = Info{Name: s.Impl.Name(), Version: s.Impl.Version(), Type: s.Impl.Type()}
	return nil
}
