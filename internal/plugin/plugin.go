// Package plugin loads external reflector evaluators over go-plugin's
// net/rpc protocol.
package plugin

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/felixgeelhaar/cohort/internal/agent"
	"github.com/hashicorp/go-hclog"
	hcplugin "github.com/hashicorp/go-plugin"
)

// HandshakeConfig is used to handshake between host and plugin.
var HandshakeConfig = hcplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "COHORT_PLUGIN_MAGIC_COOKIE",
	MagicCookieValue: "cohort-reflector",
}

// Plugin defines the handshake and capabilities.
type Plugin interface {
	Name() string
	Version() string
	Type() PluginType
}

type PluginType string

const (
	PluginTypeEvaluator PluginType = "evaluator"
)

// EvaluatorPlugin scores content on behalf of the reflector.
type EvaluatorPlugin interface {
	Plugin
	agent.Evaluator
}

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]hcplugin.Plugin{
	string(PluginTypeEvaluator): &EvaluatorRPCPlugin{},
}

// Serve runs impl as a plugin process. It does not return.
func Serve(impl EvaluatorPlugin) {
	hcplugin.Serve(&hcplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hcplugin.Plugin{
			string(PluginTypeEvaluator): &EvaluatorRPCPlugin{Impl: impl},
		},
	})
}

// Loaded is a running plugin process and the evaluator it serves.
type Loaded struct {
	client    *hcplugin.Client
	Evaluator EvaluatorPlugin
}

// Load starts the plugin binary at path and dispenses its evaluator.
func Load(path string) (*Loaded, error) {
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		Plugins:          PluginMap,
		Cmd:              exec.Command(path),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Level:  hclog.Warn,
			Output: os.Stderr,
		}),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("starting plugin %s: %w", path, err)
	}
	raw, err := rpcClient.Dispense(string(PluginTypeEvaluator))
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispensing evaluator: %w", err)
	}
	ev, ok := raw.(EvaluatorPlugin)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not serve an evaluator", path)
	}
	return &Loaded{client: client, Evaluator: ev}, nil
}

func (l *Loaded) Close() {
	l.client.Kill()
}
