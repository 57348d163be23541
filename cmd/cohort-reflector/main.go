// Command cohort-reflector serves the heuristic evaluator as a reflector
// plugin. Point agents.plugin_path at the built binary and set
// agents.evaluator to "plugin".
package main

import "github.com/felixgeelhaar/cohort/internal/plugin"

func main() {
	plugin.Serve(plugin.HeuristicEvaluator{})
}
