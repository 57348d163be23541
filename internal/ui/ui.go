package ui

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/cohort/internal/runtime"
)

type UI interface {
	UpdateStatus(status string)
	UpdateProgress(done, total int)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string)     {}
func (s SilentUI) UpdateProgress(done, total int) {}
func (s SilentUI) Log(msg string)                 {}

// stepsPerRun is the number of progress units of a task run: research,
// act and reflect.
const stepsPerRun = 3

// Follow drives u from orchestrator events. Task runs advance one unit per
// finished step, pipeline runs one unit per analyzed topic.
func Follow(bus *runtime.EventBus, u UI) {
	var (
		mu       sync.Mutex
		done     int
		total    = stepsPerRun
		pipeline bool
	)
	advance := func() {
		if done < total {
			done++
		}
		u.UpdateProgress(done, total)
	}

	bus.SubscribeAll(func(e runtime.Event) {
		mu.Lock()
		defer mu.Unlock()

		str := func(key string) string {
			if v, ok := e.Data[key]; ok {
				return fmt.Sprint(v)
			}
			return ""
		}

		switch e.Type {
		case runtime.EventRunStart:
			done = 0
			total = stepsPerRun
			pipeline = str("kind") == "pipeline"
			if n, ok := e.Data["topics"].(int); ok && pipeline {
				total = n
			}
			if str("kind") == "tutorial" {
				total = 1
			}
			u.UpdateStatus("Running " + str("kind"))
			u.UpdateProgress(0, total)
		case runtime.EventStepStart:
			u.UpdateStatus(fmt.Sprintf("%s (%s)", str("step"), str("role")))
		case runtime.EventStepEnd:
			if !pipeline {
				advance()
			}
		case runtime.EventStepFailed:
			u.Log(fmt.Sprintf("✗ %s failed: %s", str("step"), str("error")))
			if !pipeline {
				advance()
			}
		case runtime.EventMessage:
			u.Log(fmt.Sprintf("%s → %s: %s", str("from"), str("to"), str("kind")))
		case runtime.EventGuardViolation:
			u.Log(fmt.Sprintf("⛔ guard %s: %s", str("rule"), str("message")))
		case runtime.EventTopicAnalyzed:
			u.Log(fmt.Sprintf("%s %s", str("key"), str("status")))
			advance()
		case runtime.EventTaskComplete, runtime.EventPipelineComplete:
			done = total
			u.UpdateProgress(done, total)
			u.UpdateStatus("Finished: " + str("status"))
		}
	})
}
