package observe

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cohort")

// Observer handles logging and tracing
type Observer struct {
	log *bolt.Logger
}

// New creates a new Observer with console output.
// If verbose is false, only warnings and errors are shown.
func New(out io.Writer, verbose bool) *Observer {
	handler := bolt.NewConsoleHandler(out)
	l := bolt.New(handler)

	if !verbose {
		l.SetLevel(bolt.WARN)
	}

	return &Observer{
		log: l,
	}
}

// NewJSON creates a new Observer with JSON output.
// If verbose is false, only warnings and errors are shown.
func NewJSON(out io.Writer, verbose bool) *Observer {
	handler := bolt.NewJSONHandler(out)
	l := bolt.New(handler)

	if !verbose {
		l.SetLevel(bolt.WARN)
	}

	return &Observer{
		log: l,
	}
}

// Discard returns an Observer that drops everything.
func Discard() *Observer {
	return New(io.Discard, false)
}

// Log returns the underlying logger
func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan starts a new OTel span
func (o *Observer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// Attach logs every event published on bus. Failures and guard
// violations are logged at WARN, everything else at INFO.
func (o *Observer) Attach(bus *runtime.EventBus) {
	bus.SubscribeAll(func(e runtime.Event) {
		ev := o.log.Info()
		switch e.Type {
		case runtime.EventStepFailed, runtime.EventGuardViolation, runtime.EventRunError:
			ev = o.log.Warn()
		}

		ev.Str("event", string(e.Type))
		ev.Str("run_id", e.RunID)

		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ev.Str(k, fmt.Sprint(e.Data[k]))
		}
		ev.Msg("orchestration event")
	})
}

// Close ensures any buffered logs or traces are flushed (placeholder)
func (o *Observer) Close() error {
	return nil
}
