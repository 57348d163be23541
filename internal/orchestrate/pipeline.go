package orchestrate

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/cohort/internal/agent"
	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/felixgeelhaar/cohort/internal/runtime"
	"github.com/google/uuid"
)

const (
	StatusAnalyzed = "analyzed"
	StatusFailed   = "failed"

	contentTypeCurriculum = "curriculum_content"
)

// Topic is one pipeline input.
type Topic struct {
	Key   string `json:"key" yaml:"key"`
	Topic string `json:"topic" yaml:"topic"`
}

// WeekTopics builds the week topics keyed "weekN".
func WeekTopics(weeks []int) []Topic {
	out := make([]Topic, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, Topic{
			Key:   fmt.Sprintf("week%d", w),
			Topic: fmt.Sprintf("Week %d AI curriculum content", w),
		})
	}
	return out
}

// TopicsFromStrings keys plain topic strings "topicN" in input order.
func TopicsFromStrings(topics []string) []Topic {
	out := make([]Topic, 0, len(topics))
	for i, t := range topics {
		out = append(out, Topic{Key: fmt.Sprintf("topic%d", i+1), Topic: t})
	}
	return out
}

// TopicAnalysis is the pipeline output for one topic.
type TopicAnalysis struct {
	Key        string                `json:"key"`
	Topic      string                `json:"topic"`
	Research   *agent.ResearchResult `json:"research"`
	Evaluation *agent.Evaluation     `json:"evaluation"`
	Status     string                `json:"status"`
	Error      string                `json:"error,omitempty"`
}

// PipelineResult holds one analysis per input topic in input order.
type PipelineResult struct {
	RunID  string          `json:"run_id"`
	Topics []TopicAnalysis `json:"topics"`
}

// Get returns the analysis stored under key.
func (r PipelineResult) Get(key string) (TopicAnalysis, bool) {
	for _, t := range r.Topics {
		if t.Key == key {
			return t, true
		}
	}
	return TopicAnalysis{}, false
}

// Failed counts topics whose status is failed.
func (r PipelineResult) Failed() int {
	n := 0
	for _, t := range r.Topics {
		if t.Status == StatusFailed {
			n++
		}
	}
	return n
}

// RunPipeline researches and evaluates every topic in order. A failing
// topic is marked failed and the pipeline moves on. The returned error is
// non-nil only when ctx ends before all topics ran; the remaining topics
// are then marked failed.
func (o *Orchestrator) RunPipeline(ctx context.Context, topics []Topic) (PipelineResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	researcher, err := o.lookup(role.Researcher)
	if err != nil {
		return PipelineResult{}, err
	}
	reflector, err := o.lookup(role.Reflector)
	if err != nil {
		return PipelineResult{}, err
	}

	res := PipelineResult{
		RunID:  uuid.NewString(),
		Topics: make([]TopicAnalysis, 0, len(topics)),
	}

	ctx, span := o.obs.StartSpan(ctx, "orchestrate.pipeline")
	defer span.End()

	o.bus.PublishWithData(runtime.EventRunStart, res.RunID, map[string]interface{}{
		"kind":    "pipeline",
		"subject": fmt.Sprintf("%d topics", len(topics)),
		"topics":  len(topics),
	})

	for _, t := range topics {
		analysis := TopicAnalysis{Key: t.Key, Topic: t.Topic, Status: StatusAnalyzed}

		if err := ctx.Err(); err != nil {
			analysis.Status = StatusFailed
			analysis.Error = err.Error()
			res.Topics = append(res.Topics, analysis)
			continue
		}

		research, err := runStep(ctx, o, res.RunID, StepResearch, role.Researcher, func(ctx context.Context) (agent.ResearchResult, error) {
			return researcher.Research(ctx, t.Topic)
		})
		if err != nil {
			analysis.Status = StatusFailed
			analysis.Error = newFailure(StepResearch, err).Error()
		} else {
			analysis.Research = &research
			evaluation, err := runStep(ctx, o, res.RunID, StepReflect, role.Reflector, func(ctx context.Context) (agent.Evaluation, error) {
				return reflector.Reflect(ctx, t.Topic, contentTypeCurriculum)
			})
			if err != nil {
				analysis.Status = StatusFailed
				analysis.Error = newFailure(StepReflect, err).Error()
			} else {
				analysis.Evaluation = &evaluation
			}
		}

		o.bus.PublishWithData(runtime.EventTopicAnalyzed, res.RunID, map[string]interface{}{
			"key":    t.Key,
			"status": analysis.Status,
		})
		res.Topics = append(res.Topics, analysis)
	}

	status := runtime.StatusCompleted
	if res.Failed() > 0 {
		status = runtime.StatusPartial
	}
	o.bus.PublishWithData(runtime.EventPipelineComplete, res.RunID, map[string]interface{}{
		"status": status,
		"topics": len(res.Topics),
		"failed": res.Failed(),
	})
	o.obs.Log().Info().Str("run_id", res.RunID).Int("topics", len(res.Topics)).Int("failed", res.Failed()).Msg("pipeline finished")

	return res, ctx.Err()
}
