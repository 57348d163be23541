package natsbus

import "fmt"

// Subject patterns for cohort traffic.

func TopicEvent(eventType string) string {
	return fmt.Sprintf("cohort.events.%s", eventType)
}

const (
	TopicEventsAll   = "cohort.events.>"
	TopicTaskRequest = "cohort.tasks.execute"
)
