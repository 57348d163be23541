package agent

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cohort/internal/role"
	"github.com/google/uuid"
)

// MessageKind classifies inter-agent messages.
type MessageKind string

const (
	KindRequest    MessageKind = "request"
	KindResponse   MessageKind = "response"
	KindFeedback   MessageKind = "feedback"
	KindReflection MessageKind = "reflection"
)

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindRequest, KindResponse, KindFeedback, KindReflection:
		return true
	}
	return false
}

// Message is an immutable record of communication between two agents.
type Message struct {
	ID        string      `json:"id"`
	From      role.Role   `json:"from"`
	To        role.Role   `json:"to"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessage builds a message with a fresh id.
func NewMessage(from, to role.Role, kind MessageKind, content string) (Message, error) {
	if !kind.Valid() {
		return Message{}, fmt.Errorf("invalid message kind %q", kind)
	}
	return Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now(),
	}, nil
}
