package domain

import (
	"time"

	"github.com/segmentio/ksuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one a provider conversation accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single role-tagged turn of the transcript.
type Message struct {
	Id        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and the current time. Every call
// yields a distinct id.
func NewMessage(role Role, content string) Message {
	return Message{
		Id:        "msg_" + ksuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: UTCTime(time.Now()),
	}
}

// ConversationMessages returns the user and assistant messages in order, silently
// dropping anything else.
func ConversationMessages(messages []Message) []Message {
	result := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role.Valid() {
			result = append(result, msg)
		}
	}
	return result
}
