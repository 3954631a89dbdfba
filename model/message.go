package model

import (
	"time"

	"parley/fault"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Status is a message's delivery state.
type Status string

const (
	StatusSent       Status = "sent"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
)

// Failure describes why a message ended up in StatusFailed and whether a
// retry makes sense.
type Failure struct {
	Cause     fault.Kind
	Message   string
	Retryable bool
}

// Message represents a chat message in the conversation.
//
// Messages are value types: holders of a Message cannot mutate the store's
// copy. Status transitions happen only through store mutations.
type Message struct {
	ID        string
	Sender    Sender
	Content   string
	CreatedAt time.Time
	Status    Status
	Failure   *Failure // set only when Status == StatusFailed
}

// Failed reports whether the message is in a failed terminal state.
func (m Message) Failed() bool {
	return m.Status == StatusFailed
}

// Retryable reports whether a failed message may be retried.
func (m Message) Retryable() bool {
	return m.Status == StatusFailed && m.Failure != nil && m.Failure.Retryable
}
