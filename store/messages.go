// Package store holds the ordered message list for one conversation.
//
// All mutations are serialized behind a single mutex. Reads and subscribers
// only ever see copies, so no caller can observe a partially-applied
// mutation or mutate the store's backing slice through a held reference.
package store

import (
	"sync"

	"parley/fault"
	"parley/model"
	"parley/pubsub"
)

// MessageStore is the mutation-serialized, observable message collection.
type MessageStore struct {
	mu       sync.Mutex
	messages []model.Message
	index    map[string]int // ID → position in messages
	slot     *pubsub.Slot[[]model.Message]
}

// NewMessageStore creates an empty store. Subscribers attached before any
// mutation see the empty snapshot first.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		index: make(map[string]int),
		slot:  pubsub.NewSlotWith([]model.Message{}),
	}
}

// Append inserts a message at the end of the conversation.
//
// Appending an ID that already exists is a no-op reported as success. This
// tolerates at-least-once delivery from upstream retries.
func (s *MessageStore) Append(msg model.Message) error {
	if msg.ID == "" {
		return fault.New(fault.KindInvalidArgument, "message ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[msg.ID]; ok {
		return nil
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	s.publishLocked()
	return nil
}

// Replace swaps the stored message with the same ID in place.
func (s *MessageStore) Replace(msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[msg.ID]
	if !ok {
		return fault.Newf(fault.KindNotFound, "message %s not found", msg.ID)
	}
	s.messages[pos] = msg
	s.publishLocked()
	return nil
}

// Get returns a copy of the message with the given ID.
func (s *MessageStore) Get(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return model.Message{}, false
	}
	return s.messages[pos], true
}

// PrecedingUserMessage scans backward from the message with the given ID for
// the nearest earlier message sent by the user. Retry uses this to recover
// the prompt that produced a failed assistant reply.
func (s *MessageStore) PrecedingUserMessage(id string) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return model.Message{}, false
	}
	for i := pos - 1; i >= 0; i-- {
		if s.messages[i].Sender == model.SenderUser {
			return s.messages[i], true
		}
	}
	return model.Message{}, false
}

// Clear removes every message atomically. Subscribers observe an empty
// snapshot next.
func (s *MessageStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.index = make(map[string]int)
	s.publishLocked()
	return nil
}

// Snapshot returns a copy of the current message list in write order.
func (s *MessageStore) Snapshot() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Subscribe attaches an observer. The current snapshot is delivered
// immediately, then every snapshot produced by a later mutation. Snapshots
// arrive in write order; a slow subscriber may skip intermediate snapshots
// but never receives one older than the last it saw.
func (s *MessageStore) Subscribe() *pubsub.Subscription[[]model.Message] {
	return s.slot.Subscribe()
}

func (s *MessageStore) snapshotLocked() []model.Message {
	snap := make([]model.Message, len(s.messages))
	copy(snap, s.messages)
	return snap
}

func (s *MessageStore) publishLocked() {
	s.slot.Publish(s.snapshotLocked())
}
