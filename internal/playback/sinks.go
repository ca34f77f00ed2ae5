package playback

import (
	"errors"
	"sync"
)

// #region memory-sink

// Message is one recorded emission.
type Message struct {
	Address string
	Value   any
}

// ErrInjected is returned for FailOn sends when FailErr is nil.
var ErrInjected = errors.New("playback: injected send failure")

// MemorySink records every emission. FailOn makes sends to one address fail.
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
	FailOn   string
	FailErr  error
}

// Send records the message, or returns FailErr for the FailOn address.
func (m *MemorySink) Send(address string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn != "" && address == m.FailOn {
		if m.FailErr == nil {
			return ErrInjected
		}
		return m.FailErr
	}
	m.messages = append(m.messages, Message{Address: address, Value: value})
	return nil
}

// Messages returns a copy of what was recorded.
func (m *MemorySink) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Count returns the number of messages sent to address, or all when empty.
func (m *MemorySink) Count(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if address == "" {
		return len(m.messages)
	}
	n := 0
	for _, msg := range m.messages {
		if msg.Address == address {
			n++
		}
	}
	return n
}

// Reset drops the recorded messages.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.messages = nil
	m.mu.Unlock()
}

// #endregion memory-sink

// #region discard-sink

// DiscardSink drops everything.
type DiscardSink struct{}

func (DiscardSink) Send(string, any) error { return nil }

// #endregion discard-sink
