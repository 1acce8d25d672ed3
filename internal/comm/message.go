package comm

import (
	"bytes"
	"fmt"
	"time"

	"github.com/GriffinCanCode/threadcomm/internal/shared/id"
)

// AnySource matches a message from any sender.
const AnySource = -1

// Payload is a structured object that can travel inside a message. Send
// stores a clone, never the caller's value: ShallowClone may share nested
// data with the original, DeepClone must not.
type Payload interface {
	ShallowClone() Payload
	DeepClone() Payload
}

// Message is one unit of transmission between ranks. Raw and Payload are
// owned by the message; the sender's originals are never referenced.
type Message struct {
	ID      id.MessageID
	Sender  int
	Tag     int
	Raw     []byte
	Payload Payload
	SentAt  time.Time
}

// Len returns the number of raw bytes carried.
func (m *Message) Len() int {
	return len(m.Raw)
}

func (m *Message) matches(source, tag int) bool {
	return (source == AnySource || m.Sender == source) && m.Tag == tag
}

// kind labels the message for metrics.
func (m *Message) kind() string {
	switch {
	case m.Raw != nil && m.Payload != nil:
		return "mixed"
	case m.Raw != nil:
		return "raw"
	case m.Payload != nil:
		return "payload"
	default:
		return "empty"
	}
}

// newMessage copies payload and raw into a fresh message. A clone that
// panics or returns nil surfaces as ErrAllocation.
func newMessage(sender, tag int, payload Payload, raw []byte, deep bool) (msg *Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = fmt.Errorf("%w: %v", ErrAllocation, r)
		}
	}()

	msg = &Message{
		ID:     id.NewMessageID(),
		Sender: sender,
		Tag:    tag,
		SentAt: time.Now(),
	}

	if len(raw) > 0 {
		msg.Raw = bytes.Clone(raw)
	}

	if payload != nil {
		if deep {
			msg.Payload = payload.DeepClone()
		} else {
			msg.Payload = payload.ShallowClone()
		}
		if msg.Payload == nil {
			return nil, fmt.Errorf("%w: %T clone returned nil", ErrAllocation, payload)
		}
	}

	return msg, nil
}
