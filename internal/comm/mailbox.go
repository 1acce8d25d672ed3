package comm

// Mailbox holds the messages pending for one rank. It has no lock of its own:
// the owning Controller's mutex guards it together with the controller's
// waiting pattern, and every method must be called with that mutex held.
//
// Messages are appended at the tail and scanned from the head, so among
// several matches the oldest one is taken. For a fixed (sender, tag) pair
// this gives send order; any-source receives get the earliest arrival.
type Mailbox struct {
	pending []*Message
}

// Insert appends msg.
func (m *Mailbox) Insert(msg *Message) {
	m.pending = append(m.pending, msg)
}

// TakeMatching removes and returns the oldest message from source (or any
// sender when source is AnySource) carrying tag. It returns nil and leaves
// the mailbox untouched when nothing matches.
func (m *Mailbox) TakeMatching(source, tag int) *Message {
	for i, msg := range m.pending {
		if !msg.matches(source, tag) {
			continue
		}
		last := len(m.pending) - 1
		copy(m.pending[i:], m.pending[i+1:])
		m.pending[last] = nil
		m.pending = m.pending[:last]
		return msg
	}
	return nil
}

// Len returns the number of pending messages.
func (m *Mailbox) Len() int {
	return len(m.pending)
}

// drain drops every pending message.
func (m *Mailbox) drain() {
	clear(m.pending)
	m.pending = m.pending[:0]
}
