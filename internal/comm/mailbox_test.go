package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgFrom(sender, tag int, body string) *Message {
	return &Message{Sender: sender, Tag: tag, Raw: []byte(body)}
}

func TestMailboxTakeMatching(t *testing.T) {
	tests := []struct {
		name     string
		pending  []*Message
		source   int
		tag      int
		wantBody string
		wantLeft int
	}{
		{
			name:     "exact match",
			pending:  []*Message{msgFrom(1, 5, "a")},
			source:   1,
			tag:      5,
			wantBody: "a",
			wantLeft: 0,
		},
		{
			name:     "oldest of same pair first",
			pending:  []*Message{msgFrom(1, 5, "a"), msgFrom(1, 5, "b")},
			source:   1,
			tag:      5,
			wantBody: "a",
			wantLeft: 1,
		},
		{
			name:     "skips other sender",
			pending:  []*Message{msgFrom(2, 5, "x"), msgFrom(1, 5, "a")},
			source:   1,
			tag:      5,
			wantBody: "a",
			wantLeft: 1,
		},
		{
			name:     "skips other tag",
			pending:  []*Message{msgFrom(1, 4, "x"), msgFrom(1, 5, "a")},
			source:   1,
			tag:      5,
			wantBody: "a",
			wantLeft: 1,
		},
		{
			name:     "any source takes earliest",
			pending:  []*Message{msgFrom(3, 5, "first"), msgFrom(1, 5, "second")},
			source:   AnySource,
			tag:      5,
			wantBody: "first",
			wantLeft: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mb Mailbox
			for _, m := range tt.pending {
				mb.Insert(m)
			}

			got := mb.TakeMatching(tt.source, tt.tag)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantBody, string(got.Raw))
			assert.Equal(t, tt.wantLeft, mb.Len())
		})
	}
}

func TestMailboxNoMatchHasNoSideEffects(t *testing.T) {
	var mb Mailbox
	mb.Insert(msgFrom(1, 1, "a"))
	mb.Insert(msgFrom(2, 2, "b"))

	assert.Nil(t, mb.TakeMatching(1, 2))
	assert.Nil(t, mb.TakeMatching(3, 1))
	assert.Equal(t, 2, mb.Len())

	assert.Equal(t, "a", string(mb.TakeMatching(AnySource, 1).Raw))
	assert.Equal(t, "b", string(mb.TakeMatching(2, 2).Raw))
	assert.Equal(t, 0, mb.Len())
}

func TestMailboxDrain(t *testing.T) {
	var mb Mailbox
	mb.Insert(msgFrom(0, 0, "a"))
	mb.Insert(msgFrom(0, 0, "b"))
	mb.drain()
	assert.Equal(t, 0, mb.Len())
	assert.Nil(t, mb.TakeMatching(AnySource, 0))
}

func TestGateStartsClosed(t *testing.T) {
	g := NewGate()
	assert.False(t, g.IsOpen())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
}

func TestGateOpenIsIdempotent(t *testing.T) {
	g := NewGate()
	g.Open()
	g.Open()
	assert.True(t, g.IsOpen())

	require.NoError(t, g.Wait(context.Background()))
	assert.False(t, g.IsOpen(), "passing through closes the gate")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Wait(ctx), "a double open releases one waiter only")
}

func TestGateCloseDiscardsOpen(t *testing.T) {
	g := NewGate()
	g.Open()
	g.Close()
	assert.False(t, g.IsOpen())
	g.Close()
	assert.False(t, g.IsOpen())
}

func TestGateReleasesBlockedWaiter(t *testing.T) {
	g := NewGate()
	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	g.Open()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
}
