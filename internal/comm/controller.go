package comm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/monitoring"
)

// Options configures every controller of a run.
type Options struct {
	// ForceDeepCopy selects DeepClone instead of ShallowClone for payloads.
	ForceDeepCopy bool
	// ReceiveTimeout bounds every receive whose context has no deadline.
	ReceiveTimeout time.Duration
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
}

// pattern is what a blocked receiver is waiting for.
type pattern struct {
	source int
	tag    int
}

func (p pattern) matches(msg *Message) bool {
	return msg.matches(p.source, p.tag)
}

// Controller is one rank of a run. Any rank may Send to any other through
// the shared peer table; only the rank itself Receives from its mailbox.
type Controller struct {
	rank  int
	peers []*Controller // shared by every controller of the run, self included

	forceDeepCopy  bool
	receiveTimeout time.Duration
	logger         *logging.Logger
	metrics        *monitoring.Metrics

	mu      sync.Mutex // guards mailbox and waiting
	mailbox Mailbox
	waiting *pattern

	// gate is closed and waited on only by this rank, and opened by the
	// sender that satisfies waiting, under mu.
	gate *Gate

	// receiving admits one Receive at a time, since waiting has one slot.
	receiving chan struct{}
}

// NewController returns a standalone rank 0 of a one-rank world. It can send
// to and receive from itself; coordinators build wider worlds.
func NewController(opts Options) *Controller {
	c := newController(0, opts)
	c.peers = []*Controller{c}
	return c
}

func newController(rank int, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		rank:           rank,
		forceDeepCopy:  opts.ForceDeepCopy,
		receiveTimeout: opts.ReceiveTimeout,
		logger:         logger,
		metrics:        opts.Metrics,
		gate:           NewGate(),
		receiving:      make(chan struct{}, 1),
	}
}

// Rank returns this controller's rank.
func (c *Controller) Rank() int {
	return c.rank
}

// Size returns the number of ranks in the run.
func (c *Controller) Size() int {
	return len(c.peers)
}

// ForceDeepCopy reports whether payloads are deep-cloned on send.
func (c *Controller) ForceDeepCopy() bool {
	return c.forceDeepCopy
}

// Peer returns the controller of the given rank.
func (c *Controller) Peer(rank int) (*Controller, error) {
	if rank < 0 || rank >= len(c.peers) {
		return nil, invalidRank(rank, len(c.peers))
	}
	return c.peers[rank], nil
}

// Pending returns the number of messages waiting in this rank's mailbox.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mailbox.Len()
}

// Send copies payload and raw into a message for target and returns without
// waiting for it to be received. Either may be nil.
func (c *Controller) Send(target, tag int, payload Payload, raw []byte) error {
	dst, err := c.Peer(target)
	if err != nil {
		c.metrics.RecordSendError(errorType(err))
		c.logger.Warn("send rejected", zap.Int("rank", c.rank), zap.Int("target", target), zap.Int("tag", tag), zap.Error(err))
		return err
	}

	msg, err := newMessage(c.rank, tag, payload, raw, c.forceDeepCopy)
	if err != nil {
		c.metrics.RecordSendError(errorType(err))
		c.logger.Error("send failed to copy message", zap.Int("rank", c.rank), zap.Int("target", target), zap.Int("tag", tag), zap.Error(err))
		return err
	}

	woke := dst.deliver(msg)

	c.metrics.RecordSend(msg.kind(), msg.Len())
	c.logger.Debug("message sent",
		zap.Int("rank", c.rank),
		zap.Int("target", target),
		zap.Int("tag", tag),
		zap.Int("bytes", msg.Len()),
		zap.String("message_id", msg.ID.String()),
		zap.Bool("woke_receiver", woke),
	)
	return nil
}

// deliver inserts msg into this rank's mailbox and, if this rank is blocked
// on a pattern msg satisfies, clears the pattern and opens the gate. Both
// happen under mu so a receiver can never observe the insert without the
// wake, or wait on a pattern that is already satisfied.
func (c *Controller) deliver(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mailbox.Insert(msg)
	c.metrics.SetPending(c.rank, c.mailbox.Len())

	if c.waiting == nil || !c.waiting.matches(msg) {
		return false
	}
	c.waiting = nil
	c.gate.Open()
	c.metrics.IncWakeups()
	return true
}

// Receive blocks until a message from source (or AnySource) with tag is in
// this rank's mailbox, removes it and returns it. If the controller has a
// receive timeout, Receive gives up with ErrTimedOut after it.
func (c *Controller) Receive(source, tag int) (*Message, error) {
	return c.ReceiveContext(context.Background(), source, tag)
}

// ReceiveContext is Receive bounded by ctx. The controller's receive timeout
// applies when ctx carries no deadline of its own. It returns ErrTimedOut
// when the deadline passes and ErrCancelled when ctx is cancelled; a message
// that arrives afterwards stays pending for the next receive.
//
// A wake that finds no matching message is a protocol violation and panics
// with *ProtocolViolationError.
func (c *Controller) ReceiveContext(ctx context.Context, source, tag int) (*Message, error) {
	if _, ok := ctx.Deadline(); !ok && c.receiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.receiveTimeout)
		defer cancel()
	}

	if source != AnySource {
		if _, err := c.Peer(source); err != nil {
			c.metrics.RecordReceiveError(errorType(err))
			return nil, err
		}
	}

	select {
	case c.receiving <- struct{}{}:
	case <-ctx.Done():
		return nil, c.receiveAborted(ctx.Err(), source, tag)
	}
	defer func() { <-c.receiving }()

	if err := ctx.Err(); err != nil {
		return nil, c.receiveAborted(err, source, tag)
	}

	c.mu.Lock()
	if msg := c.take(source, tag); msg != nil {
		c.mu.Unlock()
		c.received(msg, source)
		return msg, nil
	}
	c.gate.Close()
	c.waiting = &pattern{source: source, tag: tag}
	c.mu.Unlock()

	c.logger.Debug("blocking on gate", zap.Int("rank", c.rank), zap.String("source", sourceString(source)), zap.Int("tag", tag))
	c.metrics.BlockStarted()
	start := time.Now()
	waitErr := c.gate.Wait(ctx)
	c.metrics.BlockEnded(time.Since(start))

	c.mu.Lock()
	if waitErr != nil {
		// A send may have opened the gate after ctx ended; drop that wake
		// with the pattern so it cannot release a later receive.
		c.waiting = nil
		c.gate.Close()
		c.mu.Unlock()
		return nil, c.receiveAborted(waitErr, source, tag)
	}
	msg := c.take(source, tag)
	c.mu.Unlock()

	if msg == nil {
		violation := &ProtocolViolationError{Rank: c.rank, Source: source, Tag: tag}
		c.metrics.RecordReceiveError(errorType(violation))
		c.logger.Error("passed through the gate without a message", zap.Int("rank", c.rank), zap.Error(violation))
		panic(violation)
	}

	c.received(msg, source)
	return msg, nil
}

// take removes a match from the mailbox; mu must be held.
func (c *Controller) take(source, tag int) *Message {
	msg := c.mailbox.TakeMatching(source, tag)
	if msg != nil {
		c.metrics.SetPending(c.rank, c.mailbox.Len())
	}
	return msg
}

func (c *Controller) received(msg *Message, source int) {
	match := "exact"
	if source == AnySource {
		match = "any"
	}
	c.metrics.RecordReceive(match)
	c.logger.Debug("message received",
		zap.Int("rank", c.rank),
		zap.Int("sender", msg.Sender),
		zap.Int("tag", msg.Tag),
		zap.String("message_id", msg.ID.String()),
	)
}

func (c *Controller) receiveAborted(cause error, source, tag int) error {
	err := ErrCancelled
	if errors.Is(cause, context.DeadlineExceeded) {
		err = ErrTimedOut
	}
	c.metrics.RecordReceiveError(errorType(err))
	c.logger.Debug("receive aborted", zap.Int("rank", c.rank), zap.String("source", sourceString(source)), zap.Int("tag", tag), zap.Error(cause))
	return fmt.Errorf("%w: %w", err, cause)
}

// reset drops pending messages and any stale wake before a new run.
func (c *Controller) reset(peers []*Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers = peers
	c.mailbox.drain()
	c.waiting = nil
	c.gate.Close()
	c.metrics.SetPending(c.rank, 0)
}
