package comm

import (
	"context"
	"fmt"
	"unsafe"
)

// Element is a fixed-size numeric type that can be sent as raw bytes.
type Element interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// Status describes a received message.
type Status struct {
	Source int
	Tag    int
	Count  int // elements for typed receives, raw bytes otherwise
}

// SendSlice sends data to target as len(data)*sizeof(T) raw bytes.
func SendSlice[T Element](c *Controller, target, tag int, data []T) error {
	return c.Send(target, tag, nil, bytesOf(data))
}

// ReceiveSlice receives a raw message and decodes it into a new []T.
func ReceiveSlice[T Element](c *Controller, source, tag int) ([]T, Status, error) {
	msg, err := c.Receive(source, tag)
	if err != nil {
		return nil, Status{}, err
	}
	return decodeSlice[T](msg)
}

// ReceiveSliceContext is ReceiveSlice bounded by ctx.
func ReceiveSliceContext[T Element](ctx context.Context, c *Controller, source, tag int) ([]T, Status, error) {
	msg, err := c.ReceiveContext(ctx, source, tag)
	if err != nil {
		return nil, Status{}, err
	}
	return decodeSlice[T](msg)
}

func decodeSlice[T Element](msg *Message) ([]T, Status, error) {
	size := int(unsafe.Sizeof(*new(T)))
	status := Status{Source: msg.Sender, Tag: msg.Tag}
	if len(msg.Raw)%size != 0 {
		return nil, status, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrLengthMismatch, len(msg.Raw), size)
	}

	out := make([]T, len(msg.Raw)/size)
	copy(bytesOf(out), msg.Raw)
	status.Count = len(out)
	return out, status, nil
}

// ReceiveInto receives a raw message into dst. When the sent length differs
// from len(dst) the common prefix is still copied and ErrLengthMismatch is
// returned with the status.
func ReceiveInto[T Element](c *Controller, dst []T, source, tag int) (Status, error) {
	msg, err := c.Receive(source, tag)
	if err != nil {
		return Status{}, err
	}

	size := int(unsafe.Sizeof(*new(T)))
	n := copy(bytesOf(dst), msg.Raw)
	status := Status{Source: msg.Sender, Tag: msg.Tag, Count: n / size}
	if want := len(dst) * size; len(msg.Raw) != want {
		return status, fmt.Errorf("%w: sent %d bytes, buffer holds %d", ErrLengthMismatch, len(msg.Raw), want)
	}
	return status, nil
}

// SendObject sends a payload with no raw buffer.
func SendObject(c *Controller, target, tag int, p Payload) error {
	return c.Send(target, tag, p, nil)
}

// ReceiveObject receives a message and returns its payload, which the
// caller owns.
func ReceiveObject(c *Controller, source, tag int) (Payload, Status, error) {
	msg, err := c.Receive(source, tag)
	if err != nil {
		return nil, Status{}, err
	}
	return msg.Payload, Status{Source: msg.Sender, Tag: msg.Tag, Count: msg.Len()}, nil
}

// ReceiveObjectContext is ReceiveObject bounded by ctx.
func ReceiveObjectContext(ctx context.Context, c *Controller, source, tag int) (Payload, Status, error) {
	msg, err := c.ReceiveContext(ctx, source, tag)
	if err != nil {
		return nil, Status{}, err
	}
	return msg.Payload, Status{Source: msg.Sender, Tag: msg.Tag, Count: msg.Len()}, nil
}

// bytesOf views data as its underlying bytes without copying.
func bytesOf[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*size)
}
