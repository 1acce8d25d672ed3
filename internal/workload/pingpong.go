package workload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
)

const (
	tagPing = 300
	tagPong = 301

	pingBytes = 64
)

// PingPong pairs even ranks with the next odd rank; the even rank sends a
// buffer and the odd one echoes it back. An unpaired last rank stays idle.
type PingPong struct{}

func (PingPong) Name() string { return "pingpong" }

func (PingPong) Description() string {
	return "echo a buffer between rank pairs and measure round trips"
}

// Configure uses one entry point per rank.
func (PingPong) Configure(coord *comm.Coordinator, params *Params) error {
	size := coord.Size()
	for rank := 0; rank < size; rank++ {
		var fn comm.EntryPoint
		switch {
		case rank%2 == 1:
			fn = pong
		case rank+1 < size:
			fn = ping
		default:
			fn = idle
		}
		if err := coord.SetMultipleMethod(rank, fn, params); err != nil {
			return err
		}
	}
	return nil
}

func ping(ctx context.Context, rank, size int, c *comm.Controller, data any) error {
	params := data.(*Params)
	partner := rank + 1

	buf := make([]byte, pingBytes)
	rtts := make([]float64, 0, params.Rounds)
	for round := 0; round < params.Rounds; round++ {
		for i := range buf {
			buf[i] = byte(round + i)
		}

		start := time.Now()
		if err := c.Send(partner, tagPing, nil, buf); err != nil {
			return err
		}
		msg, err := c.ReceiveContext(ctx, partner, tagPong)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		rtts = append(rtts, float64(time.Since(start).Microseconds()))

		if !bytes.Equal(msg.Raw, buf) {
			return fmt.Errorf("round %d: echo from rank %d does not match", round, partner)
		}
	}

	if rank == 0 && len(rtts) > 0 {
		params.Results.Set("pingpong_rtt_mean_us", stat.Mean(rtts, nil))
	}
	return nil
}

func pong(ctx context.Context, rank, size int, c *comm.Controller, data any) error {
	params := data.(*Params)
	partner := rank - 1

	for round := 0; round < params.Rounds; round++ {
		msg, err := c.ReceiveContext(ctx, partner, tagPing)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		if err := c.Send(partner, tagPong, nil, msg.Raw); err != nil {
			return err
		}
	}
	return nil
}

func idle(context.Context, int, int, *comm.Controller, any) error {
	return nil
}
