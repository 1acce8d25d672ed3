package workload

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
)

const tagRing = 100

// Ring passes a token around all ranks; every rank adds rank+1 to it.
// Rank 0 checks the final value after the last lap.
type Ring struct{}

func (Ring) Name() string { return "ring" }

func (Ring) Description() string {
	return "pass an int64 token around every rank, each adding rank+1"
}

func (Ring) Configure(coord *comm.Coordinator, params *Params) error {
	return coord.SetSingleMethod(ringRank, params)
}

func ringRank(ctx context.Context, rank, size int, c *comm.Controller, data any) error {
	params := data.(*Params)
	next, prev := (rank+1)%size, (rank-1+size)%size

	var token int64
	for round := 0; round < params.Rounds; round++ {
		if rank == 0 {
			if err := comm.SendSlice(c, next, tagRing, []int64{token + 1}); err != nil {
				return err
			}
		}

		got, _, err := comm.ReceiveSliceContext[int64](ctx, c, prev, tagRing)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		if len(got) != 1 {
			return fmt.Errorf("round %d: token has %d values", round, len(got))
		}
		token = got[0]

		if rank != 0 {
			if err := comm.SendSlice(c, next, tagRing, []int64{token + int64(rank+1)}); err != nil {
				return err
			}
		}
	}

	if rank == 0 {
		want := int64(params.Rounds) * int64(size*(size+1)/2)
		params.Results.Set("ring_token", float64(token))
		if token != want {
			return fmt.Errorf("ring token is %d after %d rounds, want %d", token, params.Rounds, want)
		}
	}
	return nil
}
