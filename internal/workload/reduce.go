package workload

import (
	"context"
	"fmt"
	"math"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
)

const (
	tagReduce = 200
	tagResult = 201

	samplesPerRank = 8
)

// Reduce has every rank send a vector of samples to rank 0, which adds them
// element-wise and sends the total back to everyone.
type Reduce struct{}

func (Reduce) Name() string { return "reduce" }

func (Reduce) Description() string {
	return "sum per-rank sample vectors on rank 0 and broadcast the total"
}

func (Reduce) Configure(coord *comm.Coordinator, params *Params) error {
	return coord.SetSingleMethod(reduceRank, params)
}

// rankSamples returns the samples rank contributes in round.
func rankSamples(rank, round int) []float64 {
	samples := make([]float64, samplesPerRank)
	for i := range samples {
		samples[i] = float64(rank*samplesPerRank + i + round)
	}
	return samples
}

// expectedTotal is the closed form of the sum of every rank's samples.
func expectedTotal(size, round int) float64 {
	n := size * samplesPerRank
	return float64(n*(n-1)/2 + n*round)
}

func reduceRank(ctx context.Context, rank, size int, c *comm.Controller, data any) error {
	params := data.(*Params)

	for round := 0; round < params.Rounds; round++ {
		local := payload.NewVector(fmt.Sprintf("rank-%d", rank), rankSamples(rank, round))

		if rank != 0 {
			if err := comm.SendObject(c, 0, tagReduce, local); err != nil {
				return err
			}
			total, _, err := comm.ReceiveSliceContext[float64](ctx, c, 0, tagResult)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			if len(total) != 1 || total[0] != expectedTotal(size, round) {
				return fmt.Errorf("round %d: received total %v, want %v", round, total, expectedTotal(size, round))
			}
			continue
		}

		for i := 1; i < size; i++ {
			p, status, err := comm.ReceiveObjectContext(ctx, c, comm.AnySource, tagReduce)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			vec, ok := p.(*payload.Vector)
			if !ok {
				return fmt.Errorf("round %d: rank %d sent %T, want *payload.Vector", round, status.Source, p)
			}
			if err := local.Add(vec); err != nil {
				return fmt.Errorf("round %d: rank %d: %w", round, status.Source, err)
			}
		}

		total := local.Sum()
		if want := expectedTotal(size, round); math.Abs(total-want) > 1e-9 {
			return fmt.Errorf("round %d: reduced total %v, want %v", round, total, want)
		}
		params.Results.Set("reduce_total", total)
		params.Results.Set("reduce_mean", local.Mean())
		params.Results.Set("reduce_variance", local.Variance())

		for target := 1; target < size; target++ {
			if err := comm.SendSlice(c, target, tagResult, []float64{total}); err != nil {
				return err
			}
		}
	}
	return nil
}
