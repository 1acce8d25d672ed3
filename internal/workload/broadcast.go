package workload

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
)

const (
	tagDocument = 400
	tagAck      = 401
)

// Broadcast sends a document from rank 0 to every other rank. Each receiver
// stamps its copy with its rank and acknowledges with the copy's key count.
// Rank 0 then checks that no stamp reached the original.
type Broadcast struct{}

func (Broadcast) Name() string { return "broadcast" }

func (Broadcast) Description() string {
	return "send a JSON/YAML/TOML document from rank 0 to every rank"
}

func (Broadcast) Configure(coord *comm.Coordinator, params *Params) error {
	if params.Document == nil {
		params.Document = payload.Document{"workload": "broadcast"}
	}
	return coord.SetSingleMethod(broadcastRank, params)
}

func broadcastRank(ctx context.Context, rank, size int, c *comm.Controller, data any) error {
	params := data.(*Params)
	keys := int64(len(params.Document))

	if rank != 0 {
		p, _, err := comm.ReceiveObjectContext(ctx, c, 0, tagDocument)
		if err != nil {
			return err
		}
		doc, ok := p.(payload.Document)
		if !ok {
			return fmt.Errorf("received %T, want payload.Document", p)
		}
		doc["received_by"] = rank
		return comm.SendSlice(c, 0, tagAck, []int64{int64(len(doc))})
	}

	for target := 1; target < size; target++ {
		if err := comm.SendObject(c, target, tagDocument, params.Document); err != nil {
			return err
		}
	}

	for i := 1; i < size; i++ {
		ack, status, err := comm.ReceiveSliceContext[int64](ctx, c, comm.AnySource, tagAck)
		if err != nil {
			return err
		}
		if len(ack) != 1 || ack[0] != keys+1 {
			return fmt.Errorf("rank %d acknowledged %v keys, want %d", status.Source, ack, keys+1)
		}
	}

	if _, stamped := params.Document["received_by"]; stamped {
		return fmt.Errorf("a receiver's stamp leaked into the original document")
	}
	params.Results.Set("broadcast_keys", float64(keys))
	params.Results.Set("broadcast_receivers", float64(size-1))
	return nil
}
