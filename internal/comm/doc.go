/*
Package comm emulates a message-passing world of N ranks inside one process.

# Overview

A Coordinator starts one goroutine per rank and hands each a Controller.
Controllers address each other by rank through a shared peer table:

	coord, _ := comm.NewCoordinator(4, comm.Options{Logger: logger})
	coord.SetSingleMethod(func(ctx context.Context, rank, size int, c *comm.Controller, _ any) error {
		if rank == 0 {
			return comm.SendSlice(c, 3, 7, []int32{1, 2, 3})
		}
		if rank == 3 {
			data, status, err := comm.ReceiveSlice[int32](c, comm.AnySource, 7)
			...
		}
		return nil
	}, nil)
	report, err := coord.Execute(ctx)

# Send and Receive

Send copies its arguments into a Message and appends it to the target's
Mailbox; it never blocks. Receive takes the oldest message matching
(source, tag) from its own mailbox, or records what it is waiting for and
blocks on its Gate.

The target's mutex covers the mailbox and the waiting pattern together. A
sender inserts, checks the pattern and opens the gate inside one critical
section, and a receiver checks the mailbox and publishes its pattern inside
another, so a wake can never be lost between "nothing here" and "block".

# Ordering

Messages from one sender with one tag are received in send order. There is
no ordering between different tags or different senders; an any-source
receive takes the earliest arrival with the tag.

# Cancellation

ReceiveContext returns ErrTimedOut or ErrCancelled when its context ends.
Options.ReceiveTimeout bounds any receive whose context has no deadline of
its own, so it covers Receive and the Context variants alike.
*/
package comm
