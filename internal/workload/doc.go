/*
Package workload holds demo programs for the comm coordinator.

Each Workload configures a Coordinator with its entry points and shares a
Params value between ranks. Rank 0 verifies the outcome and records summary
values in Params.Results:

	registry := workload.NewDefaultRegistry()
	params := workload.NewParams(3)
	if err := registry.Configure("ring", coord, params); err != nil {
		return err
	}
	report, err := coord.Execute(ctx)
*/
package workload
