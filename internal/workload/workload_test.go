package workload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
)

func runWorkload(t *testing.T, name string, size int, opts comm.Options, params *Params) *comm.Report {
	t.Helper()

	coord, err := comm.NewCoordinator(size, opts)
	require.NoError(t, err)
	require.NoError(t, NewDefaultRegistry().Configure(name, coord, params))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := coord.Execute(ctx)
	require.NoError(t, err)
	return report
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	infos := r.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
		assert.NotEmpty(t, info.Description)
	}
	assert.Equal(t, []string{"broadcast", "pingpong", "reduce", "ring"}, names)

	_, ok := r.Get("ring")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Error(t, r.Register(Ring{}), "duplicate names are rejected")

	coord, err := comm.NewCoordinator(2, comm.Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, r.Configure("missing", coord, NewParams(1)), ErrUnknownWorkload)
}

func TestNewParamsClampsRounds(t *testing.T) {
	assert.Equal(t, 1, NewParams(0).Rounds)
	assert.Equal(t, 5, NewParams(5).Rounds)
	assert.NotNil(t, NewParams(1).Results)
}

func TestRing(t *testing.T) {
	for _, size := range []int{1, 2, 5} {
		params := NewParams(3)
		report := runWorkload(t, "ring", size, comm.Options{}, params)
		require.True(t, report.OK(), "size %d: %v", size, report.Err())

		token, ok := params.Results.Get("ring_token")
		require.True(t, ok)
		assert.Equal(t, float64(3*size*(size+1)/2), token)
	}
}

func TestReduce(t *testing.T) {
	for _, deep := range []bool{false, true} {
		params := NewParams(2)
		report := runWorkload(t, "reduce", 4, comm.Options{ForceDeepCopy: deep}, params)
		require.True(t, report.OK(), "deep=%v: %v", deep, report.Err())

		total, ok := params.Results.Get("reduce_total")
		require.True(t, ok)
		assert.Equal(t, expectedTotal(4, 1), total)

		_, ok = params.Results.Get("reduce_mean")
		assert.True(t, ok)
	}
}

func TestExpectedTotal(t *testing.T) {
	var sum float64
	for rank := 0; rank < 3; rank++ {
		for _, v := range rankSamples(rank, 2) {
			sum += v
		}
	}
	assert.Equal(t, sum, expectedTotal(3, 2))
}

func TestPingPong(t *testing.T) {
	params := NewParams(5)
	report := runWorkload(t, "pingpong", 5, comm.Options{}, params)
	require.True(t, report.OK(), report.Err())

	_, ok := params.Results.Get("pingpong_rtt_mean_us")
	assert.True(t, ok)
}

func TestBroadcast(t *testing.T) {
	doc, err := payload.Parse(payload.FormatYAML, []byte("name: grid\nsize: 4\n"))
	require.NoError(t, err)

	params := NewParams(1)
	params.Document = doc
	report := runWorkload(t, "broadcast", 4, comm.Options{ForceDeepCopy: true}, params)
	require.True(t, report.OK(), report.Err())

	keys, _ := params.Results.Get("broadcast_keys")
	receivers, _ := params.Results.Get("broadcast_receivers")
	assert.Equal(t, 2.0, keys)
	assert.Equal(t, 3.0, receivers)
	assert.NotContains(t, doc, "received_by")
}

func TestBroadcastDefaultDocument(t *testing.T) {
	params := NewParams(1)
	report := runWorkload(t, "broadcast", 2, comm.Options{}, params)
	require.True(t, report.OK(), report.Err())
	assert.Equal(t, "broadcast", params.Document["workload"])
}

func TestResultsSnapshotIsCopy(t *testing.T) {
	r := NewResults()
	r.Set("a", 1)
	snap := r.Snapshot()
	snap["a"] = 2

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestRunner(t *testing.T) {
	coord, err := comm.NewCoordinator(3, comm.Options{})
	require.NoError(t, err)
	runner := NewRunner(NewDefaultRegistry(), coord, nil).
		WithDocument(payload.Document{"name": "grid"})

	assert.Nil(t, runner.Last())
	assert.Len(t, runner.Workloads(), 4)

	summary, err := runner.Run(context.Background(), Request{Workload: "ring", Rounds: 2})
	require.NoError(t, err)
	assert.True(t, summary.OK)
	assert.Equal(t, 3, summary.Size)
	assert.Equal(t, 2, summary.Rounds)
	assert.Len(t, summary.Ranks, 3)
	assert.Equal(t, 12.0, summary.Values["ring_token"])
	assert.Same(t, summary, runner.Last())

	summary, err = runner.Run(context.Background(), Request{Workload: "broadcast", Ranks: 5})
	require.NoError(t, err)
	assert.True(t, summary.OK, summary.Ranks)
	assert.Equal(t, 5, summary.Size)
	assert.Equal(t, 4.0, summary.Values["broadcast_receivers"])

	_, err = runner.Run(context.Background(), Request{Workload: "nope"})
	assert.ErrorIs(t, err, ErrUnknownWorkload)
}

func TestRunnerRejectsConcurrentRuns(t *testing.T) {
	coord, err := comm.NewCoordinator(2, comm.Options{})
	require.NoError(t, err)
	runner := NewRunner(NewDefaultRegistry(), coord, nil)

	runner.running.Lock()
	_, err = runner.Run(context.Background(), Request{Workload: "ring"})
	runner.running.Unlock()
	assert.ErrorIs(t, err, comm.ErrRunning)
}

func TestRunnerCapsRanks(t *testing.T) {
	coord, err := comm.NewCoordinator(2, comm.Options{})
	require.NoError(t, err)
	runner := NewRunner(NewDefaultRegistry(), coord, nil).WithMaxRanks(4)

	_, err = runner.Run(context.Background(), Request{Workload: "ring", Ranks: 5})
	assert.ErrorIs(t, err, ErrTooManyRanks)
	assert.Equal(t, 2, coord.Size(), "a rejected request must not resize the coordinator")
	assert.Nil(t, runner.Last())

	summary, err := runner.Run(context.Background(), Request{Workload: "ring", Ranks: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Size)

	// Non-positive caps keep the default
	assert.Equal(t, DefaultMaxRanks, NewRunner(NewDefaultRegistry(), coord, nil).WithMaxRanks(0).maxRanks)
}

func TestSummarizeReportsRankErrors(t *testing.T) {
	coord, err := comm.NewCoordinator(2, comm.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.SetMultipleMethod(0, idle, nil))

	report, err := coord.Execute(context.Background())
	require.NoError(t, err)

	summary := Summarize("partial", 1, report, nil)
	assert.False(t, summary.OK)
	assert.Empty(t, summary.Ranks[0].Error)
	assert.Contains(t, summary.Ranks[1].Error, "missing entry point")
	assert.Nil(t, summary.Values)
}
