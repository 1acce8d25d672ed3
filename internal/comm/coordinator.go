package comm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/threadcomm/internal/shared/id"
)

// EntryPoint is the body of one rank. It receives its own controller and
// the user data configured for it; a returned error becomes that rank's
// result.
type EntryPoint func(ctx context.Context, rank, size int, c *Controller, data any) error

// State is the coordinator's lifecycle position
type State int

const (
	StateIdle State = iota
	StateConfigured
	StateRunning
	StateJoined
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// RankResult is the outcome of one rank's entry point
type RankResult struct {
	Rank     int
	Err      error
	Duration time.Duration
}

// Report is the outcome of one Execute call
type Report struct {
	RunID    id.RunID
	Size     int
	Started  time.Time
	Duration time.Duration
	Results  []RankResult
}

// Failures returns the results of ranks that finished with an error
func (r *Report) Failures() []RankResult {
	var failed []RankResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every rank finished cleanly
func (r *Report) OK() bool {
	return len(r.Failures()) == 0
}

// Err joins the errors of all failed ranks, or returns nil
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failures() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Coordinator runs one goroutine per rank, each with its own Controller,
// and waits for all of them. Rank 0 always runs on the coordinator's own
// controller.
type Coordinator struct {
	opts   Options
	tracer *tracing.Tracer
	self   *Controller

	mu           sync.Mutex
	state        State
	size         int
	single       EntryPoint
	singleData   any
	multipleMode bool
	multiple     []EntryPoint
	multipleData []any
	last         *Report
}

// NewCoordinator creates an idle coordinator for size ranks
func NewCoordinator(size int, opts Options) (*Coordinator, error) {
	if size < 1 {
		return nil, fmt.Errorf("coordinator size must be at least 1, got %d", size)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Coordinator{
		opts:         opts,
		self:         NewController(opts),
		size:         size,
		multiple:     make([]EntryPoint, size),
		multipleData: make([]any, size),
	}, nil
}

// WithTracer records one span per rank on every run
func (c *Coordinator) WithTracer(tracer *tracing.Tracer) *Coordinator {
	c.tracer = tracer
	return c
}

// Controller returns the coordinator's own controller, which is rank 0
// during a run.
func (c *Coordinator) Controller() *Controller {
	return c.self
}

// State returns the current lifecycle state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Size returns the number of ranks the next run will use
func (c *Coordinator) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// SetSize changes the number of ranks. Per-rank entry points of ranks that
// no longer exist are dropped.
func (c *Coordinator) SetSize(size int) error {
	if size < 1 {
		return fmt.Errorf("coordinator size must be at least 1, got %d", size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return ErrRunning
	}

	multiple := make([]EntryPoint, size)
	multipleData := make([]any, size)
	copy(multiple, c.multiple)
	copy(multipleData, c.multipleData)
	c.size, c.multiple, c.multipleData = size, multiple, multipleData
	return nil
}

// SetSingleMethod runs fn on every rank with the same data. It replaces any
// per-rank entry points.
func (c *Coordinator) SetSingleMethod(fn EntryPoint, data any) error {
	if fn == nil {
		return errors.New("single method must not be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return ErrRunning
	}

	c.single, c.singleData = fn, data
	c.multipleMode = false
	clear(c.multiple)
	clear(c.multipleData)
	c.state = StateConfigured
	return nil
}

// SetMultipleMethod sets the entry point of one rank. It replaces a single
// method set earlier; ranks left unset fail with ErrMissingEntryPoint.
func (c *Coordinator) SetMultipleMethod(rank int, fn EntryPoint, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return ErrRunning
	}
	if rank < 0 || rank >= c.size {
		return invalidRank(rank, c.size)
	}

	if !c.multipleMode {
		c.single, c.singleData = nil, nil
		c.multipleMode = true
	}
	c.multiple[rank] = fn
	c.multipleData[rank] = data
	c.state = StateConfigured
	return nil
}

// Reset clears every entry point and returns to the idle state
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return ErrRunning
	}

	c.single, c.singleData = nil, nil
	c.multipleMode = false
	clear(c.multiple)
	clear(c.multipleData)
	c.state = StateIdle
	return nil
}

// LastReport returns the report of the most recent run, or nil
func (c *Coordinator) LastReport() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type rankPlan struct {
	fn   EntryPoint
	data any
}

// Execute builds the controllers, runs every rank's entry point on its own
// goroutine and returns once all of them have finished. Rank failures never
// stop the other ranks; they are collected in the report. The returned error
// is only about the coordinator itself (not configured, already running).
func (c *Coordinator) Execute(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	switch c.state {
	case StateRunning:
		c.mu.Unlock()
		return nil, ErrRunning
	case StateIdle:
		c.mu.Unlock()
		return nil, ErrNotConfigured
	}
	c.state = StateRunning
	size := c.size
	plans := make([]rankPlan, size)
	for rank := range plans {
		if c.multipleMode {
			plans[rank] = rankPlan{fn: c.multiple[rank], data: c.multipleData[rank]}
		} else {
			plans[rank] = rankPlan{fn: c.single, data: c.singleData}
		}
	}
	c.mu.Unlock()

	controllers := c.buildControllers(size)

	report := &Report{
		RunID:   id.NewRunID(),
		Size:    size,
		Started: time.Now(),
		Results: make([]RankResult, size),
	}
	logger := logging.Wrap(c.opts.Logger.With(zap.String("run_id", report.RunID.String())))
	logger.Info("starting ranks", zap.Int("size", size), zap.Bool("force_deep_copy", c.opts.ForceDeepCopy))

	runCtx := tracing.WithTrace(ctx, tracing.TraceID(report.RunID))

	var g errgroup.Group
	for rank := range controllers {
		g.Go(func() error {
			report.Results[rank] = c.runRank(runCtx, logger.ForRank(rank, size), controllers[rank], plans[rank])
			return report.Results[rank].Err
		})
	}
	// Every rank's error is already in its result.
	_ = g.Wait()

	report.Duration = time.Since(report.Started)

	status := "ok"
	if failures := report.Failures(); len(failures) > 0 {
		status = "failed"
		logger.Warn("run finished with rank failures", zap.Int("failed", len(failures)), zap.Duration("duration", report.Duration))
	} else {
		logger.Info("run finished", zap.Duration("duration", report.Duration))
	}
	c.opts.Metrics.RecordRun(status, report.Duration)

	c.mu.Lock()
	c.state = StateJoined
	c.last = report
	c.mu.Unlock()

	return report, nil
}

// buildControllers creates ranks 1..size-1, reuses the coordinator's own
// controller as rank 0, and points all of them at one shared peer table.
func (c *Coordinator) buildControllers(size int) []*Controller {
	controllers := make([]*Controller, size)
	controllers[0] = c.self
	for rank := 1; rank < size; rank++ {
		controllers[rank] = newController(rank, c.opts)
	}
	c.self.reset(controllers)
	for _, ctrl := range controllers[1:] {
		ctrl.peers = controllers
	}
	return controllers
}

func (c *Coordinator) runRank(ctx context.Context, logger *logging.Logger, ctrl *Controller, plan rankPlan) (res RankResult) {
	rank, size := ctrl.Rank(), ctrl.Size()
	res.Rank = rank
	start := time.Now()

	var span *tracing.Span
	if c.tracer != nil {
		span, ctx = c.tracer.StartSpan(ctx, "rank.run")
		span.SetTag("rank", strconv.Itoa(rank))
	}

	defer func() {
		if r := recover(); r != nil {
			res.Err = &RankError{Rank: rank, Err: panicError(r)}
		}
		res.Duration = time.Since(start)

		if res.Err != nil {
			reason := errorType(res.Err)
			c.opts.Metrics.RecordRankFailure(reason)
			logger.Error("rank failed", zap.String("reason", reason), zap.Error(res.Err))
		} else {
			logger.Debug("rank finished", zap.Duration("duration", res.Duration))
		}

		if span != nil {
			if res.Err != nil {
				span.SetError(res.Err)
			}
			span.Finish()
			c.tracer.Submit(span)
		}
	}()

	if plan.fn == nil {
		res.Err = &RankError{Rank: rank, Err: ErrMissingEntryPoint}
		return res
	}

	logger.Debug("rank starting")
	if err := plan.fn(ctx, rank, size, ctrl, plan.data); err != nil {
		res.Err = &RankError{Rank: rank, Err: err}
	}
	return res
}
