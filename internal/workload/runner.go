package workload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/comm/payload"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/logging"
)

// DefaultMaxRanks caps the world size a Request may ask for
const DefaultMaxRanks = 256

// ErrTooManyRanks is returned when a Request asks for more ranks than the
// runner allows
var ErrTooManyRanks = errors.New("too many ranks")

// Request selects a workload and its shape for one run
type Request struct {
	Workload string `json:"workload" binding:"required"`
	Ranks    int    `json:"ranks"`  // 0 keeps the coordinator's size
	Rounds   int    `json:"rounds"` // 0 means one round
}

// Summary is the serializable outcome of one run
type Summary struct {
	RunID      string             `json:"run_id"`
	Workload   string             `json:"workload"`
	Size       int                `json:"size"`
	Rounds     int                `json:"rounds"`
	Started    time.Time          `json:"started"`
	DurationMS float64            `json:"duration_ms"`
	OK         bool               `json:"ok"`
	Ranks      []RankSummary      `json:"ranks"`
	Values     map[string]float64 `json:"values,omitempty"`
}

// RankSummary is one rank's line of a Summary
type RankSummary struct {
	Rank       int     `json:"rank"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Summarize flattens a coordinator report
func Summarize(name string, rounds int, report *comm.Report, results *Results) *Summary {
	s := &Summary{
		RunID:      report.RunID.String(),
		Workload:   name,
		Size:       report.Size,
		Rounds:     rounds,
		Started:    report.Started,
		DurationMS: milliseconds(report.Duration),
		OK:         report.OK(),
		Ranks:      make([]RankSummary, len(report.Results)),
	}
	for i, res := range report.Results {
		s.Ranks[i] = RankSummary{Rank: res.Rank, DurationMS: milliseconds(res.Duration)}
		if res.Err != nil {
			s.Ranks[i].Error = res.Err.Error()
		}
	}
	if results != nil {
		s.Values = results.Snapshot()
	}
	return s
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Runner executes registered workloads on one coordinator, one run at a time
type Runner struct {
	registry *Registry
	coord    *comm.Coordinator
	logger   *logging.Logger
	document payload.Document
	maxRanks int

	running sync.Mutex

	mu   sync.RWMutex
	last *Summary
}

// NewRunner creates a runner
func NewRunner(registry *Registry, coord *comm.Coordinator, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{registry: registry, coord: coord, logger: logger, maxRanks: DefaultMaxRanks}
}

// WithMaxRanks caps Request.Ranks; n < 1 keeps the current cap
func (r *Runner) WithMaxRanks(n int) *Runner {
	if n > 0 {
		r.maxRanks = n
	}
	return r
}

// WithDocument sets the document handed to the broadcast workload
func (r *Runner) WithDocument(doc payload.Document) *Runner {
	r.document = doc
	return r
}

// Workloads lists the registered workloads
func (r *Runner) Workloads() []Info {
	return r.registry.List()
}

// Run configures and executes one workload. It returns comm.ErrRunning if
// another run is in progress, ErrUnknownWorkload for an unknown name and
// ErrTooManyRanks when Ranks exceeds the cap.
// Rank failures are reported in the summary, not as an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	if req.Ranks > r.maxRanks {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d", ErrTooManyRanks, req.Ranks, r.maxRanks)
	}
	if !r.running.TryLock() {
		return nil, comm.ErrRunning
	}
	defer r.running.Unlock()

	if req.Ranks > 0 {
		if err := r.coord.SetSize(req.Ranks); err != nil {
			return nil, err
		}
	}

	params := NewParams(req.Rounds)
	if r.document != nil {
		params.Document = r.document.DeepClone().(payload.Document)
	}
	if err := r.registry.Configure(req.Workload, r.coord, params); err != nil {
		return nil, err
	}

	r.logger.Info("running workload",
		zap.String("workload", req.Workload),
		zap.Int("ranks", r.coord.Size()),
		zap.Int("rounds", params.Rounds),
	)
	report, err := r.coord.Execute(ctx)
	if err != nil {
		return nil, err
	}

	summary := Summarize(req.Workload, params.Rounds, report, params.Results)
	if !summary.OK {
		r.logger.Warn("workload failed", zap.String("workload", req.Workload), zap.Error(report.Err()))
	}

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
	return summary, nil
}

// Last returns the summary of the most recent run, or nil
func (r *Runner) Last() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}
